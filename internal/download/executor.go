package download

import (
	"context"
	"log/slog"
	"os"
	"time"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
)

// Request describes one extraction attempt.
type Request struct {
	URL          string
	Proxy        string
	OutputDir    string
	Filename     string
	MediaKind    string
	Quality      string
	Container    string
	AudioQuality string
	CookiesFile  string
	Timeout      time.Duration
}

// Result is the successful outcome of an extraction.
type Result struct {
	FilePath  string
	SizeBytes int64
}

// Extractor fetches a single media item to disk.
type Extractor interface {
	Download(ctx context.Context, req Request) (Result, error)
}

// Store is the subset of queue persistence the executor needs.
type Store interface {
	MarkDownloading(ctx context.Context, itemID string) error
	RecordOutcome(ctx context.Context, itemID string, outcome queue.Outcome) error
	RecordCompleted(ctx context.Context, at time.Time, sizeBytes int64) error
	RecordFailed(ctx context.Context, at time.Time) error
}

// ItemResult summarizes what happened to one item.
type ItemResult struct {
	Status       queue.Status
	FilePath     string
	SizeBytes    int64
	ErrorKind    string
	ErrorMessage string
}

// Executor processes queue items one at a time.
type Executor struct {
	store     Store
	extractor Extractor
	cfg       *config.Config
	logger    *slog.Logger
}

// NewExecutor wires an executor from its dependencies.
func NewExecutor(store Store, extractor Extractor, cfg *config.Config, logger *slog.Logger) *Executor {
	return &Executor{
		store:     store,
		extractor: extractor,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "download"),
	}
}

// Process runs one download attempt for the item and records exactly one
// terminal outcome. Item-level failures are reported in the returned
// ItemResult with a nil error; a non-nil error means the run itself must
// stop (store failure or cancellation).
func (e *Executor) Process(ctx context.Context, q *queue.Queue, item *queue.Item, proxy string) (ItemResult, error) {
	logger := logging.WithContext(ctx, e.logger)

	if err := e.store.MarkDownloading(ctx, item.ID); err != nil {
		return ItemResult{}, err
	}

	req := e.buildRequest(q, item, proxy)
	logger.Info("download started",
		logging.String(logging.FieldEventType, "item_started"),
		logging.String("url", item.URL),
		logging.String(logging.FieldProxy, proxy))

	result, extractErr := e.extractor.Download(ctx, req)
	if ctx.Err() != nil {
		// Shutdown mid-download: leave the item in downloading so the next
		// run's stuck-item recovery returns it to pending.
		return ItemResult{}, ctx.Err()
	}

	if extractErr != nil {
		classified := ClassifyExtractionError(extractErr)
		kind := services.FailureKind(classified)
		outcome := queue.Outcome{
			Status:       queue.StatusFailed,
			ErrorKind:    kind,
			ErrorMessage: extractErr.Error(),
		}
		if err := e.store.RecordOutcome(ctx, item.ID, outcome); err != nil {
			return ItemResult{}, err
		}
		if err := e.store.RecordFailed(ctx, time.Now()); err != nil {
			return ItemResult{}, err
		}
		logger.Warn("download failed",
			logging.String(logging.FieldEventType, "item_failed"),
			logging.String("error_kind", kind),
			logging.Error(extractErr))
		return ItemResult{
			Status:       queue.StatusFailed,
			ErrorKind:    kind,
			ErrorMessage: extractErr.Error(),
		}, nil
	}

	size := result.SizeBytes
	if size == 0 && result.FilePath != "" {
		if info, err := os.Stat(result.FilePath); err == nil {
			size = info.Size()
		}
	}

	outcome := queue.Outcome{
		Status:        queue.StatusCompleted,
		FilePath:      result.FilePath,
		FileSizeBytes: size,
	}
	if err := e.store.RecordOutcome(ctx, item.ID, outcome); err != nil {
		return ItemResult{}, err
	}
	if err := e.store.RecordCompleted(ctx, time.Now(), size); err != nil {
		return ItemResult{}, err
	}

	logger.Info("download completed",
		logging.String(logging.FieldEventType, "item_completed"),
		logging.String("file", result.FilePath),
		logging.Int64("size_bytes", size))
	return ItemResult{
		Status:    queue.StatusCompleted,
		FilePath:  result.FilePath,
		SizeBytes: size,
	}, nil
}

func (e *Executor) buildRequest(q *queue.Queue, item *queue.Item, proxy string) Request {
	template := q.FilenameTemplate
	if template == "" {
		template = e.cfg.Download.FilenameTemplate
	}
	filename := RenderFilename(template, TemplateData{
		Index:      item.Position + 1,
		Title:      item.Title,
		Uploader:   item.Uploader,
		UploadDate: item.UploadDate,
		Playlist:   q.Title,
		ID:         item.ExternalID,
	})

	outputDir := q.OutputDir
	if outputDir == "" {
		outputDir = e.cfg.Paths.DownloadDir
	}

	quality := q.Quality
	if quality == "" {
		quality = e.cfg.Download.Quality
	}
	container := q.Container
	if container == "" {
		container = e.cfg.Download.Container
	}
	mediaKind := q.MediaKind
	if mediaKind == "" {
		mediaKind = e.cfg.Download.MediaKind
	}

	return Request{
		URL:          item.URL,
		Proxy:        proxy,
		OutputDir:    outputDir,
		Filename:     filename,
		MediaKind:    mediaKind,
		Quality:      quality,
		Container:    container,
		AudioQuality: e.cfg.Download.AudioQuality,
		CookiesFile:  e.cfg.Download.CookiesFile,
		Timeout:      time.Duration(e.cfg.Download.TimeoutSeconds) * time.Second,
	}
}
