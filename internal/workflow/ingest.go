package workflow

import (
	"context"
	"log/slog"
	"strings"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/ytdlp"
)

// Resolver expands a source URL into playlist entries. ytdlp.Client
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*ytdlp.Playlist, error)
}

// IngestStore is the subset of queue persistence ingestion needs.
type IngestStore interface {
	CreateQueue(ctx context.Context, params queue.NewQueueParams) (*queue.Queue, error)
	AddItems(ctx context.Context, queueID string, entries []queue.NewItemParams) (int, error)
	ListItems(ctx context.Context, queueID string, statuses ...queue.Status) ([]*queue.Item, error)
}

// IngestParams describes a queue to build from a playlist or channel URL.
// Zero values fall back to the configured download defaults.
type IngestParams struct {
	SourceURL        string
	Title            string
	MediaKind        string
	Quality          string
	Container        string
	OutputDir        string
	FilenameTemplate string
	DownloadOrder    string
	BatchStart       int
	BatchSize        int
}

// Ingestor turns source URLs into persisted queues.
type Ingestor struct {
	store    IngestStore
	resolver Resolver
	cfg      *config.Config
	logger   *slog.Logger
}

// NewIngestor wires an ingestor from its dependencies.
func NewIngestor(store IngestStore, resolver Resolver, cfg *config.Config, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest resolves the source URL and creates a queue holding its entries,
// ordered according to the download order. Returns the queue and the number
// of items added.
func (i *Ingestor) Ingest(ctx context.Context, params IngestParams) (*queue.Queue, int, error) {
	if strings.TrimSpace(params.SourceURL) == "" {
		return nil, 0, services.Wrap(services.ErrValidation, "ingest", "add", "source url must not be empty", nil)
	}
	i.applyDefaults(&params)

	playlist, err := i.resolver.Resolve(ctx, params.SourceURL)
	if err != nil {
		return nil, 0, err
	}

	title := params.Title
	if title == "" {
		title = playlist.Title
	}

	q, err := i.store.CreateQueue(ctx, queue.NewQueueParams{
		SourceURL:        params.SourceURL,
		Title:            title,
		MediaKind:        params.MediaKind,
		Quality:          params.Quality,
		Container:        params.Container,
		OutputDir:        params.OutputDir,
		FilenameTemplate: params.FilenameTemplate,
		DownloadOrder:    params.DownloadOrder,
		BatchStart:       params.BatchStart,
		BatchSize:        params.BatchSize,
	})
	if err != nil {
		return nil, 0, err
	}

	added, err := i.addEntries(ctx, q, playlist.Entries, 0)
	if err != nil {
		return nil, 0, err
	}

	i.logger.Info("queue created",
		logging.String(logging.FieldEventType, "queue_created"),
		logging.String(logging.FieldQueueID, q.ID),
		logging.String("title", title),
		logging.Int("items", added))
	return q, added, nil
}

// Refresh re-resolves a queue's source URL and appends entries that were
// published since the queue was created. Existing items are untouched; new
// entries take positions after the current tail so the ordering stays stable.
func (i *Ingestor) Refresh(ctx context.Context, q *queue.Queue) (int, error) {
	playlist, err := i.resolver.Resolve(ctx, q.SourceURL)
	if err != nil {
		return 0, err
	}

	existing, err := i.store.ListItems(ctx, q.ID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	nextPosition := 0
	for _, item := range existing {
		seen[item.ExternalID] = struct{}{}
		if item.Position >= nextPosition {
			nextPosition = item.Position + 1
		}
	}

	fresh := make([]ytdlp.Entry, 0, len(playlist.Entries))
	for _, entry := range playlist.Entries {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		fresh = append(fresh, entry)
	}

	added, err := i.addEntries(ctx, q, fresh, nextPosition)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		i.logger.Info("queue refreshed",
			logging.String(logging.FieldEventType, "queue_refreshed"),
			logging.String(logging.FieldQueueID, q.ID),
			logging.Int("items_added", added))
	}
	return added, nil
}

func (i *Ingestor) addEntries(ctx context.Context, q *queue.Queue, entries []ytdlp.Entry, firstPosition int) (int, error) {
	ordered := ytdlp.SortEntries(entries, q.DownloadOrder)
	params := make([]queue.NewItemParams, 0, len(ordered))
	for offset, entry := range ordered {
		params = append(params, queue.NewItemParams{
			Position:        firstPosition + offset,
			ExternalID:      entry.ID,
			URL:             entry.URL,
			Title:           entry.Title,
			Uploader:        entry.Uploader,
			UploadDate:      entry.UploadDate,
			DurationSeconds: entry.DurationSeconds,
		})
	}
	return i.store.AddItems(ctx, q.ID, params)
}

func (i *Ingestor) applyDefaults(params *IngestParams) {
	if params.MediaKind == "" {
		params.MediaKind = i.cfg.Download.MediaKind
	}
	if params.Quality == "" {
		params.Quality = i.cfg.Download.Quality
	}
	if params.Container == "" {
		params.Container = i.cfg.Download.Container
	}
	if params.DownloadOrder == "" {
		params.DownloadOrder = i.cfg.Download.Order
	}
	if params.FilenameTemplate == "" {
		params.FilenameTemplate = i.cfg.Download.FilenameTemplate
	}
}
