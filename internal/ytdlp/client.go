package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ytdlplib "github.com/lrstanley/go-ytdlp"

	"spool/internal/download"
	"spool/internal/logging"
	"spool/internal/services"
)

// Client drives yt-dlp. It satisfies download.Extractor.
type Client struct {
	logger *slog.Logger
}

// New constructs a yt-dlp client.
func New(logger *slog.Logger) *Client {
	return &Client{logger: logging.NewComponentLogger(logger, "ytdlp")}
}

// Download fetches one media item to disk according to the request.
func (c *Client) Download(ctx context.Context, req download.Request) (download.Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return download.Result{}, services.Wrap(services.ErrTransient, "ytdlp", "download", "create output dir", err)
		}
	}

	outputTemplate := filepath.Join(req.OutputDir, req.Filename+".%(ext)s")

	dl := ytdlplib.New().
		NoPlaylist().
		ForceOverwrites().
		Output(outputTemplate)

	if req.Proxy != "" {
		dl = dl.Proxy(req.Proxy)
	}
	if req.CookiesFile != "" {
		dl = dl.Cookies(req.CookiesFile)
	}

	if strings.EqualFold(req.MediaKind, "audio") {
		dl = dl.ExtractAudio().AudioFormat("mp3")
		if req.AudioQuality != "" {
			dl = dl.AudioQuality(req.AudioQuality + "K")
		}
	} else {
		dl = dl.Format(formatSelector(req.Quality))
		if req.Container != "" {
			dl = dl.MergeOutputFormat(req.Container)
		}
	}

	logger := logging.WithContext(ctx, c.logger)
	var lastProgress time.Time
	dl.ProgressFunc(500*time.Millisecond, func(update ytdlplib.ProgressUpdate) {
		// Sampled progress: one debug line every few seconds is enough.
		if time.Since(lastProgress) < 5*time.Second {
			return
		}
		lastProgress = time.Now()
		if update.TotalBytes > 0 {
			percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
			logger.Debug("download progress",
				logging.Float64("percent", percent),
				logging.Int64("downloaded_bytes", int64(update.DownloadedBytes)))
		}
	})

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		if ctx.Err() != nil {
			return download.Result{}, ctx.Err()
		}
		return download.Result{}, fmt.Errorf("yt-dlp: %w", err)
	}

	filePath := resolveOutputFile(result)
	var size int64
	if filePath != "" {
		if info, statErr := os.Stat(filePath); statErr == nil {
			size = info.Size()
		}
	}
	return download.Result{FilePath: filePath, SizeBytes: size}, nil
}

// resolveOutputFile pulls the downloaded filename from yt-dlp's extracted
// info. yt-dlp reports the pre-merge name in some modes, so missing files
// are tolerated; the executor falls back to a size of zero.
func resolveOutputFile(result *ytdlplib.Result) string {
	if result == nil {
		return ""
	}
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 {
		return ""
	}
	if info[0].Filename != nil {
		return *info[0].Filename
	}
	return ""
}

// formatSelector maps a quality label onto a yt-dlp format expression.
func formatSelector(quality string) string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "", "best":
		return "bestvideo+bestaudio/best"
	case "2160p":
		return "bestvideo[height<=2160]+bestaudio/best[height<=2160]"
	case "1440p":
		return "bestvideo[height<=1440]+bestaudio/best[height<=1440]"
	case "1080p":
		return "bestvideo[height<=1080]+bestaudio/best[height<=1080]"
	case "720p":
		return "bestvideo[height<=720]+bestaudio/best[height<=720]"
	case "480p":
		return "bestvideo[height<=480]+bestaudio/best[height<=480]"
	default:
		// Pass unrecognized values through; yt-dlp validates them.
		return quality
	}
}

// Entry is one playlist member as reported by yt-dlp.
type Entry struct {
	ID              string
	URL             string
	Title           string
	Uploader        string
	UploadDate      string
	DurationSeconds int64
}

// Playlist is the flat-extracted shape of a playlist or channel URL.
type Playlist struct {
	Title   string
	Entries []Entry
}

type flatEntry struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	UploadDate string  `json:"upload_date"`
	Duration   float64 `json:"duration"`
}

type flatPlaylist struct {
	Type     string      `json:"_type"`
	Title    string      `json:"title"`
	Uploader string      `json:"uploader"`
	Entries  []flatEntry `json:"entries"`
	flatEntry
}

// Resolve expands a playlist, channel, or single video URL into its entries
// without downloading anything.
func (c *Client) Resolve(ctx context.Context, sourceURL string) (*Playlist, error) {
	dl := ytdlplib.New().
		FlatPlaylist().
		SkipDownload().
		DumpSingleJSON()

	result, err := dl.Run(ctx, sourceURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "ytdlp", "resolve", "extract playlist", err)
	}
	if result == nil || strings.TrimSpace(result.Stdout) == "" {
		return nil, services.Wrap(services.ErrTransient, "ytdlp", "resolve", "empty extractor output", nil)
	}

	return ParsePlaylistJSON(result.Stdout)
}

// ParsePlaylistJSON converts yt-dlp's --dump-single-json output into a
// Playlist. Single-video output becomes a one-entry playlist.
func ParsePlaylistJSON(raw string) (*Playlist, error) {
	var parsed flatPlaylist
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ytdlp", "resolve", "parse extractor json", err)
	}

	playlist := &Playlist{Title: parsed.Title}

	if parsed.Type == "playlist" || len(parsed.Entries) > 0 {
		playlist.Entries = make([]Entry, 0, len(parsed.Entries))
		for _, entry := range parsed.Entries {
			converted, err := convertEntry(entry)
			if err != nil {
				continue
			}
			playlist.Entries = append(playlist.Entries, converted)
		}
	} else {
		converted, err := convertEntry(parsed.flatEntry)
		if err != nil {
			return nil, err
		}
		// Top-level title/uploader shadow the embedded fields during decode.
		if converted.Title == "" {
			converted.Title = parsed.Title
		}
		if converted.Uploader == "" {
			converted.Uploader = parsed.Uploader
		}
		playlist.Entries = []Entry{converted}
		if playlist.Title == "" {
			playlist.Title = converted.Title
		}
	}

	if len(playlist.Entries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ytdlp", "resolve", "playlist has no downloadable entries", nil)
	}
	return playlist, nil
}

func convertEntry(entry flatEntry) (Entry, error) {
	url := entry.URL
	if url == "" {
		url = entry.WebpageURL
	}
	if entry.ID == "" || url == "" {
		return Entry{}, errors.New("entry missing id or url")
	}
	return Entry{
		ID:              entry.ID,
		URL:             url,
		Title:           entry.Title,
		Uploader:        entry.Uploader,
		UploadDate:      entry.UploadDate,
		DurationSeconds: int64(entry.Duration),
	}, nil
}
