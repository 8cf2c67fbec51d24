package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"spool/internal/config"
	"spool/internal/services"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "queue.db")
	return OpenPath(dbPath)
}

// OpenPath opens the queue database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewQueueParams carries the caller-supplied settings for a new queue.
type NewQueueParams struct {
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

// CreateQueue inserts a new queue in the pending state.
func (s *Store) CreateQueue(ctx context.Context, params NewQueueParams) (*Queue, error) {
	if strings.TrimSpace(params.SourceURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "create", "source url must not be empty", nil)
	}
	if params.BatchStart < 0 || params.BatchSize < 0 {
		return nil, services.Wrap(services.ErrValidation, "queue", "create", "batch window must not be negative", nil)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queues (
            id, source_url, title, media_kind, quality, container, output_dir,
            filename_template, download_order, batch_start, batch_size,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.SourceURL,
		nullableString(params.Title),
		params.MediaKind,
		params.Quality,
		nullableString(params.Container),
		nullableString(params.OutputDir),
		nullableString(params.FilenameTemplate),
		params.DownloadOrder,
		params.BatchStart,
		params.BatchSize,
		QueuePending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "create", "insert queue", err)
	}

	return s.GetQueue(ctx, id)
}

// GetQueue fetches a queue by identifier. Returns nil when not found.
func (s *Store) GetQueue(ctx context.Context, id string) (*Queue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queues WHERE id = ?`, id)
	q, err := scanQueue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "get", "scan queue", err)
	}
	return q, nil
}

// ResolveQueue accepts a full queue id or an unambiguous prefix.
func (s *Store) ResolveQueue(ctx context.Context, ref string) (*Queue, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "resolve", "queue reference must not be empty", nil)
	}

	if q, err := s.GetQueue(ctx, ref); err != nil || q != nil {
		return q, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+queueColumns+` FROM queues WHERE id LIKE ? LIMIT 2`, ref+"%")
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "resolve", "query prefix", err)
	}
	defer rows.Close()

	var matches []*Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "queue", "resolve", "scan queue", err)
		}
		matches = append(matches, q)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "resolve", "iterate queues", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "queue", "resolve", fmt.Sprintf("prefix %q is ambiguous", ref), nil)
	}
}

// ListQueues returns all queues ordered by creation time, newest first.
func (s *Store) ListQueues(ctx context.Context) ([]*Queue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+queueColumns+` FROM queues ORDER BY created_at DESC`)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "list", "query queues", err)
	}
	defer rows.Close()

	var queues []*Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "queue", "list", "scan queue", err)
		}
		queues = append(queues, q)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "list", "iterate queues", err)
	}
	return queues, nil
}

// UpdateQueueStatus transitions a queue to the given status.
func (s *Store) UpdateQueueStatus(ctx context.Context, id string, status QueueStatus) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE queues SET status = ?, updated_at = ? WHERE id = ?`,
		status, timestamp, id,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "update status", "update queue", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "update status", "rows affected", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", "update status", fmt.Sprintf("queue %s not found", id), nil)
	}
	return nil
}

// UpdateQueueBatch stores a new batch window on the queue.
func (s *Store) UpdateQueueBatch(ctx context.Context, id string, start, size int) error {
	if start < 0 || size < 0 {
		return services.Wrap(services.ErrValidation, "queue", "update batch", "batch window must not be negative", nil)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE queues SET batch_start = ?, batch_size = ?, updated_at = ? WHERE id = ?`,
		start, size, timestamp, id,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "update batch", "update queue", err)
	}
	return nil
}

// DeleteQueue removes a queue and, through the foreign key cascade, all of
// its items.
func (s *Store) DeleteQueue(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queues WHERE id = ?`, id); err != nil {
		return services.Wrap(services.ErrStore, "queue", "delete", "delete queue", err)
	}
	return nil
}
