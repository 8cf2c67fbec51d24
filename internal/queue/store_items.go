package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spool/internal/services"
)

// NewItemParams carries one playlist entry destined for a queue.
type NewItemParams struct {
	Position        int
	ExternalID      string
	URL             string
	Title           string
	Uploader        string
	UploadDate      string
	DurationSeconds int64
}

// AddItems inserts playlist entries into a queue. Insertion is idempotent:
// entries whose external id already exists in the queue are silently skipped,
// so re-adding a playlist only appends what is new. Returns the number of
// rows actually inserted.
func (s *Store) AddItems(ctx context.Context, queueID string, entries []NewItemParams) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "add items", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO download_items (
            id, queue_id, position, external_id, url, title, uploader,
            upload_date, duration_seconds, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (queue_id, external_id) DO NOTHING`)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "add items", "prepare insert", err)
	}
	defer stmt.Close()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	added := 0
	for _, entry := range entries {
		if entry.ExternalID == "" || entry.URL == "" {
			return 0, services.Wrap(services.ErrValidation, "queue", "add items",
				fmt.Sprintf("entry at position %d missing external id or url", entry.Position), nil)
		}
		res, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			queueID,
			entry.Position,
			entry.ExternalID,
			entry.URL,
			nullableString(entry.Title),
			nullableString(entry.Uploader),
			nullableString(entry.UploadDate),
			entry.DurationSeconds,
			StatusPending,
			timestamp,
			timestamp,
		)
		if err != nil {
			return 0, services.Wrap(services.ErrStore, "queue", "add items", "insert item", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, services.Wrap(services.ErrStore, "queue", "add items", "rows affected", err)
		}
		added += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "add items", "commit", err)
	}
	return added, nil
}

// GetItem fetches a single item by identifier. Returns nil when not found.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM download_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "get item", "scan item", err)
	}
	return item, nil
}

// ListItems returns a queue's items ordered by position, optionally filtered
// by status.
func (s *Store) ListItems(ctx context.Context, queueID string, statuses ...Status) ([]*Item, error) {
	baseQuery := `SELECT ` + itemColumns + ` FROM download_items WHERE queue_id = ?`
	orderClause := ` ORDER BY position`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause, queueID)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, 0, len(statuses)+1)
		args = append(args, queueID)
		for _, status := range statuses {
			args = append(args, status)
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` AND status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "list items", "query items", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "queue", "list items", "scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "list items", "iterate items", err)
	}
	return items, nil
}

// PendingItems returns the items a run would process, ordered by position
// and restricted to the half-open window [offset, offset+limit). Both
// pending and failed items are eligible, which is what makes interrupted or
// partially failed runs resumable. A zero limit means no limit.
func (s *Store) PendingItems(ctx context.Context, queueID string, offset, limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM download_items
        WHERE queue_id = ? AND status IN (?, ?) ORDER BY position`
	args := []any{queueID, StatusPending, StatusFailed}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "pending items", "query items", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "queue", "pending items", "scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "pending items", "iterate items", err)
	}
	return items, nil
}

// CountItems aggregates per-status totals for a queue.
func (s *Store) CountItems(ctx context.Context, queueID string) (Counts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM download_items WHERE queue_id = ? GROUP BY status`, queueID)
	if err != nil {
		return Counts{}, services.Wrap(services.ErrStore, "queue", "count items", "query counts", err)
	}
	defer rows.Close()

	var counts Counts
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Counts{}, services.Wrap(services.ErrStore, "queue", "count items", "scan count", err)
		}
		counts.Total += count
		switch Status(status) {
		case StatusPending:
			counts.Pending = count
		case StatusDownloading:
			counts.Downloading = count
		case StatusCompleted:
			counts.Completed = count
		case StatusFailed:
			counts.Failed = count
		case StatusSkipped:
			counts.Skipped = count
		}
	}
	if err := rows.Err(); err != nil {
		return Counts{}, services.Wrap(services.ErrStore, "queue", "count items", "iterate counts", err)
	}
	return counts, nil
}

// MarkDownloading transitions an item from pending or failed to downloading.
// The transition is guarded so a stale caller cannot clobber a completed or
// skipped item.
func (s *Store) MarkDownloading(ctx context.Context, itemID string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE download_items SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusDownloading, timestamp, itemID, StatusPending, StatusFailed,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "mark downloading", "update item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "mark downloading", "rows affected", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", "mark downloading",
			fmt.Sprintf("item %s is not eligible for download", itemID), nil)
	}
	return nil
}

// Outcome is the terminal result of one download attempt.
type Outcome struct {
	Status        Status
	ErrorKind     string
	ErrorMessage  string
	FilePath      string
	FileSizeBytes int64
}

// RecordOutcome writes the terminal state of an attempt in a single update
// and increments the attempt counter. Completed outcomes stamp completed_at;
// failed outcomes keep the error classification for later inspection.
func (s *Store) RecordOutcome(ctx context.Context, itemID string, outcome Outcome) error {
	switch outcome.Status {
	case StatusCompleted, StatusFailed:
	default:
		return services.Wrap(services.ErrValidation, "queue", "record outcome",
			fmt.Sprintf("status %q is not a terminal attempt outcome", outcome.Status), nil)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	var completedAt any
	if outcome.Status == StatusCompleted {
		completedAt = timestamp
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE download_items
         SET status = ?, attempts = attempts + 1, error_kind = ?, error_message = ?,
             file_path = ?, file_size_bytes = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		nullableString(outcome.FilePath),
		outcome.FileSizeBytes,
		timestamp,
		completedAt,
		itemID,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "record outcome", "update item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "record outcome", "rows affected", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", "record outcome",
			fmt.Sprintf("item %s not found", itemID), nil)
	}
	return nil
}

// ResetToPending returns every non-skipped item in the queue to pending and
// clears prior error state. Used by full re-downloads.
func (s *Store) ResetToPending(ctx context.Context, queueID string) (int, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE download_items
         SET status = ?, error_kind = NULL, error_message = NULL, completed_at = NULL, updated_at = ?
         WHERE queue_id = ? AND status != ?`,
		StatusPending, timestamp, queueID, StatusSkipped,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "reset to pending", "update items", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "reset to pending", "rows affected", err)
	}
	return int(affected), nil
}

// ResetFailedToPending returns failed items to pending for a retry pass.
func (s *Store) ResetFailedToPending(ctx context.Context, queueID string) (int, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE download_items
         SET status = ?, error_kind = NULL, error_message = NULL, updated_at = ?
         WHERE queue_id = ? AND status = ?`,
		StatusPending, timestamp, queueID, StatusFailed,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "reset failed", "update items", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "reset failed", "rows affected", err)
	}
	return int(affected), nil
}

// ResetStuckDownloading returns items stranded in the downloading state to
// pending. A previous process that died mid-download leaves items this way;
// recovery runs before each queue run.
func (s *Store) ResetStuckDownloading(ctx context.Context, queueID string) (int, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE download_items SET status = ?, updated_at = ?
         WHERE queue_id = ? AND status = ?`,
		StatusPending, timestamp, queueID, StatusDownloading,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "reset stuck", "update items", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "queue", "reset stuck", "rows affected", err)
	}
	return int(affected), nil
}

// SetSkipped marks an item skipped, or returns a previously skipped item to
// pending. Completed items cannot be skipped.
func (s *Store) SetSkipped(ctx context.Context, itemID string, skipped bool) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var (
		res sql.Result
		err error
	)
	if skipped {
		res, err = s.db.ExecContext(ctx,
			`UPDATE download_items SET status = ?, updated_at = ?
             WHERE id = ? AND status IN (?, ?)`,
			StatusSkipped, timestamp, itemID, StatusPending, StatusFailed,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE download_items SET status = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusPending, timestamp, itemID, StatusSkipped,
		)
	}
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "set skipped", "update item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "set skipped", "rows affected", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", "set skipped",
			fmt.Sprintf("item %s is not in a skippable state", itemID), nil)
	}
	return nil
}
