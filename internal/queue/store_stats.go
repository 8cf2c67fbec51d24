package queue

import (
	"context"
	"time"

	"spool/internal/services"
)

// statDate formats a timestamp as the stats table's day key.
func statDate(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

// RecordCompleted adds one completed download and its size to today's stats.
func (s *Store) RecordCompleted(ctx context.Context, at time.Time, sizeBytes int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO download_stats (date, items_completed, items_failed, bytes_downloaded)
         VALUES (?, 1, 0, ?)
         ON CONFLICT (date) DO UPDATE SET
             items_completed = items_completed + 1,
             bytes_downloaded = bytes_downloaded + excluded.bytes_downloaded`,
		statDate(at), sizeBytes,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "record completed", "upsert stats", err)
	}
	return nil
}

// RecordFailed adds one failed download to today's stats.
func (s *Store) RecordFailed(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO download_stats (date, items_completed, items_failed, bytes_downloaded)
         VALUES (?, 0, 1, 0)
         ON CONFLICT (date) DO UPDATE SET items_failed = items_failed + 1`,
		statDate(at),
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "queue", "record failed", "upsert stats", err)
	}
	return nil
}

// Stats returns daily download statistics, most recent day first, capped at
// the given number of days. A zero limit returns everything.
func (s *Store) Stats(ctx context.Context, limit int) ([]DailyStat, error) {
	query := `SELECT date, items_completed, items_failed, bytes_downloaded
        FROM download_stats ORDER BY date DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "stats", "query stats", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var stat DailyStat
		if err := rows.Scan(&stat.Date, &stat.ItemsCompleted, &stat.ItemsFailed, &stat.BytesDownloaded); err != nil {
			return nil, services.Wrap(services.ErrStore, "queue", "stats", "scan stats", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "queue", "stats", "iterate stats", err)
	}
	return stats, nil
}
