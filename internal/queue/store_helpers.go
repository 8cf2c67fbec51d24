package queue

import (
	"database/sql"
	"errors"
	"time"
)

const queueColumns = "id, source_url, title, media_kind, quality, container, output_dir, filename_template, download_order, batch_start, batch_size, status, created_at, updated_at"

const itemColumns = "id, queue_id, position, external_id, url, title, uploader, upload_date, duration_seconds, status, attempts, error_kind, error_message, file_path, file_size_bytes, created_at, updated_at, completed_at"

func scanQueue(scanner interface{ Scan(dest ...any) error }) (*Queue, error) {
	var (
		id         string
		sourceURL  string
		title      sql.NullString
		mediaKind  string
		quality    string
		container  sql.NullString
		outputDir  sql.NullString
		template   sql.NullString
		order      string
		batchStart int
		batchSize  int
		statusStr  string
		createdRaw string
		updatedRaw string
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&title,
		&mediaKind,
		&quality,
		&container,
		&outputDir,
		&template,
		&order,
		&batchStart,
		&batchSize,
		&statusStr,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	q := &Queue{
		ID:               id,
		SourceURL:        sourceURL,
		Title:            title.String,
		MediaKind:        mediaKind,
		Quality:          quality,
		Container:        container.String,
		OutputDir:        outputDir.String,
		FilenameTemplate: template.String,
		DownloadOrder:    order,
		BatchStart:       batchStart,
		BatchSize:        batchSize,
		Status:           QueueStatus(statusStr),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		q.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		q.UpdatedAt = updated
	}
	return q, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           string
		queueID      string
		position     int
		externalID   string
		url          string
		title        sql.NullString
		uploader     sql.NullString
		uploadDate   sql.NullString
		duration     sql.NullInt64
		statusStr    string
		attempts     int
		errorKind    sql.NullString
		errorMessage sql.NullString
		filePath     sql.NullString
		fileSize     sql.NullInt64
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&queueID,
		&position,
		&externalID,
		&url,
		&title,
		&uploader,
		&uploadDate,
		&duration,
		&statusStr,
		&attempts,
		&errorKind,
		&errorMessage,
		&filePath,
		&fileSize,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		QueueID:         queueID,
		Position:        position,
		ExternalID:      externalID,
		URL:             url,
		Title:           title.String,
		Uploader:        uploader.String,
		UploadDate:      uploadDate.String,
		DurationSeconds: duration.Int64,
		Status:          Status(statusStr),
		Attempts:        attempts,
		ErrorKind:       errorKind.String,
		ErrorMessage:    errorMessage.String,
		FilePath:        filePath.String,
		FileSizeBytes:   fileSize.Int64,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
