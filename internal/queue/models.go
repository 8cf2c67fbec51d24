package queue

import (
	"strings"
	"time"
)

// QueueStatus represents the lifecycle of a queue as a whole.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueRunning   QueueStatus = "running"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
	QueueCancelled QueueStatus = "cancelled"
)

var allQueueStatuses = []QueueStatus{
	QueuePending,
	QueueRunning,
	QueueCompleted,
	QueueFailed,
	QueueCancelled,
}

// Status represents the lifecycle of a single download item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var queueStatusSet = func() map[QueueStatus]struct{} {
	set := make(map[QueueStatus]struct{}, len(allQueueStatuses))
	for _, status := range allQueueStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Queue represents a persisted download queue built from a playlist or
// channel URL.
type Queue struct {
	ID               string
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
	Status           QueueStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Item represents a single downloadable entry within a queue.
type Item struct {
	ID              string
	QueueID         string
	Position        int
	ExternalID      string
	URL             string
	Title           string
	Uploader        string
	UploadDate      string
	DurationSeconds int64
	Status          Status
	Attempts        int
	ErrorKind       string
	ErrorMessage    string
	FilePath        string
	FileSizeBytes   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// AllStatuses returns the ordered list of known item statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known item Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseQueueStatus converts a string into a known QueueStatus.
func ParseQueueStatus(value string) (QueueStatus, bool) {
	normalized := QueueStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := queueStatusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the item will not be touched by a plain resume.
func (i Item) IsTerminal() bool {
	switch i.Status {
	case StatusCompleted, StatusSkipped:
		return true
	default:
		return false
	}
}

// Counts aggregates item totals per status for a queue.
type Counts struct {
	Total       int
	Pending     int
	Downloading int
	Completed   int
	Failed      int
	Skipped     int
}

// Remaining returns the number of items a resume would still process.
func (c Counts) Remaining() int {
	return c.Pending + c.Downloading
}

// DailyStat captures one day of download activity.
type DailyStat struct {
	Date            string
	ItemsCompleted  int
	ItemsFailed     int
	BytesDownloaded int64
}
