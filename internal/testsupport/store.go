package testsupport

import (
	"context"
	"fmt"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewQueue creates a queue for tests using the provided store.
func NewQueue(t testing.TB, store *queue.Store, sourceURL string) *queue.Queue {
	t.Helper()

	q, err := store.CreateQueue(context.Background(), queue.NewQueueParams{
		SourceURL:     sourceURL,
		Title:         "Test Playlist",
		MediaKind:     "video",
		Quality:       "best",
		DownloadOrder: "playlist",
	})
	if err != nil {
		t.Fatalf("store.CreateQueue: %v", err)
	}
	return q
}

// SeedItems adds sequential playlist entries to a queue for tests.
func SeedItems(t testing.TB, store *queue.Store, queueID string, count int) []*queue.Item {
	t.Helper()

	entries := make([]queue.NewItemParams, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, queue.NewItemParams{
			Position:   i,
			ExternalID: itemExternalID(i),
			URL:        "https://example.com/watch?v=" + itemExternalID(i),
			Title:      "Video " + itemExternalID(i),
		})
	}
	if _, err := store.AddItems(context.Background(), queueID, entries); err != nil {
		t.Fatalf("store.AddItems: %v", err)
	}

	items, err := store.ListItems(context.Background(), queueID)
	if err != nil {
		t.Fatalf("store.ListItems: %v", err)
	}
	return items
}

func itemExternalID(i int) string {
	return fmt.Sprintf("vid-%03d", i)
}
