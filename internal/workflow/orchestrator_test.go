package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/download"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/testsupport"
	"spool/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

func (r *recordingNotifier) NotifyQueueStarted(ctx context.Context, title string, pending int) error {
	r.record("queue_started")
	return nil
}

func (r *recordingNotifier) NotifyQueueCompleted(ctx context.Context, title string, completed, failed int, duration time.Duration) error {
	r.record("queue_completed")
	return nil
}

func (r *recordingNotifier) NotifyItemCompleted(ctx context.Context, title string, size int64) error {
	r.record("item_completed")
	return nil
}

func (r *recordingNotifier) NotifyItemFailed(ctx context.Context, title, kind, message string) error {
	r.record("item_failed")
	return nil
}

func (r *recordingNotifier) NotifySizeThreshold(ctx context.Context, title string, total int64) error {
	r.record("size_threshold")
	return nil
}

func (r *recordingNotifier) NotifyError(ctx context.Context, err error, label string) error {
	r.record("error")
	return nil
}

func (r *recordingNotifier) TestNotification(ctx context.Context) error {
	r.record("test")
	return nil
}

var _ notifications.Service = (*recordingNotifier)(nil)

// scriptedExtractor fails the URLs listed in failures and succeeds otherwise.
type scriptedExtractor struct {
	mu       sync.Mutex
	failures map[string]error
	size     int64
	proxies  []string
	block    chan struct{}
}

func (s *scriptedExtractor) Download(ctx context.Context, req download.Request) (download.Result, error) {
	s.mu.Lock()
	s.proxies = append(s.proxies, req.Proxy)
	block := s.block
	failure := s.failures[req.URL]
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return download.Result{}, ctx.Err()
		}
	}
	if failure != nil {
		return download.Result{}, failure
	}
	size := s.size
	if size == 0 {
		size = 100
	}
	return download.Result{FilePath: "/downloads/" + req.Filename + ".mp4", SizeBytes: size}, nil
}

func (s *scriptedExtractor) Proxies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.proxies...)
}

type fixture struct {
	cfg      *config.Config
	store    *queue.Store
	notifier *recordingNotifier
	orch     *workflow.Orchestrator
}

func newFixture(t *testing.T, extractor download.Extractor, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	executor := download.NewExecutor(store, extractor, cfg, logging.NewNop())
	notifier := &recordingNotifier{}
	orch := workflow.New(store, executor, notifier, cfg, logging.NewNop())
	return &fixture{cfg: cfg, store: store, notifier: notifier, orch: orch}
}

func TestRunCompletesQueue(t *testing.T) {
	f := newFixture(t, &scriptedExtractor{})
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL1")
	testsupport.SeedItems(t, f.store, q.ID, 5)

	stats, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Attempted != 5 || stats.Completed != 5 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.FinalStatus != queue.QueueCompleted {
		t.Fatalf("final status = %s", stats.FinalStatus)
	}

	fetched, err := f.store.GetQueue(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if fetched.Status != queue.QueueCompleted {
		t.Fatalf("queue status = %s", fetched.Status)
	}

	events := f.notifier.Events()
	if events[0] != "queue_started" || events[len(events)-1] != "queue_completed" {
		t.Fatalf("unexpected event order: %v", events)
	}
}

func TestRunMarksQueueFailedWhenItemsFail(t *testing.T) {
	extractor := &scriptedExtractor{failures: map[string]error{
		"https://example.com/watch?v=vid-001": errors.New("ERROR: Private video"),
	}}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL2")
	testsupport.SeedItems(t, f.store, q.ID, 3)

	stats, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Completed != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.FinalStatus != queue.QueueFailed {
		t.Fatalf("final status = %s", stats.FinalStatus)
	}

	items, err := f.store.ListItems(context.Background(), q.ID, queue.StatusFailed)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].ErrorKind != "permanent" {
		t.Fatalf("failed item not classified: %#v", items)
	}
}

func TestRunResumesOnlyPendingItems(t *testing.T) {
	extractor := &scriptedExtractor{}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL3")
	items := testsupport.SeedItems(t, f.store, q.ID, 4)

	// Simulate a previous partial run: first item done, second skipped.
	ctx := context.Background()
	if err := f.store.MarkDownloading(ctx, items[0].ID); err != nil {
		t.Fatalf("MarkDownloading failed: %v", err)
	}
	if err := f.store.RecordOutcome(ctx, items[0].ID, queue.Outcome{Status: queue.StatusCompleted}); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	if err := f.store.SetSkipped(ctx, items[1].ID, true); err != nil {
		t.Fatalf("SetSkipped failed: %v", err)
	}

	stats, err := f.orch.Run(ctx, q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Attempted != 2 {
		t.Fatalf("expected 2 attempts, got %+v", stats)
	}

	counts, err := f.store.CountItems(ctx, q.ID)
	if err != nil {
		t.Fatalf("CountItems failed: %v", err)
	}
	if counts.Completed != 3 || counts.Skipped != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}

func TestRunRetriesFailedItemsOnResume(t *testing.T) {
	extractor := &scriptedExtractor{failures: map[string]error{
		"https://example.com/watch?v=vid-001": errors.New("read: connection timed out"),
	}}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL12")
	testsupport.SeedItems(t, f.store, q.ID, 2)

	ctx := context.Background()
	stats, err := f.orch.Run(ctx, q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if stats.Failed != 1 || stats.FinalStatus != queue.QueueFailed {
		t.Fatalf("unexpected first run stats: %+v", stats)
	}

	// The flake clears; a plain resume picks the failed item back up.
	extractor.mu.Lock()
	extractor.failures = nil
	extractor.mu.Unlock()

	stats, err = f.orch.Run(ctx, q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("resume run failed: %v", err)
	}
	if stats.Attempted != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected resume stats: %+v", stats)
	}
	if stats.FinalStatus != queue.QueueCompleted {
		t.Fatalf("final status = %s", stats.FinalStatus)
	}

	items, err := f.store.ListItems(ctx, q.ID)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if items[0].Status != queue.StatusCompleted || items[0].Attempts != 2 {
		t.Fatalf("retried item: status=%s attempts=%d", items[0].Status, items[0].Attempts)
	}
}

func TestRunDownloadAllResetsExceptSkipped(t *testing.T) {
	extractor := &scriptedExtractor{}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL4")
	items := testsupport.SeedItems(t, f.store, q.ID, 3)

	ctx := context.Background()
	if err := f.store.MarkDownloading(ctx, items[0].ID); err != nil {
		t.Fatalf("MarkDownloading failed: %v", err)
	}
	if err := f.store.RecordOutcome(ctx, items[0].ID, queue.Outcome{Status: queue.StatusCompleted}); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	if err := f.store.SetSkipped(ctx, items[1].ID, true); err != nil {
		t.Fatalf("SetSkipped failed: %v", err)
	}

	stats, err := f.orch.Run(ctx, q.ID, workflow.RunOptions{DownloadAll: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Completed item re-downloaded, skipped item untouched.
	if stats.Attempted != 2 {
		t.Fatalf("expected 2 attempts, got %+v", stats)
	}

	counts, err := f.store.CountItems(ctx, q.ID)
	if err != nil {
		t.Fatalf("CountItems failed: %v", err)
	}
	if counts.Skipped != 1 || counts.Completed != 2 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}

func TestRunHonorsBatchWindow(t *testing.T) {
	extractor := &scriptedExtractor{}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL5")
	testsupport.SeedItems(t, f.store, q.ID, 10)

	ctx := context.Background()
	if err := f.store.UpdateQueueBatch(ctx, q.ID, 2, 3); err != nil {
		t.Fatalf("UpdateQueueBatch failed: %v", err)
	}

	stats, err := f.orch.Run(ctx, q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Attempted != 3 {
		t.Fatalf("expected 3 attempts in window, got %+v", stats)
	}

	completed, err := f.store.ListItems(ctx, q.ID, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(completed) != 3 || completed[0].Position != 2 || completed[2].Position != 4 {
		t.Fatalf("wrong window processed: %#v", completed)
	}
}

func TestRunRotatesProxies(t *testing.T) {
	extractor := &scriptedExtractor{}
	f := newFixture(t, extractor,
		testsupport.WithProxies("http://a:8080", "http://b:8080"),
		testsupport.WithRotation(2))
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL6")
	testsupport.SeedItems(t, f.store, q.ID, 6)

	if _, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	proxies := extractor.Proxies()
	want := []string{"http://a:8080", "http://a:8080", "http://b:8080", "http://b:8080", "http://a:8080", "http://a:8080"}
	if len(proxies) != len(want) {
		t.Fatalf("attempts = %d, want %d", len(proxies), len(want))
	}
	for i := range want {
		if proxies[i] != want[i] {
			t.Fatalf("attempt %d proxy = %q, want %q", i, proxies[i], want[i])
		}
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	extractor := &scriptedExtractor{block: block}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL7")
	testsupport.SeedItems(t, f.store, q.ID, 1)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{})
		firstDone <- err
	}()

	// Wait until the first run is inside the extractor.
	deadline := time.After(5 * time.Second)
	for len(extractor.Proxies()) == 0 {
		select {
		case <-deadline:
			t.Fatal("first run never reached the extractor")
		case <-time.After(10 * time.Millisecond):
		}
	}

	_, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{})
	if !errors.Is(err, services.ErrConcurrentRun) {
		t.Fatalf("expected concurrent run error, got %v", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestRunInvalidPacingAbortsBeforeItems(t *testing.T) {
	extractor := &scriptedExtractor{}
	f := newFixture(t, extractor)
	f.cfg.Pacing.RotationFrequency = 0

	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL8")
	testsupport.SeedItems(t, f.store, q.ID, 2)

	_, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	// No item was touched and the queue never entered running.
	fetched, err := f.store.GetQueue(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if fetched.Status != queue.QueuePending {
		t.Fatalf("queue status = %s", fetched.Status)
	}
	if calls := len(extractor.Proxies()); calls != 0 {
		t.Fatalf("extractor called %d times before abort", calls)
	}
}

func TestRunUnknownQueue(t *testing.T) {
	f := newFixture(t, &scriptedExtractor{})
	_, err := f.orch.Run(context.Background(), "no-such-queue", workflow.RunOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunCancellationLeavesQueueRunning(t *testing.T) {
	block := make(chan struct{})
	extractor := &scriptedExtractor{block: block}
	f := newFixture(t, extractor)
	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL9")
	testsupport.SeedItems(t, f.store, q.ID, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(ctx, q.ID, workflow.RunOptions{})
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for len(extractor.Proxies()) == 0 {
		select {
		case <-deadline:
			t.Fatal("run never reached the extractor")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	fetched, err := f.store.GetQueue(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if fetched.Status != queue.QueueRunning {
		t.Fatalf("cancelled run should leave queue running, got %s", fetched.Status)
	}

	// The next run recovers the stranded item and finishes the queue.
	extractor.mu.Lock()
	extractor.block = nil
	extractor.mu.Unlock()
	stats, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("resume run failed: %v", err)
	}
	if stats.Recovered != 1 {
		t.Fatalf("expected 1 recovered item, got %+v", stats)
	}
	if stats.FinalStatus != queue.QueueCompleted {
		t.Fatalf("final status = %s", stats.FinalStatus)
	}
}

func TestRunSizeThresholdNotifications(t *testing.T) {
	extractor := &scriptedExtractor{size: 600 * 1024 * 1024}
	f := newFixture(t, extractor)
	f.cfg.Notifications.AlertThresholdsMB = []int{500, 1000}

	q := testsupport.NewQueue(t, f.store, "https://example.com/playlist?list=PL10")
	testsupport.SeedItems(t, f.store, q.ID, 2)

	if _, err := f.orch.Run(context.Background(), q.ID, workflow.RunOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	thresholds := 0
	for _, event := range f.notifier.Events() {
		if event == "size_threshold" {
			thresholds++
		}
	}
	// 600MB crosses 500MB, 1200MB crosses 1000MB; each fires once.
	if thresholds != 2 {
		t.Fatalf("expected 2 threshold notifications, got %d", thresholds)
	}
}

type failingCountsStore struct {
	workflow.Store
}

func (f failingCountsStore) CountItems(ctx context.Context, queueID string) (queue.Counts, error) {
	return queue.Counts{}, services.Wrap(services.ErrStore, "queue", "count items", "disk full", nil)
}

func TestRunStoreFailureLeavesQueueRunning(t *testing.T) {
	extractor := &scriptedExtractor{}
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	executor := download.NewExecutor(store, extractor, cfg, logging.NewNop())
	notifier := &recordingNotifier{}
	orch := workflow.New(failingCountsStore{store}, executor, notifier, cfg, logging.NewNop())

	q := testsupport.NewQueue(t, store, "https://example.com/playlist?list=PL11")
	testsupport.SeedItems(t, store, q.ID, 1)

	_, err := orch.Run(context.Background(), q.ID, workflow.RunOptions{})
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}

	fetched, err := store.GetQueue(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if fetched.Status != queue.QueueRunning {
		t.Fatalf("store failure should leave queue running, got %s", fetched.Status)
	}
}
