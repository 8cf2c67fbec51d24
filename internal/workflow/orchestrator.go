package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"spool/internal/config"
	"spool/internal/download"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/pacing"
	"spool/internal/queue"
	"spool/internal/services"
)

// Store is the subset of queue persistence the orchestrator needs.
type Store interface {
	GetQueue(ctx context.Context, id string) (*queue.Queue, error)
	UpdateQueueStatus(ctx context.Context, id string, status queue.QueueStatus) error
	PendingItems(ctx context.Context, queueID string, offset, limit int) ([]*queue.Item, error)
	CountItems(ctx context.Context, queueID string) (queue.Counts, error)
	ResetToPending(ctx context.Context, queueID string) (int, error)
	ResetStuckDownloading(ctx context.Context, queueID string) (int, error)
}

// ItemProcessor runs one download attempt. download.Executor satisfies it.
type ItemProcessor interface {
	Process(ctx context.Context, q *queue.Queue, item *queue.Item, proxy string) (download.ItemResult, error)
}

// RunOptions modifies how a run selects its work.
type RunOptions struct {
	// DownloadAll returns every non-skipped item to pending before the run,
	// forcing a full re-download. Skipped items stay skipped.
	DownloadAll bool
}

// RunStats summarizes one run.
type RunStats struct {
	Attempted       int
	Completed       int
	Failed          int
	BytesDownloaded int64
	Recovered       int
	Duration        time.Duration
	FinalStatus     queue.QueueStatus
}

// Orchestrator coordinates queue runs.
type Orchestrator struct {
	store     Store
	processor ItemProcessor
	notifier  notifications.Service
	cfg       *config.Config
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// New wires an orchestrator from its dependencies.
func New(store Store, processor ItemProcessor, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{
		store:     store,
		processor: processor,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		active:    make(map[string]struct{}),
	}
}

// Run processes a queue until its pending window is drained or the context
// is cancelled. Exactly one run per queue may be active at a time, across
// processes.
func (o *Orchestrator) Run(ctx context.Context, queueID string, opts RunOptions) (RunStats, error) {
	var stats RunStats
	started := time.Now()

	q, err := o.store.GetQueue(ctx, queueID)
	if err != nil {
		return stats, err
	}
	if q == nil {
		return stats, services.Wrap(services.ErrValidation, "workflow", "run",
			fmt.Sprintf("queue %s not found", queueID), nil)
	}

	unlock, err := o.acquireRunLock(q.ID)
	if err != nil {
		return stats, err
	}
	defer unlock()

	// Pacing configuration is validated before any state changes so a bad
	// config never strands a queue in running.
	pacingCfg := o.cfg.Pacing
	pacingCfg.Proxies, err = pacing.EffectiveProxies(pacingCfg)
	if err != nil {
		return stats, err
	}
	policy, err := pacing.NewPolicy(pacingCfg)
	if err != nil {
		return stats, err
	}

	ctx = services.WithQueueID(ctx, q.ID)
	logger := logging.WithContext(ctx, o.logger)

	if opts.DownloadAll {
		reset, err := o.store.ResetToPending(ctx, q.ID)
		if err != nil {
			return stats, err
		}
		logger.Info("full re-download requested",
			logging.String(logging.FieldEventType, "queue_reset"),
			logging.Int("items_reset", reset))
	}

	recovered, err := o.store.ResetStuckDownloading(ctx, q.ID)
	if err != nil {
		return stats, err
	}
	stats.Recovered = recovered
	if recovered > 0 {
		logger.Warn("recovered items stranded by a previous run",
			logging.String(logging.FieldEventType, "stuck_recovery"),
			logging.Int("items_recovered", recovered))
	}

	pending, err := o.store.PendingItems(ctx, q.ID, q.BatchStart, q.BatchSize)
	if err != nil {
		return stats, err
	}

	if err := o.store.UpdateQueueStatus(ctx, q.ID, queue.QueueRunning); err != nil {
		return stats, err
	}

	logger.Info("queue run started",
		logging.String(logging.FieldEventType, "queue_started"),
		logging.Int("pending", len(pending)),
		logging.Int("proxies", policy.ProxyCount()))
	if err := o.notifier.NotifyQueueStarted(ctx, q.Title, len(pending)); err != nil {
		logger.Warn("queue start notification failed", logging.Error(err))
	}

	thresholds := o.sizeThresholds()
	nextThreshold := 0

	for attempt, item := range pending {
		if err := ctx.Err(); err != nil {
			// Cancelled runs stay running; the next run resumes them.
			stats.Duration = time.Since(started)
			stats.FinalStatus = queue.QueueRunning
			return stats, err
		}

		directive := policy.Next(attempt)
		if attempt > 0 && directive.Delay > 0 {
			logger.Debug("pacing delay",
				logging.Duration("delay", directive.Delay))
			if err := sleepCtx(ctx, directive.Delay); err != nil {
				stats.Duration = time.Since(started)
				stats.FinalStatus = queue.QueueRunning
				return stats, err
			}
		}

		itemCtx := services.WithItemID(ctx, item.ID)
		itemCtx = services.WithAttempt(itemCtx, attempt)

		result, err := o.processor.Process(itemCtx, q, item, directive.Proxy)
		if err != nil {
			stats.Duration = time.Since(started)
			stats.FinalStatus = queue.QueueRunning
			if services.IsRunFatal(err) {
				if notifyErr := o.notifier.NotifyError(ctx, err, "queue run"); notifyErr != nil {
					logger.Warn("error notification failed", logging.Error(notifyErr))
				}
			}
			return stats, err
		}

		stats.Attempted++
		switch result.Status {
		case queue.StatusCompleted:
			stats.Completed++
			stats.BytesDownloaded += result.SizeBytes
			if notifyErr := o.notifier.NotifyItemCompleted(itemCtx, item.Title, result.SizeBytes); notifyErr != nil {
				logger.Warn("item notification failed", logging.Error(notifyErr))
			}
		case queue.StatusFailed:
			stats.Failed++
			if notifyErr := o.notifier.NotifyItemFailed(itemCtx, item.Title, result.ErrorKind, result.ErrorMessage); notifyErr != nil {
				logger.Warn("item notification failed", logging.Error(notifyErr))
			}
		}

		for nextThreshold < len(thresholds) && stats.BytesDownloaded >= thresholds[nextThreshold] {
			if notifyErr := o.notifier.NotifySizeThreshold(ctx, q.Title, stats.BytesDownloaded); notifyErr != nil {
				logger.Warn("threshold notification failed", logging.Error(notifyErr))
			}
			nextThreshold++
		}
	}

	counts, err := o.store.CountItems(ctx, q.ID)
	if err != nil {
		stats.Duration = time.Since(started)
		stats.FinalStatus = queue.QueueRunning
		return stats, err
	}

	final := queue.QueueCompleted
	if counts.Failed > 0 {
		final = queue.QueueFailed
	}
	if err := o.store.UpdateQueueStatus(ctx, q.ID, final); err != nil {
		stats.Duration = time.Since(started)
		stats.FinalStatus = queue.QueueRunning
		return stats, err
	}

	stats.Duration = time.Since(started)
	stats.FinalStatus = final
	logger.Info("queue run finished",
		logging.String(logging.FieldEventType, "queue_completed"),
		logging.Int("completed", stats.Completed),
		logging.Int("failed", stats.Failed),
		logging.Int64("bytes", stats.BytesDownloaded),
		logging.String("final_status", string(final)),
		logging.Duration("duration", stats.Duration))
	if err := o.notifier.NotifyQueueCompleted(ctx, q.Title, stats.Completed, stats.Failed, stats.Duration); err != nil {
		logger.Warn("queue completion notification failed", logging.Error(err))
	}

	return stats, nil
}

// acquireRunLock takes both the in-process and cross-process run locks for a
// queue. flock is re-entrant within a process, so the in-process registry
// catches double runs from the same binary.
func (o *Orchestrator) acquireRunLock(queueID string) (func(), error) {
	o.mu.Lock()
	if _, busy := o.active[queueID]; busy {
		o.mu.Unlock()
		return nil, services.Wrap(services.ErrConcurrentRun, "workflow", "run",
			fmt.Sprintf("queue %s already running in this process", queueID), nil)
	}
	o.active[queueID] = struct{}{}
	o.mu.Unlock()

	release := func() {
		o.mu.Lock()
		delete(o.active, queueID)
		o.mu.Unlock()
	}

	lockDir := o.cfg.LockDir()
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		release()
		return nil, services.Wrap(services.ErrStore, "workflow", "run", "create lock directory", err)
	}

	fileLock := flock.New(filepath.Join(lockDir, queueID+".lock"))
	ok, err := fileLock.TryLock()
	if err != nil {
		release()
		return nil, services.Wrap(services.ErrStore, "workflow", "run", "acquire run lock", err)
	}
	if !ok {
		release()
		return nil, services.Wrap(services.ErrConcurrentRun, "workflow", "run",
			fmt.Sprintf("queue %s is locked by another process", queueID), nil)
	}

	return func() {
		_ = fileLock.Unlock()
		release()
	}, nil
}

func (o *Orchestrator) sizeThresholds() []int64 {
	mb := o.cfg.Notifications.AlertThresholdsMB
	thresholds := make([]int64, 0, len(mb))
	for _, value := range mb {
		if value > 0 {
			thresholds = append(thresholds, int64(value)*1024*1024)
		}
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] < thresholds[j] })
	return thresholds
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
