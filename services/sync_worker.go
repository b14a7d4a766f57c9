package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// SyncHandler executes one queued task against the cloud backend.
type SyncHandler func(ctx context.Context, task *types.SyncTask) error

// SyncWorkerConfig controls the drain loop.
type SyncWorkerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	ShutdownTimeout time.Duration
}

// DefaultSyncWorkerConfig returns sane defaults for the drain loop.
func DefaultSyncWorkerConfig() SyncWorkerConfig {
	return SyncWorkerConfig{
		PollInterval:    15 * time.Second,
		BatchSize:       20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// SyncWorker drains the durable task queue: it polls for due pending tasks,
// dispatches each to the handler registered for its type, and records the
// outcome. Failures reschedule the task with exponential backoff until its
// attempt budget runs out, after which the task parks in the failed state
// awaiting a manual retry.
type SyncWorker struct {
	tasks    store.SyncTaskStore
	handlers map[types.SyncTaskType]SyncHandler
	config   SyncWorkerConfig
	logger   *zap.SugaredLogger

	metrics *syncMetrics

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	wakeup  chan struct{}
}

type syncMetrics struct {
	processed *prometheus.CounterVec
	retries   prometheus.Counter
	exhausted prometheus.Counter
	duration  prometheus.Histogram
}

func newSyncMetrics(reg prometheus.Registerer) *syncMetrics {
	m := &syncMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "birdscout",
			Subsystem: "sync",
			Name:      "tasks_processed_total",
			Help:      "Sync tasks processed, by type and outcome.",
		}, []string{"type", "outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "birdscout",
			Subsystem: "sync",
			Name:      "task_retries_total",
			Help:      "Sync task attempts that were rescheduled with backoff.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "birdscout",
			Subsystem: "sync",
			Name:      "tasks_exhausted_total",
			Help:      "Sync tasks that ran out of attempts and were parked as failed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "birdscout",
			Subsystem: "sync",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual sync task executions.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.processed, m.retries, m.exhausted, m.duration)
	}
	return m
}

// NewSyncWorker creates a drain worker. Register handlers before Start.
func NewSyncWorker(tasks store.SyncTaskStore, cfg SyncWorkerConfig, reg prometheus.Registerer) *SyncWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultSyncWorkerConfig().PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultSyncWorkerConfig().BatchSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultSyncWorkerConfig().ShutdownTimeout
	}
	return &SyncWorker{
		tasks:    tasks,
		handlers: make(map[types.SyncTaskType]SyncHandler),
		config:   cfg,
		logger:   logger.GetLogger().Named("syncworker"),
		metrics:  newSyncMetrics(reg),
		wakeup:   make(chan struct{}, 1),
	}
}

// Register binds a handler to a task type. Must be called before Start.
func (w *SyncWorker) Register(taskType types.SyncTaskType, handler SyncHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		panic("sync worker: Register called after Start")
	}
	w.handlers[taskType] = handler
}

// Start launches the drain loop.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("sync worker already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	go w.run(loopCtx)
	w.logger.Infow("Sync worker started",
		"pollInterval", w.config.PollInterval,
		"batchSize", w.config.BatchSize)
	return nil
}

// Stop halts the loop and waits for the in-flight batch to finish, up to the
// configured shutdown timeout.
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	done := w.done
	w.started = false
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		w.logger.Info("Sync worker stopped")
		return nil
	case <-time.After(w.config.ShutdownTimeout):
		return fmt.Errorf("sync worker shutdown timed out after %s", w.config.ShutdownTimeout)
	}
}

// Poke asks the worker to drain immediately instead of waiting for the next
// tick. Coordinators call it right after enqueueing.
func (w *SyncWorker) Poke() {
	select {
	case w.wakeup <- struct{}{}:
	default:
	}
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain whatever survived the last shutdown before the first tick.
	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.wakeup:
			w.drain(ctx)
		}
	}
}

func (w *SyncWorker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := w.tasks.GetPending(ctx, w.config.BatchSize)
		if err != nil {
			w.logger.Errorw("Failed to load pending sync tasks", "error", err)
			return
		}
		if len(batch) == 0 {
			return
		}
		for _, task := range batch {
			if ctx.Err() != nil {
				return
			}
			w.process(ctx, task)
		}
		if len(batch) < w.config.BatchSize {
			return
		}
	}
}

func (w *SyncWorker) process(ctx context.Context, task *types.SyncTask) {
	handler, ok := w.handlers[task.Type]
	if !ok {
		// A task type this build does not understand stays queued rather than
		// being dropped: park it as exhausted so it surfaces in ListFailed.
		w.logger.Errorw("No handler for sync task type", "taskID", task.ID, "type", task.Type)
		if err := w.tasks.MarkFailed(ctx, task.ID, task.MaxAttempts, "no handler registered", nil); err != nil {
			w.logger.Errorw("Failed to park unhandled task", "taskID", task.ID, "error", err)
		}
		return
	}

	attempts := task.Attempts + 1
	if err := w.tasks.MarkRunning(ctx, task.ID, attempts); err != nil {
		w.logger.Errorw("Failed to mark task running", "taskID", task.ID, "error", err)
		return
	}

	start := time.Now()
	err := handler(ctx, task)
	w.metrics.duration.Observe(time.Since(start).Seconds())

	if err == nil {
		if err := w.tasks.MarkCompleted(ctx, task.ID); err != nil {
			w.logger.Errorw("Failed to mark task completed", "taskID", task.ID, "error", err)
			return
		}
		w.metrics.processed.WithLabelValues(string(task.Type), "completed").Inc()
		w.logger.Debugw("Sync task completed", "taskID", task.ID, "type", task.Type, "attempts", attempts)
		return
	}

	var nextAttemptAt *time.Time
	if attempts < task.MaxAttempts {
		next := time.Now().Add(backoffDelay(attempts))
		nextAttemptAt = &next
		w.metrics.retries.Inc()
		w.logger.Warnw("Sync task failed, retry scheduled",
			"taskID", task.ID, "type", task.Type,
			"attempts", attempts, "maxAttempts", task.MaxAttempts,
			"nextAttemptAt", next, "error", err)
	} else {
		w.metrics.exhausted.Inc()
		w.logger.Errorw("Sync task exhausted its attempts",
			"taskID", task.ID, "type", task.Type, "attempts", attempts, "error", err)
	}
	w.metrics.processed.WithLabelValues(string(task.Type), "failed").Inc()

	if markErr := w.tasks.MarkFailed(ctx, task.ID, attempts, err.Error(), nextAttemptAt); markErr != nil {
		w.logger.Errorw("Failed to record task failure", "taskID", task.ID, "error", markErr)
	}
}

// backoffDelay doubles per attempt starting at 2s, capped at 5 minutes.
func backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(1<<uint(attempts)) * time.Second
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
