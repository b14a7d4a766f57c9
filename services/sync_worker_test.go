package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BirdScout/bird-scout-backend/store/sqlite"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkerStore(t *testing.T, maxAttempts int) *sqlite.SyncTaskStore {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewSyncTaskStore(db, maxAttempts)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSyncWorkerCompletesTask(t *testing.T) {
	ctx := context.Background()
	tasks := newWorkerStore(t, 5)

	var handled atomic.Int32
	worker := NewSyncWorker(tasks, SyncWorkerConfig{PollInterval: time.Hour, BatchSize: 10, ShutdownTimeout: 5 * time.Second}, nil)
	worker.Register(types.SyncTaskTourJoinRequest, func(ctx context.Context, task *types.SyncTask) error {
		handled.Add(1)
		return nil
	})

	id, err := tasks.Enqueue(ctx, types.SyncTaskTourJoinRequest, "p-1", []byte(`{"tourId":"t1"}`))
	require.NoError(t, err)

	require.NoError(t, worker.Start(ctx))
	defer func() { _ = worker.Stop() }()

	// The initial drain runs before the first tick, no Poke needed.
	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })

	task, err := tasks.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SyncTaskStatusCompleted, task.Status)
	assert.Equal(t, 1, task.Attempts)
}

func TestSyncWorkerPokeTriggersDrain(t *testing.T) {
	ctx := context.Background()
	tasks := newWorkerStore(t, 5)

	var handled atomic.Int32
	worker := NewSyncWorker(tasks, SyncWorkerConfig{PollInterval: time.Hour, BatchSize: 10, ShutdownTimeout: 5 * time.Second}, nil)
	worker.Register(types.SyncTaskSightingReport, func(ctx context.Context, task *types.SyncTask) error {
		handled.Add(1)
		return nil
	})

	require.NoError(t, worker.Start(ctx))
	defer func() { _ = worker.Stop() }()
	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 0 })

	_, err := tasks.Enqueue(ctx, types.SyncTaskSightingReport, "s-1", []byte(`{}`))
	require.NoError(t, err)
	worker.Poke()

	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })
}

func TestSyncWorkerSchedulesRetryOnFailure(t *testing.T) {
	ctx := context.Background()
	tasks := newWorkerStore(t, 5)

	worker := NewSyncWorker(tasks, SyncWorkerConfig{PollInterval: time.Hour, BatchSize: 10, ShutdownTimeout: 5 * time.Second}, nil)
	worker.Register(types.SyncTaskTourJoinRequest, func(ctx context.Context, task *types.SyncTask) error {
		return errors.New("backend unreachable")
	})

	id, err := tasks.Enqueue(ctx, types.SyncTaskTourJoinRequest, "p-1", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, worker.Start(ctx))
	defer func() { _ = worker.Stop() }()

	waitFor(t, 2*time.Second, func() bool {
		task, err := tasks.GetTask(ctx, id)
		return err == nil && task.Attempts == 1 && task.Status == types.SyncTaskStatusPending
	})

	task, err := tasks.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "backend unreachable", task.LastError)
	require.NotNil(t, task.NextAttemptAt)
	assert.True(t, task.NextAttemptAt.After(time.Now()), "retry must be scheduled in the future")

	// Not due yet: further drains must leave the task alone.
	worker.Poke()
	time.Sleep(100 * time.Millisecond)
	task, err = tasks.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, task.Attempts)
}

func TestSyncWorkerParksExhaustedTask(t *testing.T) {
	ctx := context.Background()
	tasks := newWorkerStore(t, 1)

	worker := NewSyncWorker(tasks, SyncWorkerConfig{PollInterval: time.Hour, BatchSize: 10, ShutdownTimeout: 5 * time.Second}, nil)
	worker.Register(types.SyncTaskUserRoleChange, func(ctx context.Context, task *types.SyncTask) error {
		return errors.New("permanent failure")
	})

	id, err := tasks.Enqueue(ctx, types.SyncTaskUserRoleChange, "u-1", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, worker.Start(ctx))
	defer func() { _ = worker.Stop() }()

	waitFor(t, 2*time.Second, func() bool {
		task, err := tasks.GetTask(ctx, id)
		return err == nil && task.Status == types.SyncTaskStatusFailed
	})

	failed, err := tasks.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].ID)
	assert.Nil(t, failed[0].NextAttemptAt, "exhausted tasks wait for a manual retry")
}

func TestSyncWorkerParksUnhandledTaskType(t *testing.T) {
	ctx := context.Background()
	tasks := newWorkerStore(t, 5)

	worker := NewSyncWorker(tasks, SyncWorkerConfig{PollInterval: time.Hour, BatchSize: 10, ShutdownTimeout: 5 * time.Second}, nil)
	// No handler registered for this type.

	id, err := tasks.Enqueue(ctx, types.SyncTaskMediaUpload, "m-1", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, worker.Start(ctx))
	defer func() { _ = worker.Stop() }()

	waitFor(t, 2*time.Second, func() bool {
		task, err := tasks.GetTask(ctx, id)
		return err == nil && task.Status == types.SyncTaskStatusFailed
	})

	task, err := tasks.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "no handler registered", task.LastError)
}

func TestSyncWorkerManualRetryRunsAgain(t *testing.T) {
	ctx := context.Background()
	tasks := newWorkerStore(t, 1)

	var fail atomic.Bool
	fail.Store(true)
	worker := NewSyncWorker(tasks, SyncWorkerConfig{PollInterval: time.Hour, BatchSize: 10, ShutdownTimeout: 5 * time.Second}, nil)
	worker.Register(types.SyncTaskTourParticipantUpdate, func(ctx context.Context, task *types.SyncTask) error {
		if fail.Load() {
			return errors.New("transient outage")
		}
		return nil
	})

	id, err := tasks.Enqueue(ctx, types.SyncTaskTourParticipantUpdate, "p-1", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, worker.Start(ctx))
	defer func() { _ = worker.Stop() }()

	waitFor(t, 2*time.Second, func() bool {
		task, err := tasks.GetTask(ctx, id)
		return err == nil && task.Status == types.SyncTaskStatusFailed
	})

	fail.Store(false)
	require.NoError(t, tasks.RetryFailed(ctx, id))
	worker.Poke()

	waitFor(t, 2*time.Second, func() bool {
		task, err := tasks.GetTask(ctx, id)
		return err == nil && task.Status == types.SyncTaskStatusCompleted
	})
}

func TestSyncWorkerStartTwice(t *testing.T) {
	tasks := newWorkerStore(t, 5)
	worker := NewSyncWorker(tasks, DefaultSyncWorkerConfig(), nil)

	require.NoError(t, worker.Start(context.Background()))
	defer func() { _ = worker.Stop() }()
	assert.Error(t, worker.Start(context.Background()))
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 4*time.Second, backoffDelay(2))
	assert.Equal(t, 8*time.Second, backoffDelay(3))
	assert.Equal(t, 2*time.Second, backoffDelay(0), "attempts are clamped to at least one")
	assert.Equal(t, 5*time.Minute, backoffDelay(20), "delay is capped")
}
