package sqlite_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/store/sqlite"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTaskLifecycle(t *testing.T) {
	db := openTestDB(t)
	s := sqlite.NewSyncTaskStore(db, 3)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, types.SyncTaskTourJoinRequest, "p-1", []byte(`{"tourId":"t1"}`))
	require.NoError(t, err)

	pending, err := s.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, 3, pending[0].MaxAttempts)

	require.NoError(t, s.MarkRunning(ctx, id, 1))
	pending, err = s.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "running tasks are not pending")

	require.NoError(t, s.MarkCompleted(ctx, id))
	task, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SyncTaskStatusCompleted, task.Status)

	removed, err := s.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSyncTaskRetryWithBackoff(t *testing.T) {
	db := openTestDB(t)
	s := sqlite.NewSyncTaskStore(db, 3)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, types.SyncTaskUserRoleChange, "user-1", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, s.MarkRunning(ctx, id, 1))
	next := time.Now().Add(time.Hour)
	require.NoError(t, s.MarkFailed(ctx, id, 1, "backend down", &next))

	task, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SyncTaskStatusPending, task.Status, "attempts remain, so back to pending")
	assert.Equal(t, "backend down", task.LastError)
	require.NotNil(t, task.NextAttemptAt)

	pending, err := s.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "not due until the scheduled retry time")

	due := time.Now().Add(-time.Minute)
	require.NoError(t, s.MarkFailed(ctx, id, 2, "backend down", &due))
	pending, err = s.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "past-due retries are served")
}

func TestSyncTaskExhaustionAndManualRetry(t *testing.T) {
	db := openTestDB(t)
	s := sqlite.NewSyncTaskStore(db, 2)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, types.SyncTaskSightingReport, "s-1", []byte(`{}`))
	require.NoError(t, err)

	next := time.Now().Add(time.Second)
	require.NoError(t, s.MarkFailed(ctx, id, 2, "still down", &next))

	task, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SyncTaskStatusFailed, task.Status, "attempt budget exhausted")

	failed, err := s.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	require.NoError(t, s.RetryFailed(ctx, id))
	task, err = s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SyncTaskStatusPending, task.Status)
	assert.Equal(t, 0, task.Attempts)

	// only terminally failed tasks can be manually retried
	err = s.RetryFailed(ctx, id)
	assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
}

func TestHasPendingForUser(t *testing.T) {
	db := openTestDB(t)
	s := sqlite.NewSyncTaskStore(db, 3)
	ctx := context.Background()

	has, err := s.HasPendingForUser(ctx, types.SyncTaskUserRoleChange, "user-1")
	require.NoError(t, err)
	assert.False(t, has)

	id, err := s.Enqueue(ctx, types.SyncTaskUserRoleChange, "user-1", []byte(`{}`))
	require.NoError(t, err)

	has, err = s.HasPendingForUser(ctx, types.SyncTaskUserRoleChange, "user-1")
	require.NoError(t, err)
	assert.True(t, has)

	// a different task type for the same user does not count
	has, err = s.HasPendingForUser(ctx, types.SyncTaskMediaUpload, "user-1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.MarkRunning(ctx, id, 1))
	has, err = s.HasPendingForUser(ctx, types.SyncTaskUserRoleChange, "user-1")
	require.NoError(t, err)
	assert.True(t, has, "running still blocks reconciliation")

	require.NoError(t, s.MarkCompleted(ctx, id))
	has, err = s.HasPendingForUser(ctx, types.SyncTaskUserRoleChange, "user-1")
	require.NoError(t, err)
	assert.False(t, has)
}
