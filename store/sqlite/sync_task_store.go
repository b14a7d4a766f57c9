package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
)

var _ store.SyncTaskStore = (*SyncTaskStore)(nil)

// DefaultMaxAttempts bounds automatic retries before a task is parked as
// failed and requires a manual retry.
const DefaultMaxAttempts = 5

// SyncTaskStore is the durable outbound mutation queue.
type SyncTaskStore struct {
	db          *DB
	maxAttempts int
}

func NewSyncTaskStore(db *DB, maxAttempts int) *SyncTaskStore {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &SyncTaskStore{db: db, maxAttempts: maxAttempts}
}

func (s *SyncTaskStore) Enqueue(ctx context.Context, taskType types.SyncTaskType, payloadID string, payload []byte) (int64, error) {
	now := nowMilli()
	res, err := s.db.conn.ExecContext(ctx, `
        INSERT INTO sync_tasks (type, payload_id, payload, status, attempts, max_attempts, created_at, updated_at)
        VALUES (?,?,?,?,0,?,?,?)`,
		string(taskType), payloadID, string(payload),
		string(types.SyncTaskStatusPending), s.maxAttempts, now, now)
	if err != nil {
		return 0, apperrors.NewDatabaseError(fmt.Errorf("enqueue sync task: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}
	return id, nil
}

const taskColumns = `id, type, payload_id, payload, status, attempts, max_attempts,
       next_attempt_at, last_error, created_at, updated_at`

// GetPending returns due pending tasks, oldest first, which is the intended
// consumption order for the drain worker.
func (s *SyncTaskStore) GetPending(ctx context.Context, limit int) ([]*types.SyncTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.QueryContext(ctx, `
        SELECT `+taskColumns+` FROM sync_tasks
        WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
        ORDER BY created_at ASC, id ASC
        LIMIT ?`,
		string(types.SyncTaskStatusPending), nowMilli(), limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get pending tasks: %w", err))
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SyncTaskStore) GetTask(ctx context.Context, id int64) (*types.SyncTask, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM sync_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("SyncTask", id)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get task: %w", err))
	}
	return task, nil
}

func (s *SyncTaskStore) MarkRunning(ctx context.Context, id int64, attempts int) error {
	return s.transition(ctx, id, `
        UPDATE sync_tasks SET status = ?, attempts = ?, updated_at = ? WHERE id = ?`,
		string(types.SyncTaskStatusRunning), attempts, nowMilli(), id)
}

func (s *SyncTaskStore) MarkCompleted(ctx context.Context, id int64) error {
	return s.transition(ctx, id, `
        UPDATE sync_tasks SET status = ?, last_error = '', next_attempt_at = NULL, updated_at = ? WHERE id = ?`,
		string(types.SyncTaskStatusCompleted), nowMilli(), id)
}

// MarkFailed records the attempt. With a retry time and attempts below the
// task's max the task goes back to pending; otherwise it is parked as failed.
func (s *SyncTaskStore) MarkFailed(ctx context.Context, id int64, attempts int, lastError string, nextAttemptAt *time.Time) error {
	status := types.SyncTaskStatusFailed
	var next sql.NullInt64
	if nextAttemptAt != nil {
		task, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if attempts < task.MaxAttempts {
			status = types.SyncTaskStatusPending
			next = sql.NullInt64{Int64: nextAttemptAt.UnixMilli(), Valid: true}
		}
	}
	return s.transition(ctx, id, `
        UPDATE sync_tasks SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
        WHERE id = ?`,
		string(status), attempts, lastError, next, nowMilli(), id)
}

// RetryFailed resets a terminally failed task for another round of attempts.
func (s *SyncTaskStore) RetryFailed(ctx context.Context, id int64) error {
	res, err := s.db.conn.ExecContext(ctx, `
        UPDATE sync_tasks SET status = ?, attempts = 0, last_error = '', next_attempt_at = NULL, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(types.SyncTaskStatusPending), nowMilli(), id, string(types.SyncTaskStatusFailed))
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("retry task: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if n == 0 {
		return apperrors.NotFound("Failed sync task", id)
	}
	return nil
}

func (s *SyncTaskStore) ListFailed(ctx context.Context) ([]*types.SyncTask, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
        SELECT `+taskColumns+` FROM sync_tasks WHERE status = ? ORDER BY created_at ASC`,
		string(types.SyncTaskStatusFailed))
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("list failed tasks: %w", err))
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SyncTaskStore) HasPendingForUser(ctx context.Context, taskType types.SyncTaskType, payloadID string) (bool, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM sync_tasks
        WHERE type = ? AND payload_id = ? AND status IN (?, ?)`,
		string(taskType), payloadID,
		string(types.SyncTaskStatusPending), string(types.SyncTaskStatusRunning)).Scan(&count)
	if err != nil {
		return false, apperrors.NewDatabaseError(fmt.Errorf("pending lookup: %w", err))
	}
	return count > 0, nil
}

// ClearCompleted garbage-collects terminal successful tasks.
func (s *SyncTaskStore) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM sync_tasks WHERE status = ?`, string(types.SyncTaskStatusCompleted))
	if err != nil {
		return 0, apperrors.NewDatabaseError(fmt.Errorf("clear completed: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}
	return n, nil
}

func (s *SyncTaskStore) transition(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("task transition: %w", err))
	}
	return requireRowAffected(res, "SyncTask", fmt.Sprintf("%d", id))
}

func collectTasks(rows *sql.Rows) ([]*types.SyncTask, error) {
	var out []*types.SyncTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan task: %w", err))
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return out, nil
}

func scanTask(row rowScanner) (*types.SyncTask, error) {
	var (
		t                task
		nextAttempt      sql.NullInt64
		created, updated int64
	)
	err := row.Scan(&t.id, &t.typ, &t.payloadID, &t.payload, &t.status,
		&t.attempts, &t.maxAttempts, &nextAttempt, &t.lastError, &created, &updated)
	if err != nil {
		return nil, err
	}
	out := &types.SyncTask{
		ID:          t.id,
		Type:        types.SyncTaskType(t.typ),
		PayloadID:   t.payloadID,
		Payload:     []byte(t.payload),
		Status:      types.SyncTaskStatus(t.status),
		Attempts:    t.attempts,
		MaxAttempts: t.maxAttempts,
		LastError:   t.lastError,
		CreatedAt:   fromMilli(created),
		UpdatedAt:   fromMilli(updated),
	}
	if nextAttempt.Valid {
		n := fromMilli(nextAttempt.Int64)
		out.NextAttemptAt = &n
	}
	return out, nil
}

type task struct {
	id          int64
	typ         string
	payloadID   string
	payload     string
	status      string
	attempts    int
	maxAttempts int
	lastError   string
}
