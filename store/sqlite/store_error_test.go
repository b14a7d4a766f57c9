package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Driver-level failures are hard to provoke on a real file; sqlmock stands
// in for the connection to exercise the error paths.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &DB{conn: conn}, mock
}

func TestUserStoreUpdateRoleDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserStore(db)

	mock.ExpectExec("UPDATE user_profiles").
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.UpdateRole(context.Background(), "u1", types.UserRoleGuide)
	assert.True(t, apperrors.IsType(err, apperrors.DatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncTaskEnqueueDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSyncTaskStore(db, 3)

	mock.ExpectExec("INSERT INTO sync_tasks").
		WillReturnError(errors.New("database is locked"))

	_, err := s.Enqueue(context.Background(), types.SyncTaskTourJoinRequest, "p-1", []byte(`{}`))
	assert.True(t, apperrors.IsType(err, apperrors.DatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantApproveRollsBackOnCountError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewParticipantStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM tour_participants").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	capacity := 2
	err := s.ApproveWithCapacity(context.Background(), "t1", "u1", &capacity, time.Now())
	assert.True(t, apperrors.IsType(err, apperrors.DatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}
