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

var _ store.ParticipantStore = (*ParticipantStore)(nil)

// ParticipantStore is the sqlite-backed participant cache. Rows are keyed by
// (tour_id, user_id); Upsert overwrites in place so a re-request after a
// cancellation or decline never produces a second row.
type ParticipantStore struct {
	db *DB
}

func NewParticipantStore(db *DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) Upsert(ctx context.Context, p *types.TourParticipant) error {
	var processedAt sql.NullInt64
	if p.ProcessedAt != nil {
		processedAt = sql.NullInt64{Int64: p.ProcessedAt.UnixMilli(), Valid: true}
	}
	_, err := s.db.conn.ExecContext(ctx, `
        INSERT INTO tour_participants (
            id, tour_id, user_id, status, user_name, user_email, user_phone,
            requested_at, processed_at
        ) VALUES (?,?,?,?,?,?,?,?,?)
        ON CONFLICT(tour_id, user_id) DO UPDATE SET
            id = excluded.id,
            status = excluded.status,
            user_name = excluded.user_name,
            user_email = excluded.user_email,
            user_phone = excluded.user_phone,
            requested_at = excluded.requested_at,
            processed_at = excluded.processed_at`,
		p.ID, p.TourID, p.UserID, string(p.Status),
		p.UserName, p.UserEmail, p.UserPhone,
		p.RequestedAt.UnixMilli(), processedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("upsert participant: %w", err))
	}
	return nil
}

const participantColumns = `id, tour_id, user_id, status, user_name, user_email, user_phone,
       requested_at, processed_at`

func (s *ParticipantStore) Get(ctx context.Context, tourID, userID string) (*types.TourParticipant, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM tour_participants WHERE tour_id = ? AND user_id = ?`,
		tourID, userID)
	p, err := scanParticipant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Participant", fmt.Sprintf("%s/%s", tourID, userID))
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get participant: %w", err))
	}
	return p, nil
}

func (s *ParticipantStore) ListByTour(ctx context.Context, tourID string) ([]*types.TourParticipant, error) {
	return s.list(ctx,
		`SELECT `+participantColumns+` FROM tour_participants WHERE tour_id = ? ORDER BY requested_at`,
		tourID)
}

func (s *ParticipantStore) ListByUser(ctx context.Context, userID string) ([]*types.TourParticipant, error) {
	return s.list(ctx,
		`SELECT `+participantColumns+` FROM tour_participants WHERE user_id = ? ORDER BY requested_at DESC`,
		userID)
}

func (s *ParticipantStore) UpdateStatus(ctx context.Context, tourID, userID string, status types.ParticipantStatus, processedAt time.Time) error {
	res, err := s.db.conn.ExecContext(ctx, `
        UPDATE tour_participants SET status = ?, processed_at = ?
        WHERE tour_id = ? AND user_id = ?`,
		string(status), processedAt.UnixMilli(), tourID, userID)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("update participant status: %w", err))
	}
	return requireRowAffected(res, "Participant", fmt.Sprintf("%s/%s", tourID, userID))
}

func (s *ParticipantStore) CountApproved(ctx context.Context, tourID string) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tour_participants WHERE tour_id = ? AND status = ?`,
		tourID, string(types.ParticipantStatusApproved)).Scan(&count)
	if err != nil {
		return 0, apperrors.NewDatabaseError(fmt.Errorf("count approved: %w", err))
	}
	return count, nil
}

// ApproveWithCapacity performs the capacity check and the approval write in a
// single transaction, so two concurrent approvals of the last slot cannot
// both succeed against this store.
func (s *ParticipantStore) ApproveWithCapacity(ctx context.Context, tourID, userID string, capacity *int, processedAt time.Time) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("begin approve tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM tour_participants WHERE tour_id = ? AND user_id = ?`,
		tourID, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("Participant", fmt.Sprintf("%s/%s", tourID, userID))
		}
		return apperrors.NewDatabaseError(fmt.Errorf("approve lookup: %w", err))
	}

	// Approving an already-approved row must not eat a second slot.
	if types.ParticipantStatus(status) != types.ParticipantStatusApproved && capacity != nil {
		var approved int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tour_participants WHERE tour_id = ? AND status = ?`,
			tourID, string(types.ParticipantStatusApproved)).Scan(&approved)
		if err != nil {
			return apperrors.NewDatabaseError(fmt.Errorf("approve count: %w", err))
		}
		if approved >= *capacity {
			return apperrors.CapacityExceeded(tourID, *capacity)
		}
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE tour_participants SET status = ?, processed_at = ?
        WHERE tour_id = ? AND user_id = ?`,
		string(types.ParticipantStatusApproved), processedAt.UnixMilli(), tourID, userID)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("approve write: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("approve commit: %w", err))
	}
	return nil
}

func (s *ParticipantStore) list(ctx context.Context, query string, args ...any) ([]*types.TourParticipant, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("list participants: %w", err))
	}
	defer rows.Close()

	var out []*types.TourParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan participant: %w", err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return out, nil
}

func scanParticipant(row rowScanner) (*types.TourParticipant, error) {
	var (
		p           types.TourParticipant
		status      string
		requestedAt int64
		processedAt sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.TourID, &p.UserID, &status,
		&p.UserName, &p.UserEmail, &p.UserPhone, &requestedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	p.Status = types.ParticipantStatus(status)
	p.RequestedAt = fromMilli(requestedAt)
	if processedAt.Valid {
		t := fromMilli(processedAt.Int64)
		p.ProcessedAt = &t
	}
	return &p, nil
}
