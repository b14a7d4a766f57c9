package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
)

var _ store.TourStore = (*TourStore)(nil)

// TourStore is the sqlite-backed tour cache.
type TourStore struct {
	db *DB
}

func NewTourStore(db *DB) *TourStore {
	return &TourStore{db: db}
}

func (s *TourStore) CreateTour(ctx context.Context, tour *types.Tour) error {
	var capacity sql.NullInt64
	if tour.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*tour.Capacity), Valid: true}
	}
	_, err := s.db.conn.ExecContext(ctx, `
        INSERT INTO tours (
            id, title, description, guide_id, status, start_time, end_time,
            meeting_name, meeting_lat, meeting_lon, capacity, route_id,
            created_at, updated_at
        ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tour.ID, tour.Title, tour.Description, tour.GuideID, string(tour.Status),
		tour.StartTime.UnixMilli(), tour.EndTime.UnixMilli(),
		tour.MeetingPoint.Name, tour.MeetingPoint.Latitude, tour.MeetingPoint.Longitude,
		capacity, tour.RouteID,
		tour.CreatedAt.UnixMilli(), tour.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("insert tour: %w", err))
	}
	return nil
}

const tourColumns = `id, title, description, guide_id, status, start_time, end_time,
       meeting_name, meeting_lat, meeting_lon, capacity, route_id, created_at, updated_at`

func (s *TourStore) GetTour(ctx context.Context, id string) (*types.Tour, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = ?`, id)
	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Tour", id)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get tour: %w", err))
	}
	return tour, nil
}

func (s *TourStore) UpdateTour(ctx context.Context, id string, update *types.TourUpdate) error {
	var capacity sql.NullInt64
	if update.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*update.Capacity), Valid: true}
	}
	meetingName, meetingLat, meetingLon := "", 0.0, 0.0
	hasMeeting := update.MeetingPoint != nil
	if hasMeeting {
		meetingName = update.MeetingPoint.Name
		meetingLat = update.MeetingPoint.Latitude
		meetingLon = update.MeetingPoint.Longitude
	}
	res, err := s.db.conn.ExecContext(ctx, `
        UPDATE tours SET
            title = ?, description = ?, start_time = ?, end_time = ?,
            meeting_name = CASE WHEN ? THEN ? ELSE meeting_name END,
            meeting_lat  = CASE WHEN ? THEN ? ELSE meeting_lat END,
            meeting_lon  = CASE WHEN ? THEN ? ELSE meeting_lon END,
            capacity = ?, route_id = ?, updated_at = ?
        WHERE id = ?`,
		update.Title, update.Description,
		update.StartTime.UnixMilli(), update.EndTime.UnixMilli(),
		hasMeeting, meetingName, hasMeeting, meetingLat, hasMeeting, meetingLon,
		capacity, update.RouteID, nowMilli(), id,
	)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("update tour: %w", err))
	}
	return requireRowAffected(res, "Tour", id)
}

func (s *TourStore) UpdateTourStatus(ctx context.Context, id string, status types.TourStatus) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE tours SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), nowMilli(), id)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("update tour status: %w", err))
	}
	return requireRowAffected(res, "Tour", id)
}

func (s *TourStore) ListToursByGuide(ctx context.Context, guideID string) ([]*types.Tour, error) {
	return s.listTours(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE guide_id = ? ORDER BY start_time`, guideID)
}

func (s *TourStore) ListToursByStatus(ctx context.Context, status types.TourStatus) ([]*types.Tour, error) {
	return s.listTours(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE status = ? ORDER BY start_time`, string(status))
}

func (s *TourStore) DeleteTour(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("delete tour: %w", err))
	}
	return requireRowAffected(res, "Tour", id)
}

func (s *TourStore) listTours(ctx context.Context, query string, args ...any) ([]*types.Tour, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("list tours: %w", err))
	}
	defer rows.Close()

	var tours []*types.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan tour: %w", err))
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return tours, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(row rowScanner) (*types.Tour, error) {
	var (
		t          types.Tour
		status     string
		start, end int64
		capacity   sql.NullInt64
		created    int64
		updated    int64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.GuideID, &status,
		&start, &end,
		&t.MeetingPoint.Name, &t.MeetingPoint.Latitude, &t.MeetingPoint.Longitude,
		&capacity, &t.RouteID, &created, &updated)
	if err != nil {
		return nil, err
	}
	t.Status = types.TourStatus(status)
	t.StartTime = fromMilli(start)
	t.EndTime = fromMilli(end)
	t.CreatedAt = fromMilli(created)
	t.UpdatedAt = fromMilli(updated)
	if capacity.Valid {
		c := int(capacity.Int64)
		t.Capacity = &c
	}
	return &t, nil
}

func requireRowAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if n == 0 {
		return apperrors.NotFound(entity, id)
	}
	return nil
}
