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

var (
	_ store.SightingStore = (*SightingStore)(nil)
	_ store.MediaStore    = (*MediaStore)(nil)
)

// SightingStore persists GPS-tagged sighting records.
type SightingStore struct {
	db *DB
}

func NewSightingStore(db *DB) *SightingStore {
	return &SightingStore{db: db}
}

func (s *SightingStore) CreateSighting(ctx context.Context, sighting *types.Sighting) error {
	_, err := s.db.conn.ExecContext(ctx, `
        INSERT INTO sightings (id, user_id, species_id, latitude, longitude, note, observed_at, created_at)
        VALUES (?,?,?,?,?,?,?,?)`,
		sighting.ID, sighting.UserID, sighting.SpeciesID,
		sighting.Latitude, sighting.Longitude, sighting.Note,
		sighting.ObservedAt.UnixMilli(), sighting.CreatedAt.UnixMilli())
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("insert sighting: %w", err))
	}
	return nil
}

const sightingColumns = `id, user_id, species_id, latitude, longitude, note, observed_at, created_at`

func (s *SightingStore) GetSighting(ctx context.Context, id string) (*types.Sighting, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+sightingColumns+` FROM sightings WHERE id = ?`, id)
	sighting, err := scanSighting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Sighting", id)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get sighting: %w", err))
	}
	return sighting, nil
}

func (s *SightingStore) ListSightingsByUser(ctx context.Context, userID string) ([]*types.Sighting, error) {
	return s.list(ctx,
		`SELECT `+sightingColumns+` FROM sightings WHERE user_id = ? ORDER BY observed_at DESC`,
		userID)
}

func (s *SightingStore) ListSightingsInBox(ctx context.Context, box types.BoundingBox) ([]*types.Sighting, error) {
	return s.list(ctx, `
        SELECT `+sightingColumns+` FROM sightings
        WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
        ORDER BY observed_at DESC`,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
}

func (s *SightingStore) list(ctx context.Context, query string, args ...any) ([]*types.Sighting, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("list sightings: %w", err))
	}
	defer rows.Close()

	var out []*types.Sighting
	for rows.Next() {
		sighting, err := scanSighting(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan sighting: %w", err))
		}
		out = append(out, sighting)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return out, nil
}

func scanSighting(row rowScanner) (*types.Sighting, error) {
	var (
		s                types.Sighting
		observed, create int64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SpeciesID, &s.Latitude, &s.Longitude,
		&s.Note, &observed, &create)
	if err != nil {
		return nil, err
	}
	s.ObservedAt = fromMilli(observed)
	s.CreatedAt = fromMilli(create)
	return &s, nil
}

// MediaStore tracks locally captured media and upload state.
type MediaStore struct {
	db *DB
}

func NewMediaStore(db *DB) *MediaStore {
	return &MediaStore{db: db}
}

func (s *MediaStore) CreateMedia(ctx context.Context, m *types.MediaRecord) error {
	_, err := s.db.conn.ExecContext(ctx, `
        INSERT INTO media_records (id, owner_id, sighting_id, kind, local_path, storage_key, uploaded, created_at)
        VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.OwnerID, m.SightingID, m.Kind, m.LocalPath, m.StorageKey,
		boolToInt(m.Uploaded), m.CreatedAt.UnixMilli())
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("insert media: %w", err))
	}
	return nil
}

func (s *MediaStore) GetMedia(ctx context.Context, id string) (*types.MediaRecord, error) {
	var (
		m        types.MediaRecord
		uploaded int
		created  int64
	)
	err := s.db.conn.QueryRowContext(ctx, `
        SELECT id, owner_id, sighting_id, kind, local_path, storage_key, uploaded, created_at
        FROM media_records WHERE id = ?`, id).Scan(
		&m.ID, &m.OwnerID, &m.SightingID, &m.Kind, &m.LocalPath, &m.StorageKey, &uploaded, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Media", id)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get media: %w", err))
	}
	m.Uploaded = uploaded != 0
	m.CreatedAt = fromMilli(created)
	return &m, nil
}

func (s *MediaStore) MarkUploaded(ctx context.Context, id string, storageKey string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE media_records SET uploaded = 1, storage_key = ? WHERE id = ?`,
		storageKey, id)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("mark uploaded: %w", err))
	}
	return requireRowAffected(res, "Media", id)
}
