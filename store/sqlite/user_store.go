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

var _ store.UserStore = (*UserStore)(nil)

// UserStore is the sqlite-backed identity cache.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) SaveProfile(ctx context.Context, p *types.UserProfile) error {
	now := nowMilli()
	var lastSignIn sql.NullInt64
	if p.LastSignInAt != nil {
		lastSignIn = sql.NullInt64{Int64: p.LastSignInAt.UnixMilli(), Valid: true}
	}
	_, err := s.db.conn.ExecContext(ctx, `
        INSERT INTO user_profiles (
            id, external_id, email, name, phone, role, needs_sync, revision,
            last_sign_in_at, created_at, updated_at
        ) VALUES (?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            email = excluded.email,
            name = excluded.name,
            phone = excluded.phone,
            role = excluded.role,
            needs_sync = excluded.needs_sync,
            revision = user_profiles.revision + 1,
            last_sign_in_at = excluded.last_sign_in_at,
            updated_at = excluded.updated_at`,
		p.ID, p.ExternalID, p.Email, p.Name, p.Phone, string(p.Role),
		boolToInt(p.NeedsSync), p.Revision, lastSignIn, now, now)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("save profile: %w", err))
	}
	return nil
}

const profileColumns = `id, external_id, email, name, phone, role, needs_sync, revision,
       last_sign_in_at, created_at, updated_at`

func (s *UserStore) GetProfile(ctx context.Context, id string) (*types.UserProfile, error) {
	return s.getBy(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`, id)
}

func (s *UserStore) GetProfileByExternalID(ctx context.Context, externalID string) (*types.UserProfile, error) {
	return s.getBy(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE external_id = ?`, externalID)
}

// UpdateRole is the optimistic local role write: it bumps the revision and
// marks the profile for sync. The new revision is returned for the queued
// role-change payload.
func (s *UserStore) UpdateRole(ctx context.Context, id string, role types.UserRole) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `
        UPDATE user_profiles
        SET role = ?, needs_sync = 1, revision = revision + 1, updated_at = ?
        WHERE id = ?`,
		string(role), nowMilli(), id)
	if err != nil {
		return 0, apperrors.NewDatabaseError(fmt.Errorf("update role: %w", err))
	}
	if err := requireRowAffected(res, "Profile", id); err != nil {
		return 0, err
	}
	var revision int64
	if err := s.db.conn.QueryRowContext(ctx,
		`SELECT revision FROM user_profiles WHERE id = ?`, id).Scan(&revision); err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}
	return revision, nil
}

// ApplyRemoteRole overwrites the local role from the backend only while the
// revision has not moved since the reconciliation read started. A skipped
// write means a newer local edit exists and the cloud value is stale.
func (s *UserStore) ApplyRemoteRole(ctx context.Context, id string, role types.UserRole, expectedRevision int64) (bool, error) {
	res, err := s.db.conn.ExecContext(ctx, `
        UPDATE user_profiles
        SET role = ?, needs_sync = 0, updated_at = ?
        WHERE id = ? AND revision = ?`,
		string(role), nowMilli(), id, expectedRevision)
	if err != nil {
		return false, apperrors.NewDatabaseError(fmt.Errorf("apply remote role: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewDatabaseError(err)
	}
	return n > 0, nil
}

func (s *UserStore) RecordSignIn(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE user_profiles SET last_sign_in_at = ?, updated_at = ? WHERE id = ?`,
		at.UnixMilli(), nowMilli(), id)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("record sign-in: %w", err))
	}
	return requireRowAffected(res, "Profile", id)
}

func (s *UserStore) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("delete profile: %w", err))
	}
	return requireRowAffected(res, "Profile", id)
}

func (s *UserStore) getBy(ctx context.Context, query string, arg string) (*types.UserProfile, error) {
	var (
		p                  types.UserProfile
		role               string
		needsSync          int
		lastSignIn         sql.NullInt64
		created, updatedAt int64
	)
	err := s.db.conn.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.ExternalID, &p.Email, &p.Name, &p.Phone, &role,
		&needsSync, &p.Revision, &lastSignIn, &created, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Profile", arg)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get profile: %w", err))
	}
	p.Role = types.UserRole(role)
	p.NeedsSync = needsSync != 0
	p.CreatedAt = fromMilli(created)
	p.UpdatedAt = fromMilli(updatedAt)
	if lastSignIn.Valid {
		t := fromMilli(lastSignIn.Int64)
		p.LastSignInAt = &t
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
