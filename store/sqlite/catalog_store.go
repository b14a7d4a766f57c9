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

var _ store.CatalogStore = (*CatalogStore)(nil)

// CatalogStore caches bird catalog entries fetched from the REST catalog so
// the app keeps working without connectivity.
type CatalogStore struct {
	db *DB
}

func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) UpsertSpecies(ctx context.Context, species []*types.BirdSpecies) error {
	if len(species) == 0 {
		return nil
	}
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("begin species upsert: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, sp := range species {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO bird_species (id, common_name, scientific_name, category_id, description, image_url, audio_url, cached_at)
            VALUES (?,?,?,?,?,?,?,?)
            ON CONFLICT(id) DO UPDATE SET
                common_name = excluded.common_name,
                scientific_name = excluded.scientific_name,
                category_id = excluded.category_id,
                description = excluded.description,
                image_url = excluded.image_url,
                audio_url = excluded.audio_url,
                cached_at = excluded.cached_at`,
			sp.ID, sp.CommonName, sp.ScientificName, sp.CategoryID,
			sp.Description, sp.ImageURL, sp.AudioURL, sp.CachedAt.UnixMilli())
		if err != nil {
			return apperrors.NewDatabaseError(fmt.Errorf("upsert species %s: %w", sp.ID, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

func (s *CatalogStore) GetSpecies(ctx context.Context, id string) (*types.BirdSpecies, error) {
	var (
		sp       types.BirdSpecies
		cachedAt int64
	)
	err := s.db.conn.QueryRowContext(ctx, `
        SELECT id, common_name, scientific_name, category_id, description, image_url, audio_url, cached_at
        FROM bird_species WHERE id = ?`, id).Scan(
		&sp.ID, &sp.CommonName, &sp.ScientificName, &sp.CategoryID,
		&sp.Description, &sp.ImageURL, &sp.AudioURL, &cachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Species", id)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("get species: %w", err))
	}
	sp.CachedAt = fromMilli(cachedAt)
	return &sp, nil
}

func (s *CatalogStore) ListSpeciesByCategory(ctx context.Context, categoryID string) ([]*types.BirdSpecies, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
        SELECT id, common_name, scientific_name, category_id, description, image_url, audio_url, cached_at
        FROM bird_species WHERE category_id = ? ORDER BY common_name`, categoryID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("list species: %w", err))
	}
	defer rows.Close()

	var out []*types.BirdSpecies
	for rows.Next() {
		var (
			sp       types.BirdSpecies
			cachedAt int64
		)
		if err := rows.Scan(&sp.ID, &sp.CommonName, &sp.ScientificName, &sp.CategoryID,
			&sp.Description, &sp.ImageURL, &sp.AudioURL, &cachedAt); err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan species: %w", err))
		}
		sp.CachedAt = fromMilli(cachedAt)
		out = append(out, &sp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return out, nil
}

func (s *CatalogStore) UpsertCategories(ctx context.Context, categories []*types.BirdCategory) error {
	if len(categories) == 0 {
		return nil
	}
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("begin category upsert: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range categories {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO bird_categories (id, name) VALUES (?,?)
            ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			c.ID, c.Name)
		if err != nil {
			return apperrors.NewDatabaseError(fmt.Errorf("upsert category %s: %w", c.ID, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

func (s *CatalogStore) ListCategories(ctx context.Context) ([]*types.BirdCategory, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, name FROM bird_categories ORDER BY name`)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("list categories: %w", err))
	}
	defer rows.Close()

	var out []*types.BirdCategory
	for rows.Next() {
		var c types.BirdCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan category: %w", err))
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return out, nil
}
