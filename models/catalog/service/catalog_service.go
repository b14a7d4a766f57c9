// Package service caches the upstream bird catalog in the local store so
// browsing keeps working offline.
package service

import (
	"context"

	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/pkg/catalog"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
)

type CatalogService struct {
	client catalog.ClientInterface
	cache  store.CatalogStore
}

func NewCatalogService(client catalog.ClientInterface, cache store.CatalogStore) *CatalogService {
	return &CatalogService{client: client, cache: cache}
}

// Refresh pulls the full catalog from the upstream API into the local cache.
func (s *CatalogService) Refresh(ctx context.Context) error {
	categories, err := s.client.ListCategories(ctx)
	if err != nil {
		return err
	}
	if err := s.cache.UpsertCategories(ctx, categories); err != nil {
		return err
	}
	for _, cat := range categories {
		species, err := s.client.ListSpecies(ctx, cat.ID)
		if err != nil {
			return err
		}
		if err := s.cache.UpsertSpecies(ctx, species); err != nil {
			return err
		}
	}
	logger.GetLogger().Infow("Catalog refreshed", "categories", len(categories))
	return nil
}

// ListCategories reads from the cache, refreshing it once when empty.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*types.BirdCategory, error) {
	categories, err := s.cache.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) > 0 {
		return categories, nil
	}
	if err := s.Refresh(ctx); err != nil {
		logger.GetLogger().Warnw("Catalog refresh failed, serving empty cache", "error", err)
		return categories, nil
	}
	return s.cache.ListCategories(ctx)
}

// ListSpecies reads a category's species from the cache, fetching from the
// upstream API on a cache miss.
func (s *CatalogService) ListSpecies(ctx context.Context, categoryID string) ([]*types.BirdSpecies, error) {
	species, err := s.cache.ListSpeciesByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if len(species) > 0 {
		return species, nil
	}
	fetched, err := s.client.ListSpecies(ctx, categoryID)
	if err != nil {
		logger.GetLogger().Warnw("Species fetch failed, serving empty cache", "categoryID", categoryID, "error", err)
		return species, nil
	}
	if err := s.cache.UpsertSpecies(ctx, fetched); err != nil {
		return nil, err
	}
	return fetched, nil
}

// GetSpecies returns one cached species entry.
func (s *CatalogService) GetSpecies(ctx context.Context, id string) (*types.BirdSpecies, error) {
	return s.cache.GetSpecies(ctx, id)
}

// SearchSpecies queries the upstream API and folds the results into the
// cache on the way through.
func (s *CatalogService) SearchSpecies(ctx context.Context, query string) ([]*types.BirdSpecies, error) {
	results, err := s.client.SearchSpecies(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := s.cache.UpsertSpecies(ctx, results); err != nil {
			logger.GetLogger().Warnw("Failed to cache search results", "error", err)
		}
	}
	return results, nil
}
