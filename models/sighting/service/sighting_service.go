// Package service implements sighting capture and the density heatmap reads.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/google/uuid"
)

// QueueNotifier wakes the sync worker after a task is enqueued. Optional.
type QueueNotifier interface {
	Poke()
}

// HeatmapReader answers viewport density queries.
type HeatmapReader interface {
	Query(ctx context.Context, box types.BoundingBox) ([]*types.HeatmapCell, error)
}

// SightingService records sightings locally and queues them for upload.
// Unlike join requests, sightings are captured in the field and tolerate
// being offline: the local write always succeeds and the sync queue carries
// the report to the backend later.
type SightingService struct {
	sightings store.SightingStore
	media     store.MediaStore
	tasks     store.SyncTaskStore
	heatmap   HeatmapReader
	notifier  QueueNotifier
}

func NewSightingService(
	sightings store.SightingStore,
	media store.MediaStore,
	tasks store.SyncTaskStore,
	heatmap HeatmapReader,
	notifier QueueNotifier,
) *SightingService {
	return &SightingService{
		sightings: sightings,
		media:     media,
		tasks:     tasks,
		heatmap:   heatmap,
		notifier:  notifier,
	}
}

// ReportSighting stores a new sighting and enqueues its upload.
func (s *SightingService) ReportSighting(ctx context.Context, userID string, sighting *types.Sighting) (*types.Sighting, error) {
	if sighting.SpeciesID == "" {
		return nil, apperrors.ValidationFailed("missing_species", "Species is required")
	}
	if sighting.Latitude < -90 || sighting.Latitude > 90 || sighting.Longitude < -180 || sighting.Longitude > 180 {
		return nil, apperrors.ValidationFailed("invalid_coordinates", "Coordinates are out of range")
	}

	sighting.ID = uuid.New().String()
	sighting.UserID = userID
	if sighting.ObservedAt.IsZero() {
		sighting.ObservedAt = time.Now().UTC()
	}

	if err := s.sightings.CreateSighting(ctx, sighting); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(types.SightingReportPayload{
		SightingID: sighting.ID,
		SpeciesID:  sighting.SpeciesID,
		UserID:     userID,
		Latitude:   sighting.Latitude,
		Longitude:  sighting.Longitude,
		ObservedAt: sighting.ObservedAt,
	})
	if err != nil {
		return nil, apperrors.InternalServerError("Failed to encode sighting report")
	}
	if _, err := s.tasks.Enqueue(ctx, types.SyncTaskSightingReport, sighting.ID, payload); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Poke()
	}

	logger.GetLogger().Infow("Sighting recorded", "sightingID", sighting.ID, "speciesID", sighting.SpeciesID)
	return sighting, nil
}

// AttachMedia registers a captured photo or audio clip for a sighting and
// queues its upload.
func (s *SightingService) AttachMedia(ctx context.Context, userID string, record *types.MediaRecord, storageKey string) (*types.MediaRecord, error) {
	if record.LocalPath == "" {
		return nil, apperrors.ValidationFailed("missing_path", "Local media path is required")
	}
	record.ID = uuid.New().String()
	record.OwnerID = userID

	if err := s.media.CreateMedia(ctx, record); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(types.MediaUploadPayload{
		MediaID:    record.ID,
		LocalPath:  record.LocalPath,
		StorageKey: storageKey,
	})
	if err != nil {
		return nil, apperrors.InternalServerError("Failed to encode media upload")
	}
	if _, err := s.tasks.Enqueue(ctx, types.SyncTaskMediaUpload, record.ID, payload); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Poke()
	}
	return record, nil
}

// ListMySightings returns the user's own sightings.
func (s *SightingService) ListMySightings(ctx context.Context, userID string) ([]*types.Sighting, error) {
	return s.sightings.ListSightingsByUser(ctx, userID)
}

// Heatmap returns the density cells for a viewport, falling back to the
// local sightings when the aggregation backend is unavailable.
func (s *SightingService) Heatmap(ctx context.Context, box types.BoundingBox) ([]*types.HeatmapCell, error) {
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		return nil, apperrors.ValidationFailed("invalid_viewport", "Bounding box edges are inverted")
	}
	if s.heatmap != nil {
		cells, err := s.heatmap.Query(ctx, box)
		if err == nil {
			return cells, nil
		}
		logger.GetLogger().Warnw("Heatmap backend query failed, falling back to local data", "error", err)
	}
	return s.localHeatmap(ctx, box)
}

func (s *SightingService) localHeatmap(ctx context.Context, box types.BoundingBox) ([]*types.HeatmapCell, error) {
	sightings, err := s.sightings.ListSightingsInBox(ctx, box)
	if err != nil {
		return nil, err
	}
	buckets := make(map[string]*types.HeatmapCell)
	order := make([]string, 0)
	for _, sig := range sightings {
		key := localCellKey(sig.Latitude, sig.Longitude)
		cell, ok := buckets[key]
		if !ok {
			cell = &types.HeatmapCell{
				GeohashCell: key,
				Latitude:    sig.Latitude,
				Longitude:   sig.Longitude,
			}
			buckets[key] = cell
			order = append(order, key)
		}
		cell.Count++
	}
	out := make([]*types.HeatmapCell, 0, len(order))
	for _, key := range order {
		out = append(out, buckets[key])
	}
	return out, nil
}

// localCellKey snaps coordinates to the same ~1.1km grid the aggregation
// backend uses.
func localCellKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f:%.2f", math.Floor(lat*100)/100, math.Floor(lon*100)/100)
}
