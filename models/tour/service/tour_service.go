// Package service implements tour management: CRUD, lifecycle transitions,
// and reads for guides and participants.
package service

import (
	"context"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/models/tour/statemachine"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/google/uuid"
)

// TourManagementService handles core tour operations.
type TourManagementService struct {
	tours     store.TourStore
	users     store.UserStore
	backend   types.RemoteBackend
	validator *statemachine.Validator
}

// NewTourManagementService creates a new tour management service.
func NewTourManagementService(
	tours store.TourStore,
	users store.UserStore,
	backend types.RemoteBackend,
) *TourManagementService {
	return &TourManagementService{
		tours:     tours,
		users:     users,
		backend:   backend,
		validator: statemachine.New(),
	}
}

// CreateTour creates a draft tour owned by the acting guide.
func (s *TourManagementService) CreateTour(ctx context.Context, actorID string, tour *types.Tour) (*types.Tour, error) {
	actor, err := s.users.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsGuide() {
		return nil, apperrors.PermissionDenied("create_tour", "Only guides can create tours")
	}
	if err := validateTourFields(tour); err != nil {
		return nil, err
	}

	tour.ID = uuid.New().String()
	tour.GuideID = actor.ID
	tour.Status = types.TourStatusDraft

	if err := s.tours.CreateTour(ctx, tour); err != nil {
		return nil, err
	}

	// The draft only matters locally until published; a failed remote push is
	// retried implicitly by the next successful status change.
	if err := s.backend.UpsertTour(ctx, tour); err != nil {
		logger.GetLogger().Warnw("Failed to push new tour to backend", "tourID", tour.ID, "error", err)
	}
	return tour, nil
}

// GetTour retrieves a single tour by ID.
func (s *TourManagementService) GetTour(ctx context.Context, id string) (*types.Tour, error) {
	return s.tours.GetTour(ctx, id)
}

// UpdateTour applies field edits. Only the owning guide may edit, and only
// while the tour has not started.
func (s *TourManagementService) UpdateTour(ctx context.Context, actorID, tourID string, update *types.TourUpdate) (*types.Tour, error) {
	tour, err := s.requireOwnedTour(ctx, actorID, tourID)
	if err != nil {
		return nil, err
	}
	if tour.Status != types.TourStatusDraft && tour.Status != types.TourStatusPublished {
		return nil, apperrors.ValidationFailed("tour_not_editable", "Tours can only be edited before they start")
	}
	if !update.StartTime.IsZero() && !update.EndTime.IsZero() && !update.EndTime.After(update.StartTime) {
		return nil, apperrors.ValidationFailed("invalid_times", "End time must be after start time")
	}

	if err := s.tours.UpdateTour(ctx, tourID, update); err != nil {
		return nil, err
	}
	updated, err := s.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if err := s.backend.UpsertTour(ctx, updated); err != nil {
		logger.GetLogger().Warnw("Failed to push tour update to backend", "tourID", tourID, "error", err)
	}
	return updated, nil
}

// UpdateTourStatus moves the tour through its lifecycle. The transition is
// validated against the status graph before anything is written.
func (s *TourManagementService) UpdateTourStatus(ctx context.Context, actorID, tourID string, target types.TourStatus) (*types.Tour, error) {
	tour, err := s.requireOwnedTour(ctx, actorID, tourID)
	if err != nil {
		return nil, err
	}

	event, ok := statemachine.EventFor(target)
	if !ok {
		return nil, apperrors.ValidationFailed("invalid_status", "Unknown target status: "+string(target))
	}
	next, err := s.validator.Apply(ctx, tour.Status, event)
	if err != nil {
		return nil, err
	}

	if err := s.tours.UpdateTourStatus(ctx, tourID, next); err != nil {
		return nil, err
	}
	tour.Status = next
	tour.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpsertTour(ctx, tour); err != nil {
		logger.GetLogger().Warnw("Failed to push tour status to backend", "tourID", tourID, "status", next, "error", err)
	}
	logger.GetLogger().Infow("Tour status changed", "tourID", tourID, "status", next)
	return tour, nil
}

// ListToursByGuide returns all tours owned by a guide, any status.
func (s *TourManagementService) ListToursByGuide(ctx context.Context, guideID string) ([]*types.Tour, error) {
	return s.tours.ListToursByGuide(ctx, guideID)
}

// ListOpenTours returns published tours, the ones users can ask to join.
func (s *TourManagementService) ListOpenTours(ctx context.Context) ([]*types.Tour, error) {
	return s.tours.ListToursByStatus(ctx, types.TourStatusPublished)
}

// DeleteTour removes a draft. Tours that were ever visible to users are
// cancelled instead of deleted so participants keep their history.
func (s *TourManagementService) DeleteTour(ctx context.Context, actorID, tourID string) error {
	tour, err := s.requireOwnedTour(ctx, actorID, tourID)
	if err != nil {
		return err
	}
	if tour.Status != types.TourStatusDraft {
		return apperrors.ValidationFailed("tour_not_deletable", "Only draft tours can be deleted; cancel instead")
	}
	return s.tours.DeleteTour(ctx, tourID)
}

func (s *TourManagementService) requireOwnedTour(ctx context.Context, actorID, tourID string) (*types.Tour, error) {
	actor, err := s.users.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	tour, err := s.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if !actor.IsGuide() || tour.GuideID != actor.ID {
		return nil, apperrors.PermissionDenied("manage_tour", "Only the owning guide can manage this tour")
	}
	return tour, nil
}

func validateTourFields(tour *types.Tour) error {
	if tour.Title == "" {
		return apperrors.ValidationFailed("missing_title", "Tour title is required")
	}
	if tour.StartTime.IsZero() || tour.EndTime.IsZero() {
		return apperrors.ValidationFailed("missing_times", "Start and end time are required")
	}
	if !tour.EndTime.After(tour.StartTime) {
		return apperrors.ValidationFailed("invalid_times", "End time must be after start time")
	}
	if tour.Capacity != nil && *tour.Capacity < 1 {
		return apperrors.ValidationFailed("invalid_capacity", "Capacity must be at least 1")
	}
	return nil
}
