// Package tour coordinates tour participation: join requests, cancellations,
// and guide decisions, keeping the local cache and the cloud backend in step.
package tour

import (
	"context"
	"encoding/json"
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

// DecisionNotifier sends the participant an email about a guide decision.
type DecisionNotifier interface {
	SendDecisionEmail(ctx context.Context, p *types.TourParticipant, tour *types.Tour) error
}

// Coordinator owns the participation state machine. Writes go to the cloud
// backend first; the local cache is only updated after the backend accepted
// the change, and a durable sync task records the mutation for replay.
type Coordinator struct {
	tours        store.TourStore
	participants store.ParticipantStore
	users        store.UserStore
	tasks        store.SyncTaskStore
	backend      types.RemoteBackend
	notifier     QueueNotifier
	emails       DecisionNotifier
}

// NewCoordinator creates a participation coordinator. notifier and emails
// may be nil.
func NewCoordinator(
	tours store.TourStore,
	participants store.ParticipantStore,
	users store.UserStore,
	tasks store.SyncTaskStore,
	backend types.RemoteBackend,
	notifier QueueNotifier,
	emails DecisionNotifier,
) *Coordinator {
	return &Coordinator{
		tours:        tours,
		participants: participants,
		users:        users,
		tasks:        tasks,
		backend:      backend,
		notifier:     notifier,
		emails:       emails,
	}
}

// RequestJoin files a join request for the acting user on a published tour.
//
// The backend write happens before any local mutation: if the backend is
// unreachable the request fails outright and nothing is cached, so the local
// store never claims a pending request the guide cannot see. A prior
// cancelled or declined row for the same (tour, user) pair is overwritten.
func (c *Coordinator) RequestJoin(ctx context.Context, actorID, tourID string) (*types.TourParticipant, error) {
	actor, err := c.users.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Authenticated() {
		return nil, apperrors.PermissionDenied("join_tour", "Sign in to request joining a tour")
	}

	tour, err := c.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if !tour.Joinable() {
		return nil, apperrors.ValidationFailed("tour_not_joinable", "This tour is not open for join requests")
	}

	existing, err := c.participants.Get(ctx, tourID, actor.ID)
	if err != nil && !apperrors.IsType(err, apperrors.NotFoundError) {
		return nil, err
	}
	if existing != nil && existing.Status.Active() {
		return nil, apperrors.DuplicateRequest(tourID, actor.ID)
	}

	now := time.Now().UTC()
	participant := &types.TourParticipant{
		ID:          uuid.New().String(),
		TourID:      tourID,
		UserID:      actor.ID,
		Status:      types.ParticipantStatusPending,
		UserName:    actor.Name,
		UserEmail:   actor.Email,
		UserPhone:   actor.Phone,
		RequestedAt: now,
	}

	if err := c.backend.UpsertParticipant(ctx, participant); err != nil {
		return nil, err
	}
	if err := c.participants.Upsert(ctx, participant); err != nil {
		return nil, err
	}

	payload := types.JoinRequestPayload{
		ID:          participant.ID,
		TourID:      tourID,
		UserID:      actor.ID,
		UserName:    actor.Name,
		Status:      string(participant.Status),
		RequestedAt: now,
		GuideID:     tour.GuideID,
	}
	c.enqueue(ctx, types.SyncTaskTourJoinRequest, participant.ID, payload)

	logger.GetLogger().Infow("Join request filed",
		"tourID", tourID, "userID", actor.ID, "participantID", participant.ID)
	return participant, nil
}

// CancelRequest withdraws the acting user's own request. Works on pending
// and approved rows; anything else is reported as not found.
func (c *Coordinator) CancelRequest(ctx context.Context, actorID, tourID string) error {
	existing, err := c.participants.Get(ctx, tourID, actorID)
	if err != nil {
		return err
	}
	if !existing.Status.Active() {
		return apperrors.NotFound("Join request", tourID)
	}

	now := time.Now().UTC()
	if err := c.backend.UpdateParticipantStatus(ctx, tourID, actorID, types.ParticipantStatusCancelled, now); err != nil {
		return err
	}
	if err := c.participants.UpdateStatus(ctx, tourID, actorID, types.ParticipantStatusCancelled, now); err != nil {
		return err
	}

	payload := types.ParticipantUpdatePayload{
		TourID:    tourID,
		UserID:    actorID,
		Status:    string(types.ParticipantStatusCancelled),
		ActorID:   actorID,
		UpdatedAt: now,
	}
	c.enqueue(ctx, types.SyncTaskTourParticipantUpdate, existing.ID, payload)

	logger.GetLogger().Infow("Join request cancelled", "tourID", tourID, "userID", actorID)
	return nil
}

// UpdateParticipantStatus records the guide's decision on a request.
//
// Only the guide who owns the tour may decide. Approvals go through the
// capacity-checked store path, so two concurrent approvals can never
// oversubscribe a tour.
func (c *Coordinator) UpdateParticipantStatus(ctx context.Context, actorID, tourID, userID string, status types.ParticipantStatus) (*types.TourParticipant, error) {
	if !status.IsDecision() && status != types.ParticipantStatusCancelled {
		return nil, apperrors.ValidationFailed("invalid_status", "Status must be APPROVED, DECLINED or CANCELLED")
	}

	actor, err := c.users.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	tour, err := c.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if !actor.IsGuide() || tour.GuideID != actor.ID {
		return nil, apperrors.PermissionDenied("decide_request", "Only the tour's guide can decide join requests")
	}

	participant, err := c.participants.Get(ctx, tourID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if status == types.ParticipantStatusApproved {
		if err := c.participants.ApproveWithCapacity(ctx, tourID, userID, tour.Capacity, now); err != nil {
			return nil, err
		}
	} else {
		if err := c.participants.UpdateStatus(ctx, tourID, userID, status, now); err != nil {
			return nil, err
		}
	}

	if err := c.backend.UpdateParticipantStatus(ctx, tourID, userID, status, now); err != nil {
		// The local decision stands; the queued task replays it.
		logger.GetLogger().Warnw("Backend decision write failed, will replay",
			"tourID", tourID, "userID", userID, "error", err)
	}

	payload := types.ParticipantUpdatePayload{
		TourID:    tourID,
		UserID:    userID,
		Status:    string(status),
		ActorID:   actor.ID,
		UpdatedAt: now,
	}
	c.enqueue(ctx, types.SyncTaskTourParticipantUpdate, participant.ID, payload)

	participant.Status = status
	participant.ProcessedAt = &now

	if c.emails != nil && status.IsDecision() {
		if err := c.emails.SendDecisionEmail(ctx, participant, tour); err != nil {
			logger.GetLogger().Warnw("Failed to send decision email",
				"tourID", tourID, "userID", userID, "error", err)
		}
	}

	logger.GetLogger().Infow("Join request decided",
		"tourID", tourID, "userID", userID, "status", status, "actorID", actor.ID)
	return participant, nil
}

// GetParticipant returns one participant row.
func (c *Coordinator) GetParticipant(ctx context.Context, tourID, userID string) (*types.TourParticipant, error) {
	return c.participants.Get(ctx, tourID, userID)
}

// ListParticipants returns all requests on a tour, visible only to its guide.
func (c *Coordinator) ListParticipants(ctx context.Context, actorID, tourID string) ([]*types.TourParticipant, error) {
	actor, err := c.users.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	tour, err := c.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if !actor.IsGuide() || tour.GuideID != actor.ID {
		return nil, apperrors.PermissionDenied("list_participants", "Only the tour's guide can list its requests")
	}
	return c.participants.ListByTour(ctx, tourID)
}

// ListMyRequests returns the acting user's requests across tours.
func (c *Coordinator) ListMyRequests(ctx context.Context, actorID string) ([]*types.TourParticipant, error) {
	return c.participants.ListByUser(ctx, actorID)
}

func (c *Coordinator) enqueue(ctx context.Context, taskType types.SyncTaskType, payloadID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.GetLogger().Errorw("Failed to marshal sync payload", "type", taskType, "error", err)
		return
	}
	if _, err := c.tasks.Enqueue(ctx, taskType, payloadID, data); err != nil {
		logger.GetLogger().Errorw("Failed to enqueue sync task", "type", taskType, "error", err)
		return
	}
	if c.notifier != nil {
		c.notifier.Poke()
	}
}
