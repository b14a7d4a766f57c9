// Package store defines the interfaces of the local on-device store. The
// sqlite implementation lives in store/sqlite; services and coordinators
// depend only on these interfaces.
package store

import (
	"context"
	"time"

	"github.com/BirdScout/bird-scout-backend/types"
)

// TourStore handles cached tour rows.
type TourStore interface {
	CreateTour(ctx context.Context, tour *types.Tour) error
	GetTour(ctx context.Context, id string) (*types.Tour, error)
	UpdateTour(ctx context.Context, id string, update *types.TourUpdate) error
	UpdateTourStatus(ctx context.Context, id string, status types.TourStatus) error
	ListToursByGuide(ctx context.Context, guideID string) ([]*types.Tour, error)
	ListToursByStatus(ctx context.Context, status types.TourStatus) ([]*types.Tour, error)
	DeleteTour(ctx context.Context, id string) error
}

// ParticipantStore handles tour participant rows, keyed by (tour, user).
type ParticipantStore interface {
	// Upsert writes the participant record, overwriting an existing row for
	// the same (tourID, userID) pair in place.
	Upsert(ctx context.Context, p *types.TourParticipant) error
	Get(ctx context.Context, tourID, userID string) (*types.TourParticipant, error)
	ListByTour(ctx context.Context, tourID string) ([]*types.TourParticipant, error)
	ListByUser(ctx context.Context, userID string) ([]*types.TourParticipant, error)
	// UpdateStatus sets the status and processed-at timestamp of an existing row.
	UpdateStatus(ctx context.Context, tourID, userID string, status types.ParticipantStatus, processedAt time.Time) error
	// CountApproved returns the number of approved participants for a tour.
	CountApproved(ctx context.Context, tourID string) (int, error)
	// ApproveWithCapacity approves the participant only if the number of
	// already-approved participants is below capacity, in a single
	// transaction. A nil capacity means unlimited. Returns
	// errors.CapacityExceeded when the tour is full.
	ApproveWithCapacity(ctx context.Context, tourID, userID string, capacity *int, processedAt time.Time) error
}

// SyncTaskStore is the durable queue of pending outbound mutations.
type SyncTaskStore interface {
	Enqueue(ctx context.Context, taskType types.SyncTaskType, payloadID string, payload []byte) (int64, error)
	// GetPending returns tasks in state pending whose NextAttemptAt is unset
	// or due, oldest first.
	GetPending(ctx context.Context, limit int) ([]*types.SyncTask, error)
	GetTask(ctx context.Context, id int64) (*types.SyncTask, error)
	MarkRunning(ctx context.Context, id int64, attempts int) error
	MarkCompleted(ctx context.Context, id int64) error
	// MarkFailed records the error and either schedules a retry at
	// nextAttemptAt (task returns to pending) or, when attempts have reached
	// the task's max, parks it in the terminal failed state.
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string, nextAttemptAt *time.Time) error
	// RetryFailed resets a terminally failed task to pending with zero
	// attempts. Used by the manual retry affordance.
	RetryFailed(ctx context.Context, id int64) error
	ListFailed(ctx context.Context) ([]*types.SyncTask, error)
	// HasPendingForUser reports whether a pending or running task of the given
	// type exists for the payload ID. The role reconciliation uses this to
	// avoid regressing optimistic local updates.
	HasPendingForUser(ctx context.Context, taskType types.SyncTaskType, payloadID string) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
}

// UserStore handles the locally cached identity.
type UserStore interface {
	SaveProfile(ctx context.Context, p *types.UserProfile) error
	GetProfile(ctx context.Context, id string) (*types.UserProfile, error)
	GetProfileByExternalID(ctx context.Context, externalID string) (*types.UserProfile, error)
	// UpdateRole sets the role optimistically: bumps the revision, marks the
	// profile as needing sync, and returns the new revision.
	UpdateRole(ctx context.Context, id string, role types.UserRole) (int64, error)
	// ApplyRemoteRole overwrites the role from the cloud only if the profile's
	// revision still equals expectedRevision; clears NeedsSync on success.
	// Returns false when the revision moved and the write was skipped.
	ApplyRemoteRole(ctx context.Context, id string, role types.UserRole, expectedRevision int64) (bool, error)
	RecordSignIn(ctx context.Context, id string, at time.Time) error
	DeleteProfile(ctx context.Context, id string) error
}

// CatalogStore caches bird catalog entries fetched from the REST catalog.
type CatalogStore interface {
	UpsertSpecies(ctx context.Context, species []*types.BirdSpecies) error
	GetSpecies(ctx context.Context, id string) (*types.BirdSpecies, error)
	ListSpeciesByCategory(ctx context.Context, categoryID string) ([]*types.BirdSpecies, error)
	UpsertCategories(ctx context.Context, categories []*types.BirdCategory) error
	ListCategories(ctx context.Context) ([]*types.BirdCategory, error)
}

// SightingStore persists GPS-tagged sighting records.
type SightingStore interface {
	CreateSighting(ctx context.Context, s *types.Sighting) error
	GetSighting(ctx context.Context, id string) (*types.Sighting, error)
	ListSightingsByUser(ctx context.Context, userID string) ([]*types.Sighting, error)
	ListSightingsInBox(ctx context.Context, box types.BoundingBox) ([]*types.Sighting, error)
}

// MediaStore tracks captured media and upload state.
type MediaStore interface {
	CreateMedia(ctx context.Context, m *types.MediaRecord) error
	GetMedia(ctx context.Context, id string) (*types.MediaRecord, error)
	MarkUploaded(ctx context.Context, id string, storageKey string) error
}
