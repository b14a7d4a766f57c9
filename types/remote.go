package types

import (
	"context"
	"time"
)

// RemoteBackend is the cloud document backend holding the authoritative
// tours, participants, user roles, and sightings. Coordinators write to it
// before mutating the local cache; the sync worker replays queued mutations
// through it.
type RemoteBackend interface {
	UpsertTour(ctx context.Context, tour *Tour) error
	GetTour(ctx context.Context, id string) (*Tour, error)
	UpsertParticipant(ctx context.Context, p *TourParticipant) error
	UpdateParticipantStatus(ctx context.Context, tourID, userID string, status ParticipantStatus, processedAt time.Time) error
	ListParticipants(ctx context.Context, tourID string) ([]*TourParticipant, error)
	// EnsureUserRole looks up the role document for an external identity,
	// creating it with the default user role when absent.
	EnsureUserRole(ctx context.Context, externalID, email string) (UserRole, error)
	FetchUserRole(ctx context.Context, externalID string) (UserRole, error)
	PushUserRole(ctx context.Context, externalID string, role UserRole) error
	ReportSighting(ctx context.Context, s *Sighting) error
}
