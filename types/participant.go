package types

import "time"

// ParticipantStatus represents the lifecycle of a join request.
type ParticipantStatus string

const (
	ParticipantStatusPending   ParticipantStatus = "PENDING"
	ParticipantStatusApproved  ParticipantStatus = "APPROVED"
	ParticipantStatusDeclined  ParticipantStatus = "DECLINED"
	ParticipantStatusCancelled ParticipantStatus = "CANCELLED"
)

func (ps ParticipantStatus) IsValid() bool {
	switch ps {
	case ParticipantStatusPending, ParticipantStatusApproved, ParticipantStatusDeclined, ParticipantStatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether the request still holds (or may hold) a slot.
// A user with an active request cannot submit another one for the same tour.
func (ps ParticipantStatus) Active() bool {
	return ps == ParticipantStatusPending || ps == ParticipantStatusApproved
}

// IsDecision reports whether the status is one a guide may set.
func (ps ParticipantStatus) IsDecision() bool {
	return ps == ParticipantStatusApproved || ps == ParticipantStatusDeclined
}

// TourParticipant is a user's request record to join a specific tour.
// The row is keyed by (TourID, UserID); re-requesting after a cancellation or
// decline overwrites the row in place. The contact fields are a snapshot of
// the user's profile taken at request time and are not updated if the profile
// changes later.
type TourParticipant struct {
	ID          string            `json:"id"`
	TourID      string            `json:"tourId"`
	UserID      string            `json:"userId"`
	Status      ParticipantStatus `json:"status"`
	UserName    string            `json:"userName"`
	UserEmail   string            `json:"userEmail"`
	UserPhone   string            `json:"userPhone,omitempty"`
	RequestedAt time.Time         `json:"requestedAt"`
	ProcessedAt *time.Time        `json:"processedAt,omitempty"`
}
