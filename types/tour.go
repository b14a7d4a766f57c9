package types

import "time"

type TourStatus string

const (
	TourStatusDraft      TourStatus = "DRAFT"       // Guide is still editing, not visible to users
	TourStatusPublished  TourStatus = "PUBLISHED"   // Open for join requests
	TourStatusInProgress TourStatus = "IN_PROGRESS" // Tour is underway
	TourStatusCompleted  TourStatus = "COMPLETED"   // Tour finished normally
	TourStatusCancelled  TourStatus = "CANCELLED"   // Cancelled before or during
)

// MeetingPoint is where a tour starts.
type MeetingPoint struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Tour is a scheduled guided outing published by a guide.
// Capacity is the maximum number of approved participants; nil means unlimited.
type Tour struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	GuideID      string       `json:"guideId"`
	Status       TourStatus   `json:"status"`
	StartTime    time.Time    `json:"startTime"`
	EndTime      time.Time    `json:"endTime"`
	MeetingPoint MeetingPoint `json:"meetingPoint"`
	Capacity     *int         `json:"capacity,omitempty"`
	RouteID      string       `json:"routeId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (ts TourStatus) String() string {
	return string(ts)
}

// IsValid checks if the status is a known tour status.
func (ts TourStatus) IsValid() bool {
	switch ts {
	case TourStatusDraft, TourStatusPublished, TourStatusInProgress, TourStatusCompleted, TourStatusCancelled:
		return true
	default:
		return false
	}
}

// Joinable reports whether the tour accepts new join requests.
func (t *Tour) Joinable() bool {
	return t.Status == TourStatusPublished
}

// TourUpdate carries the mutable tour fields for edits by the guide.
type TourUpdate struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	MeetingPoint *MeetingPoint `json:"meetingPoint,omitempty"`
	Capacity     *int          `json:"capacity,omitempty"`
	RouteID      string        `json:"routeId,omitempty"`
}
