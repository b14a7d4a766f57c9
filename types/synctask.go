package types

import (
	"encoding/json"
	"time"
)

// SyncTaskType tags the kind of mutation a task carries.
type SyncTaskType string

const (
	SyncTaskTourJoinRequest       SyncTaskType = "tour_join_request"
	SyncTaskTourParticipantUpdate SyncTaskType = "tour_participant_update"
	SyncTaskUserRoleChange        SyncTaskType = "user_role_change"
	SyncTaskMediaUpload           SyncTaskType = "media_upload"
	SyncTaskSightingReport        SyncTaskType = "sighting_report"
)

// SyncTaskStatus is the lifecycle state of a queued task.
// pending -> running -> completed, or back to pending with a scheduled
// NextAttemptAt while attempts remain, or failed once attempts are exhausted.
// Failed tasks are terminal until retried manually.
type SyncTaskStatus string

const (
	SyncTaskStatusPending   SyncTaskStatus = "PENDING"
	SyncTaskStatusRunning   SyncTaskStatus = "RUNNING"
	SyncTaskStatusCompleted SyncTaskStatus = "COMPLETED"
	SyncTaskStatusFailed    SyncTaskStatus = "FAILED"
)

// SyncTask is a durable record of a local mutation awaiting propagation to
// the cloud backend.
type SyncTask struct {
	ID            int64           `json:"id"`
	Type          SyncTaskType    `json:"type"`
	PayloadID     string          `json:"payloadId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Status        SyncTaskStatus  `json:"status"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"maxAttempts"`
	NextAttemptAt *time.Time      `json:"nextAttemptAt,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// JoinRequestPayload is the wire shape of a tour_join_request task.
type JoinRequestPayload struct {
	ID          string    `json:"id"`
	TourID      string    `json:"tourId"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requestedAt"`
	GuideID     string    `json:"guideId"`
}

// ParticipantUpdatePayload is the wire shape of a tour_participant_update task.
type ParticipantUpdatePayload struct {
	TourID    string    `json:"tourId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	ActorID   string    `json:"actorId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoleChangePayload is the wire shape of a user_role_change task.
type RoleChangePayload struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Revision  int64     `json:"revision"`
	ChangedAt time.Time `json:"changedAt"`
}

// MediaUploadPayload is the wire shape of a media_upload task.
type MediaUploadPayload struct {
	MediaID    string `json:"mediaId"`
	LocalPath  string `json:"localPath"`
	StorageKey string `json:"storageKey"`
}

// SightingReportPayload is the wire shape of a sighting_report task.
type SightingReportPayload struct {
	SightingID string    `json:"sightingId"`
	SpeciesID  string    `json:"speciesId"`
	UserID     string    `json:"userId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observedAt"`
}
