package services

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
)

// SyncHandlerDeps bundles what the task handlers need.
type SyncHandlerDeps struct {
	Backend      types.RemoteBackend
	Participants store.ParticipantStore
	Users        store.UserStore
	Sightings    store.SightingStore
	Media        *MediaService
	Heatmap      *HeatmapService
}

// RegisterSyncHandlers wires one handler per task type onto the worker.
// Handlers replay a recorded mutation against the cloud backend; they read
// current state from the local store so a replay always pushes the freshest
// version, not the one captured at enqueue time.
func RegisterSyncHandlers(w *SyncWorker, deps SyncHandlerDeps) {
	w.Register(types.SyncTaskTourJoinRequest, func(ctx context.Context, task *types.SyncTask) error {
		var payload types.JoinRequestPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("bad join request payload: %w", err)
		}
		participant, err := deps.Participants.Get(ctx, payload.TourID, payload.UserID)
		if err != nil {
			if apperrors.IsType(err, apperrors.NotFoundError) {
				// Row was removed locally; nothing left to replay.
				logger.GetLogger().Warnw("Join request vanished before replay",
					"tourID", payload.TourID, "userID", payload.UserID)
				return nil
			}
			return err
		}
		return deps.Backend.UpsertParticipant(ctx, participant)
	})

	w.Register(types.SyncTaskTourParticipantUpdate, func(ctx context.Context, task *types.SyncTask) error {
		var payload types.ParticipantUpdatePayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("bad participant update payload: %w", err)
		}
		return deps.Backend.UpdateParticipantStatus(ctx,
			payload.TourID, payload.UserID, types.ParticipantStatus(payload.Status), payload.UpdatedAt)
	})

	w.Register(types.SyncTaskUserRoleChange, func(ctx context.Context, task *types.SyncTask) error {
		var payload types.RoleChangePayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("bad role change payload: %w", err)
		}
		profile, err := deps.Users.GetProfile(ctx, payload.UserID)
		if err != nil {
			return err
		}
		if err := deps.Backend.PushUserRole(ctx, profile.ExternalID, types.UserRole(payload.Role)); err != nil {
			return err
		}
		// Confirm the push locally. A moved revision means a newer local
		// change superseded this one and will clear the flag itself.
		applied, err := deps.Users.ApplyRemoteRole(ctx, payload.UserID, types.UserRole(payload.Role), payload.Revision)
		if err != nil {
			return err
		}
		if !applied {
			logger.GetLogger().Debugw("Role push confirmed but revision moved on",
				"userID", payload.UserID, "revision", payload.Revision)
		}
		return nil
	})

	w.Register(types.SyncTaskSightingReport, func(ctx context.Context, task *types.SyncTask) error {
		var payload types.SightingReportPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("bad sighting payload: %w", err)
		}
		sighting, err := deps.Sightings.GetSighting(ctx, payload.SightingID)
		if err != nil {
			if apperrors.IsType(err, apperrors.NotFoundError) {
				return nil
			}
			return err
		}
		if err := deps.Backend.ReportSighting(ctx, sighting); err != nil {
			return err
		}
		if deps.Heatmap != nil {
			if err := deps.Heatmap.Record(ctx, sighting.Latitude, sighting.Longitude); err != nil {
				// Density data is advisory; do not fail the task over it.
				logger.GetLogger().Warnw("Heatmap record failed", "sightingID", sighting.ID, "error", err)
			}
		}
		return nil
	})

	if deps.Media != nil {
		w.Register(types.SyncTaskMediaUpload, func(ctx context.Context, task *types.SyncTask) error {
			var payload types.MediaUploadPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return fmt.Errorf("bad media upload payload: %w", err)
			}
			return deps.Media.Upload(ctx, payload.MediaID, payload.LocalPath, payload.StorageKey)
		})
	}
}
