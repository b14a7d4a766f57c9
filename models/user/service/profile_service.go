// Package service implements the local profile store and its reconciliation
// with the cloud role documents.
package service

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ExternalCredential is the verified identity extracted from the identity
// provider's session.
type ExternalCredential struct {
	ExternalID string
	Email      string
	Name       string
	Phone      string
}

// QueueNotifier wakes the sync worker after a task is enqueued. Optional.
type QueueNotifier interface {
	Poke()
}

const sessionTTL = 24 * time.Hour

// ProfileService manages the locally cached identity: sign-in, role
// mutations, and reconciliation with the cloud role document.
type ProfileService struct {
	users     store.UserStore
	tasks     store.SyncTaskStore
	backend   types.RemoteBackend
	notifier  QueueNotifier
	jwtSecret []byte
}

func NewProfileService(
	users store.UserStore,
	tasks store.SyncTaskStore,
	backend types.RemoteBackend,
	notifier QueueNotifier,
	jwtSecret string,
) *ProfileService {
	return &ProfileService{
		users:     users,
		tasks:     tasks,
		backend:   backend,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
	}
}

// SignIn resolves the external identity to a local profile, creating it on
// first contact, and issues a session token.
//
// The external ID maps to the same local profile across sign-out/sign-in
// cycles, so join requests and sync tasks written under a previous session
// still belong to the returned profile.
func (s *ProfileService) SignIn(ctx context.Context, cred ExternalCredential) (*types.Session, error) {
	if cred.ExternalID == "" || cred.Email == "" {
		return nil, apperrors.ValidationFailed("invalid_credential", "External ID and email are required")
	}

	role, err := s.backend.EnsureUserRole(ctx, cred.ExternalID, cred.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile, err := s.users.GetProfileByExternalID(ctx, cred.ExternalID)
	switch {
	case err == nil:
		// Known identity. Refresh contact fields but keep the locally held
		// role: a pending optimistic role change must not be clobbered here.
		profile.Email = cred.Email
		profile.Name = cred.Name
		profile.Phone = cred.Phone
		if err := s.users.SaveProfile(ctx, profile); err != nil {
			return nil, err
		}
	case apperrors.IsType(err, apperrors.NotFoundError):
		profile = &types.UserProfile{
			ID:         uuid.New().String(),
			ExternalID: cred.ExternalID,
			Email:      cred.Email,
			Name:       cred.Name,
			Phone:      cred.Phone,
			Role:       role,
		}
		if err := s.users.SaveProfile(ctx, profile); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.users.RecordSignIn(ctx, profile.ID, now); err != nil {
		return nil, err
	}
	profile.LastSignInAt = &now

	token, expiresAt, err := s.issueToken(profile)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("User signed in",
		"userID", profile.ID, "email", logger.MaskEmail(profile.Email), "role", profile.Role)
	return &types.Session{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

// GetProfile returns the locally cached profile.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*types.UserProfile, error) {
	return s.users.GetProfile(ctx, id)
}

// PromoteToGuide grants the guide role. Calling it on a profile that is
// already a guide changes nothing and enqueues nothing.
func (s *ProfileService) PromoteToGuide(ctx context.Context, id string) (*types.UserProfile, error) {
	return s.changeRole(ctx, id, types.UserRoleGuide)
}

// DemoteToUser revokes the guide role with the same idempotence rule.
func (s *ProfileService) DemoteToUser(ctx context.Context, id string) (*types.UserProfile, error) {
	return s.changeRole(ctx, id, types.UserRoleUser)
}

func (s *ProfileService) changeRole(ctx context.Context, id string, role types.UserRole) (*types.UserProfile, error) {
	profile, err := s.users.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.Role == role {
		return profile, nil
	}

	revision, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	profile.Role = role
	profile.Revision = revision
	profile.NeedsSync = true

	payload, err := json.Marshal(types.RoleChangePayload{
		UserID:    id,
		Role:      string(role),
		Revision:  revision,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, apperrors.InternalServerError("Failed to encode role change")
	}
	if _, err := s.tasks.Enqueue(ctx, types.SyncTaskUserRoleChange, id, payload); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Poke()
	}

	// Best effort: the queued task guarantees delivery, this just shortens
	// the window.
	if err := s.backend.PushUserRole(ctx, profile.ExternalID, role); err != nil {
		logger.GetLogger().Debugw("Immediate role push failed, task will replay",
			"userID", id, "error", err)
	}

	logger.GetLogger().Infow("Role changed locally", "userID", id, "role", role, "revision", revision)
	return profile, nil
}

// RefreshRoleFromCloud pulls the cloud role document and applies it locally.
//
// The pull is skipped while a role-change task for this user is still
// pending or running, and the apply is revision-guarded, so a refresh can
// never regress an optimistic local change that has not drained yet.
func (s *ProfileService) RefreshRoleFromCloud(ctx context.Context, id string) (*types.UserProfile, error) {
	profile, err := s.users.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := s.tasks.HasPendingForUser(ctx, types.SyncTaskUserRoleChange, id)
	if err != nil {
		return nil, err
	}
	if pending {
		logger.GetLogger().Debugw("Skipping role refresh, local change still queued", "userID", id)
		return profile, nil
	}

	remoteRole, err := s.backend.FetchUserRole(ctx, profile.ExternalID)
	if err != nil {
		return nil, err
	}
	if remoteRole == profile.Role && !profile.NeedsSync {
		return profile, nil
	}

	applied, err := s.users.ApplyRemoteRole(ctx, id, remoteRole, profile.Revision)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The profile moved between the read and the write; the next refresh
		// will see the new revision.
		logger.GetLogger().Debugw("Role refresh lost the race, leaving local state", "userID", id)
		return s.users.GetProfile(ctx, id)
	}

	profile.Role = remoteRole
	profile.NeedsSync = false
	logger.GetLogger().Infow("Role refreshed from cloud", "userID", id, "role", remoteRole)
	return profile, nil
}

// SignOut ends the session. The local profile and any queued sync tasks are
// kept so outstanding mutations still drain.
func (s *ProfileService) SignOut(ctx context.Context, id string) error {
	if _, err := s.users.GetProfile(ctx, id); err != nil {
		return err
	}
	logger.GetLogger().Infow("User signed out", "userID", id)
	return nil
}

// sessionClaims are the claims carried by locally issued session tokens.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *ProfileService) issueToken(profile *types.UserProfile) (string, time.Time, error) {
	expiresAt := time.Now().Add(sessionTTL)
	claims := sessionClaims{
		Role: string(profile.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "bird-scout-backend",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, apperrors.InternalServerError("Failed to issue session token")
	}
	return token, expiresAt, nil
}
