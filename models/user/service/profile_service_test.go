package service

import (
	"context"
	"testing"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-for-sessions"

type profileFixture struct {
	users    *mockUserStore
	tasks    *mockSyncTaskStore
	backend  *mockBackend
	notifier *mockNotifier
	svc      *ProfileService
}

func newProfileFixture() *profileFixture {
	f := &profileFixture{
		users:    new(mockUserStore),
		tasks:    new(mockSyncTaskStore),
		backend:  new(mockBackend),
		notifier: new(mockNotifier),
	}
	f.svc = NewProfileService(f.users, f.tasks, f.backend, f.notifier, testJWTSecret)
	return f
}

func (f *profileFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.users.AssertExpectations(t)
	f.tasks.AssertExpectations(t)
	f.backend.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func testCredential() ExternalCredential {
	return ExternalCredential{
		ExternalID: "ext-123",
		Email:      "birder@example.com",
		Name:       "Robin Birder",
		Phone:      "+15551234567",
	}
}

func TestSignInCreatesProfileOnFirstContact(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()
	cred := testCredential()

	f.backend.On("EnsureUserRole", ctx, "ext-123", "birder@example.com").
		Return(types.UserRoleUser, nil)
	f.users.On("GetProfileByExternalID", ctx, "ext-123").
		Return(nil, apperrors.NotFound("Profile", "ext-123"))
	f.users.On("SaveProfile", ctx, mock.AnythingOfType("*types.UserProfile")).Return(nil)
	f.users.On("RecordSignIn", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(nil)

	session, err := f.svc.SignIn(ctx, cred)
	require.NoError(t, err)
	require.NotNil(t, session.Profile)
	assert.NotEmpty(t, session.Profile.ID)
	assert.Equal(t, "ext-123", session.Profile.ExternalID)
	assert.Equal(t, types.UserRoleUser, session.Profile.Role)
	assert.NotEmpty(t, session.Token)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(session.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, claims.Subject)
	f.assertExpectations(t)
}

func TestSignInReusesProfileByExternalID(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()
	cred := testCredential()
	cred.Email = "new-address@example.com"

	existing := &types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Email:      "birder@example.com",
		Role:       types.UserRoleGuide,
		Revision:   3,
	}

	f.backend.On("EnsureUserRole", ctx, "ext-123", "new-address@example.com").
		Return(types.UserRoleUser, nil)
	f.users.On("GetProfileByExternalID", ctx, "ext-123").Return(existing, nil)
	f.users.On("SaveProfile", ctx, existing).Return(nil)
	f.users.On("RecordSignIn", ctx, "local-1", mock.AnythingOfType("time.Time")).Return(nil)

	session, err := f.svc.SignIn(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, "local-1", session.Profile.ID, "same external identity maps to the same local profile")
	assert.Equal(t, "new-address@example.com", session.Profile.Email)
	assert.Equal(t, types.UserRoleGuide, session.Profile.Role,
		"local role wins over the cloud default until reconciliation runs")
	f.assertExpectations(t)
}

func TestSignInRequiresIdentityFields(t *testing.T) {
	f := newProfileFixture()

	_, err := f.svc.SignIn(context.Background(), ExternalCredential{Email: "only@example.com"})
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))

	_, err = f.svc.SignIn(context.Background(), ExternalCredential{ExternalID: "ext-123"})
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))

	f.backend.AssertNotCalled(t, "EnsureUserRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromoteToGuideEnqueuesRoleChange(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	f.users.On("GetProfile", ctx, "local-1").Return(&types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleUser,
		Revision:   1,
	}, nil)
	f.users.On("UpdateRole", ctx, "local-1", types.UserRoleGuide).Return(int64(2), nil)
	f.tasks.On("Enqueue", ctx, types.SyncTaskUserRoleChange, "local-1", mock.Anything).
		Return(int64(10), nil)
	f.notifier.On("Poke").Return()
	f.backend.On("PushUserRole", ctx, "ext-123", types.UserRoleGuide).Return(nil)

	profile, err := f.svc.PromoteToGuide(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, types.UserRoleGuide, profile.Role)
	assert.Equal(t, int64(2), profile.Revision)
	assert.True(t, profile.NeedsSync)
	f.assertExpectations(t)
}

func TestPromoteToGuideIdempotent(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	f.users.On("GetProfile", ctx, "local-1").Return(&types.UserProfile{
		ID:   "local-1",
		Role: types.UserRoleGuide,
	}, nil)

	profile, err := f.svc.PromoteToGuide(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, types.UserRoleGuide, profile.Role)
	f.users.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	f.tasks.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestChangeRoleSucceedsWhenImmediatePushFails(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	f.users.On("GetProfile", ctx, "local-1").Return(&types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleGuide,
		Revision:   5,
	}, nil)
	f.users.On("UpdateRole", ctx, "local-1", types.UserRoleUser).Return(int64(6), nil)
	f.tasks.On("Enqueue", ctx, types.SyncTaskUserRoleChange, "local-1", mock.Anything).
		Return(int64(11), nil)
	f.notifier.On("Poke").Return()
	f.backend.On("PushUserRole", ctx, "ext-123", types.UserRoleUser).
		Return(apperrors.RemoteWriteFailed(assert.AnError))

	profile, err := f.svc.DemoteToUser(ctx, "local-1")
	require.NoError(t, err, "the queued task carries the change; the direct push is best effort")
	assert.Equal(t, types.UserRoleUser, profile.Role)
	f.assertExpectations(t)
}

func TestRefreshRoleSkipsWhileChangeQueued(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	f.users.On("GetProfile", ctx, "local-1").Return(&types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleGuide,
		NeedsSync:  true,
		Revision:   4,
	}, nil)
	f.tasks.On("HasPendingForUser", ctx, types.SyncTaskUserRoleChange, "local-1").
		Return(true, nil)

	profile, err := f.svc.RefreshRoleFromCloud(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, types.UserRoleGuide, profile.Role, "queued local change must not be regressed")
	f.backend.AssertNotCalled(t, "FetchUserRole", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "ApplyRemoteRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRefreshRoleAppliesCloudRole(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	f.users.On("GetProfile", ctx, "local-1").Return(&types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleUser,
		Revision:   2,
	}, nil)
	f.tasks.On("HasPendingForUser", ctx, types.SyncTaskUserRoleChange, "local-1").
		Return(false, nil)
	f.backend.On("FetchUserRole", ctx, "ext-123").Return(types.UserRoleGuide, nil)
	f.users.On("ApplyRemoteRole", ctx, "local-1", types.UserRoleGuide, int64(2)).
		Return(true, nil)

	profile, err := f.svc.RefreshRoleFromCloud(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, types.UserRoleGuide, profile.Role)
	assert.False(t, profile.NeedsSync)
	f.assertExpectations(t)
}

func TestRefreshRoleLosesRevisionRace(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	stale := &types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleUser,
		Revision:   2,
	}
	moved := &types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleGuide,
		NeedsSync:  true,
		Revision:   3,
	}

	f.users.On("GetProfile", ctx, "local-1").Return(stale, nil).Once()
	f.tasks.On("HasPendingForUser", ctx, types.SyncTaskUserRoleChange, "local-1").
		Return(false, nil)
	f.backend.On("FetchUserRole", ctx, "ext-123").Return(types.UserRoleUser, nil)
	f.users.On("ApplyRemoteRole", ctx, "local-1", types.UserRoleUser, int64(2)).
		Return(false, nil)
	f.users.On("GetProfile", ctx, "local-1").Return(moved, nil).Once()

	profile, err := f.svc.RefreshRoleFromCloud(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, types.UserRoleGuide, profile.Role,
		"concurrent local change survives the refresh")
	f.assertExpectations(t)
}

func TestRefreshRoleNoopWhenInSync(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	f.users.On("GetProfile", ctx, "local-1").Return(&types.UserProfile{
		ID:         "local-1",
		ExternalID: "ext-123",
		Role:       types.UserRoleUser,
		Revision:   7,
	}, nil)
	f.tasks.On("HasPendingForUser", ctx, types.SyncTaskUserRoleChange, "local-1").
		Return(false, nil)
	f.backend.On("FetchUserRole", ctx, "ext-123").Return(types.UserRoleUser, nil)

	_, err := f.svc.RefreshRoleFromCloud(ctx, "local-1")
	require.NoError(t, err)
	f.users.AssertNotCalled(t, "ApplyRemoteRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}
