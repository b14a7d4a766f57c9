package tour

import (
	"context"
	"time"

	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/stretchr/testify/mock"
)

type mockTourStore struct {
	mock.Mock
}

func (m *mockTourStore) CreateTour(ctx context.Context, tour *types.Tour) error {
	return m.Called(ctx, tour).Error(0)
}

func (m *mockTourStore) GetTour(ctx context.Context, id string) (*types.Tour, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*types.Tour); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTourStore) UpdateTour(ctx context.Context, id string, update *types.TourUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *mockTourStore) UpdateTourStatus(ctx context.Context, id string, status types.TourStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockTourStore) ListToursByGuide(ctx context.Context, guideID string) ([]*types.Tour, error) {
	args := m.Called(ctx, guideID)
	if tours, ok := args.Get(0).([]*types.Tour); ok {
		return tours, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTourStore) ListToursByStatus(ctx context.Context, status types.TourStatus) ([]*types.Tour, error) {
	args := m.Called(ctx, status)
	if tours, ok := args.Get(0).([]*types.Tour); ok {
		return tours, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTourStore) DeleteTour(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockParticipantStore struct {
	mock.Mock
}

func (m *mockParticipantStore) Upsert(ctx context.Context, p *types.TourParticipant) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockParticipantStore) Get(ctx context.Context, tourID, userID string) (*types.TourParticipant, error) {
	args := m.Called(ctx, tourID, userID)
	if p, ok := args.Get(0).(*types.TourParticipant); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockParticipantStore) ListByTour(ctx context.Context, tourID string) ([]*types.TourParticipant, error) {
	args := m.Called(ctx, tourID)
	if ps, ok := args.Get(0).([]*types.TourParticipant); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockParticipantStore) ListByUser(ctx context.Context, userID string) ([]*types.TourParticipant, error) {
	args := m.Called(ctx, userID)
	if ps, ok := args.Get(0).([]*types.TourParticipant); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockParticipantStore) UpdateStatus(ctx context.Context, tourID, userID string, status types.ParticipantStatus, processedAt time.Time) error {
	return m.Called(ctx, tourID, userID, status, processedAt).Error(0)
}

func (m *mockParticipantStore) CountApproved(ctx context.Context, tourID string) (int, error) {
	args := m.Called(ctx, tourID)
	return args.Int(0), args.Error(1)
}

func (m *mockParticipantStore) ApproveWithCapacity(ctx context.Context, tourID, userID string, capacity *int, processedAt time.Time) error {
	return m.Called(ctx, tourID, userID, capacity, processedAt).Error(0)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) SaveProfile(ctx context.Context, p *types.UserProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockUserStore) GetProfile(ctx context.Context, id string) (*types.UserProfile, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*types.UserProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetProfileByExternalID(ctx context.Context, externalID string) (*types.UserProfile, error) {
	args := m.Called(ctx, externalID)
	if p, ok := args.Get(0).(*types.UserProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) UpdateRole(ctx context.Context, id string, role types.UserRole) (int64, error) {
	args := m.Called(ctx, id, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserStore) ApplyRemoteRole(ctx context.Context, id string, role types.UserRole, expectedRevision int64) (bool, error) {
	args := m.Called(ctx, id, role, expectedRevision)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) RecordSignIn(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockUserStore) DeleteProfile(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSyncTaskStore struct {
	mock.Mock
}

func (m *mockSyncTaskStore) Enqueue(ctx context.Context, taskType types.SyncTaskType, payloadID string, payload []byte) (int64, error) {
	args := m.Called(ctx, taskType, payloadID, payload)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSyncTaskStore) GetPending(ctx context.Context, limit int) ([]*types.SyncTask, error) {
	args := m.Called(ctx, limit)
	if ts, ok := args.Get(0).([]*types.SyncTask); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncTaskStore) GetTask(ctx context.Context, id int64) (*types.SyncTask, error) {
	args := m.Called(ctx, id)
	if task, ok := args.Get(0).(*types.SyncTask); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncTaskStore) MarkRunning(ctx context.Context, id int64, attempts int) error {
	return m.Called(ctx, id, attempts).Error(0)
}

func (m *mockSyncTaskStore) MarkCompleted(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSyncTaskStore) MarkFailed(ctx context.Context, id int64, attempts int, lastError string, nextAttemptAt *time.Time) error {
	return m.Called(ctx, id, attempts, lastError, nextAttemptAt).Error(0)
}

func (m *mockSyncTaskStore) RetryFailed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSyncTaskStore) ListFailed(ctx context.Context) ([]*types.SyncTask, error) {
	args := m.Called(ctx)
	if ts, ok := args.Get(0).([]*types.SyncTask); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncTaskStore) HasPendingForUser(ctx context.Context, taskType types.SyncTaskType, payloadID string) (bool, error) {
	args := m.Called(ctx, taskType, payloadID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSyncTaskStore) ClearCompleted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) UpsertTour(ctx context.Context, tour *types.Tour) error {
	return m.Called(ctx, tour).Error(0)
}

func (m *mockBackend) GetTour(ctx context.Context, id string) (*types.Tour, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*types.Tour); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) UpsertParticipant(ctx context.Context, p *types.TourParticipant) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockBackend) UpdateParticipantStatus(ctx context.Context, tourID, userID string, status types.ParticipantStatus, processedAt time.Time) error {
	return m.Called(ctx, tourID, userID, status, processedAt).Error(0)
}

func (m *mockBackend) ListParticipants(ctx context.Context, tourID string) ([]*types.TourParticipant, error) {
	args := m.Called(ctx, tourID)
	if ps, ok := args.Get(0).([]*types.TourParticipant); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) EnsureUserRole(ctx context.Context, externalID, email string) (types.UserRole, error) {
	args := m.Called(ctx, externalID, email)
	return args.Get(0).(types.UserRole), args.Error(1)
}

func (m *mockBackend) FetchUserRole(ctx context.Context, externalID string) (types.UserRole, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(types.UserRole), args.Error(1)
}

func (m *mockBackend) PushUserRole(ctx context.Context, externalID string, role types.UserRole) error {
	return m.Called(ctx, externalID, role).Error(0)
}

func (m *mockBackend) ReportSighting(ctx context.Context, s *types.Sighting) error {
	return m.Called(ctx, s).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Poke() {
	m.Called()
}

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendDecisionEmail(ctx context.Context, p *types.TourParticipant, tour *types.Tour) error {
	return m.Called(ctx, p, tour).Error(0)
}
