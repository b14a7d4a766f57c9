package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/BirdScout/bird-scout-backend/store/sqlite"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTour(guideID string, status types.TourStatus, capacity *int) *types.Tour {
	return &types.Tour{
		ID:          "tour-" + guideID,
		Title:       "Dawn chorus walk",
		Description: "Early start, bring binoculars",
		GuideID:     guideID,
		Status:      status,
		StartTime:   time.Now().Add(24 * time.Hour),
		EndTime:     time.Now().Add(27 * time.Hour),
		MeetingPoint: types.MeetingPoint{
			Name:      "Reserve gate",
			Latitude:  52.09,
			Longitude: 5.11,
		},
		Capacity: capacity,
	}
}

func newParticipant(tourID, userID string, status types.ParticipantStatus) *types.TourParticipant {
	return &types.TourParticipant{
		ID:          "p-" + tourID + "-" + userID,
		TourID:      tourID,
		UserID:      userID,
		Status:      status,
		UserName:    "Alex",
		UserEmail:   "alex@example.com",
		RequestedAt: time.Now(),
	}
}

func intPtr(v int) *int { return &v }
