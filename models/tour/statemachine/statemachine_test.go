package statemachine

import (
	"context"
	"testing"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAllowedTransitions(t *testing.T) {
	v := New()
	ctx := context.Background()

	cases := []struct {
		from  types.TourStatus
		event Event
		want  types.TourStatus
	}{
		{types.TourStatusDraft, EventPublish, types.TourStatusPublished},
		{types.TourStatusPublished, EventStart, types.TourStatusInProgress},
		{types.TourStatusInProgress, EventComplete, types.TourStatusCompleted},
		{types.TourStatusDraft, EventCancel, types.TourStatusCancelled},
		{types.TourStatusPublished, EventCancel, types.TourStatusCancelled},
		{types.TourStatusInProgress, EventCancel, types.TourStatusCancelled},
	}

	for _, tc := range cases {
		got, err := v.Apply(ctx, tc.from, tc.event)
		require.NoError(t, err, "%s + %s", tc.from, tc.event)
		assert.Equal(t, tc.want, got)
	}
}

func TestApplyRejectsInvalidTransitions(t *testing.T) {
	v := New()
	ctx := context.Background()

	cases := []struct {
		from  types.TourStatus
		event Event
	}{
		{types.TourStatusDraft, EventStart},
		{types.TourStatusDraft, EventComplete},
		{types.TourStatusPublished, EventPublish},
		{types.TourStatusPublished, EventComplete},
		{types.TourStatusInProgress, EventPublish},
		{types.TourStatusCompleted, EventCancel},
		{types.TourStatusCompleted, EventPublish},
		{types.TourStatusCancelled, EventPublish},
		{types.TourStatusCancelled, EventStart},
	}

	for _, tc := range cases {
		_, err := v.Apply(ctx, tc.from, tc.event)
		require.Error(t, err, "%s + %s", tc.from, tc.event)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidStatusTransitionError),
			"%s + %s yielded %v", tc.from, tc.event, err)
	}
}

func TestEventFor(t *testing.T) {
	ev, ok := EventFor(types.TourStatusPublished)
	require.True(t, ok)
	assert.Equal(t, EventPublish, ev)

	ev, ok = EventFor(types.TourStatusCancelled)
	require.True(t, ok)
	assert.Equal(t, EventCancel, ev)

	_, ok = EventFor(types.TourStatusDraft)
	assert.False(t, ok, "no event leads back to draft")
}
