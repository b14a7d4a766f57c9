// Package statemachine validates tour status transitions.
package statemachine

import (
	"context"
	"errors"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/types"
	loopfsm "github.com/looplab/fsm"
)

// Event is a named tour lifecycle action.
type Event string

const (
	EventPublish  Event = "publish"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

// Transition is one allowed edge of the tour status graph.
type Transition struct {
	Event Event
	Src   types.TourStatus
	Dst   types.TourStatus
}

// Transitions is the full tour status graph. Completed and cancelled are
// terminal; a tour that has started can no longer go back to draft.
var Transitions = []Transition{
	{Event: EventPublish, Src: types.TourStatusDraft, Dst: types.TourStatusPublished},
	{Event: EventStart, Src: types.TourStatusPublished, Dst: types.TourStatusInProgress},
	{Event: EventComplete, Src: types.TourStatusInProgress, Dst: types.TourStatusCompleted},
	{Event: EventCancel, Src: types.TourStatusDraft, Dst: types.TourStatusCancelled},
	{Event: EventCancel, Src: types.TourStatusPublished, Dst: types.TourStatusCancelled},
	{Event: EventCancel, Src: types.TourStatusInProgress, Dst: types.TourStatusCancelled},
}

// events converts Transitions into looplab/fsm EventDesc format,
// consolidating transitions with the same event+destination into a single
// EventDesc with multiple source states.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range Transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// EventFor maps a requested target status to the lifecycle event reaching it.
func EventFor(target types.TourStatus) (Event, bool) {
	switch target {
	case types.TourStatusPublished:
		return EventPublish, true
	case types.TourStatusInProgress:
		return EventStart, true
	case types.TourStatusCompleted:
		return EventComplete, true
	case types.TourStatusCancelled:
		return EventCancel, true
	default:
		return "", false
	}
}

// Validator checks tour lifecycle transitions. It creates a short-lived FSM
// per Apply call because looplab/fsm tracks the current state internally.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Apply checks whether the event is valid from the current status and
// returns the destination status.
func (v *Validator) Apply(ctx context.Context, current types.TourStatus, event Event) (types.TourStatus, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", apperrors.InvalidStatusTransition(string(current), string(event))
		}
		return "", err
	}

	return types.TourStatus(machine.Current()), nil
}
