package depositwatch

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/confirmation"
)

// State is everything a cycle needs from the previous one. It is owned by a
// single caller at a time; RunCycle never mutates the State it receives.
type State struct {
	// Checkpoint is the upper bound of the last completed confirmed range,
	// nil before the first successful cycle.
	Checkpoint *int64
	Tracker    confirmation.Tracker
}

// NewState returns an empty state with no checkpoint.
func NewState() State {
	return State{Tracker: confirmation.NewTracker()}
}

// StateStore persists State between process restarts.
type StateStore interface {
	// Load returns the saved state, or an empty one when nothing was saved.
	Load(ctx context.Context) (State, error)

	// Save replaces the saved state with s.
	Save(ctx context.Context, s State) error
}

// NopStateStore returns a StateStore that keeps nothing.
func NopStateStore() StateStore {
	return nopStateStore{}
}

// nopStateStore keeps nothing. Restarts begin from an empty state, so
// transactions still inside the window may be notified again.
type nopStateStore struct{}

var _ StateStore = nopStateStore{}

func (nopStateStore) Load(context.Context) (State, error) {
	return NewState(), nil
}

func (nopStateStore) Save(context.Context, State) error {
	return nil
}
