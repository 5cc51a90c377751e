package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/roasbeef/critic/internal/changeset"
)

// CycleFSM drives a single review cycle through its state machine. It is
// not safe for concurrent use; each cycle owns its own FSM.
type CycleFSM struct {
	state CycleState
	env   CycleEnvironment
}

// NewCycleFSM creates a cycle FSM in the Start state for the given PR
// reference.
func NewCycleFSM(ref changeset.Ref) *CycleFSM {
	return &CycleFSM{
		state: &StateStart{},
		env: CycleEnvironment{
			CycleID: uuid.New().String(),
			Ref:     ref,
		},
	}
}

// CycleID returns the unique identifier assigned to this cycle.
func (f *CycleFSM) CycleID() string {
	return f.env.CycleID
}

// State returns the current state.
func (f *CycleFSM) State() CycleState {
	return f.state
}

// Env returns a copy of the cycle environment.
func (f *CycleFSM) Env() CycleEnvironment {
	return f.env
}

// ProcessEvent feeds an event into the current state, advances to the
// returned next state, and hands back any outbox events for the caller to
// dispatch.
func (f *CycleFSM) ProcessEvent(ctx context.Context,
	event CycleEvent) ([]CycleOutboxEvent, error) {

	fromState := f.state.String()

	transition, err := f.state.ProcessEvent(ctx, event, &f.env)
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", f.env.CycleID, err)
	}

	f.state = transition.NextState

	log.Tracef("Cycle %s: %s -> %s on %T", f.env.CycleID, fromState,
		f.state.String(), event)

	return transition.OutboxEvents, nil
}
