package engine

import (
	"context"
	"fmt"

	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/strategy"
)

// CycleState is the sealed interface for all review cycle states. Each
// state handles incoming events and returns state transitions with
// optional outbox events for side effects.
type CycleState interface {
	// ProcessEvent handles an incoming event and returns the next state
	// along with any outbox events to emit.
	ProcessEvent(ctx context.Context, event CycleEvent,
		env *CycleEnvironment) (*CycleTransition, error)

	// IsTerminal returns true if this is a terminal state.
	IsTerminal() bool

	// String returns a human-readable name for the state.
	String() string

	// isCycleState seals the interface.
	isCycleState()
}

// CycleTransition represents the result of processing an event.
type CycleTransition struct {
	NextState    CycleState
	OutboxEvents []CycleOutboxEvent
}

// CycleEnvironment provides context for state transitions. The bucket key
// and strategy are recorded as the cycle passes through selection so the
// scoring transition can emit a complete RecordOutcome.
type CycleEnvironment struct {
	CycleID   string
	Ref       changeset.Ref
	BucketKey string
	Strategy  strategy.Strategy
}

// Compile-time verification that all concrete states implement CycleState.
var (
	_ CycleState = (*StateStart)(nil)
	_ CycleState = (*StateValidated)(nil)
	_ CycleState = (*StateContextRetrieved)(nil)
	_ CycleState = (*StateStrategySelected)(nil)
	_ CycleState = (*StateGenerated)(nil)
	_ CycleState = (*StateAnalyzed)(nil)
	_ CycleState = (*StateScored)(nil)
	_ CycleState = (*StatePersisted)(nil)
	_ CycleState = (*StateRejected)(nil)
	_ CycleState = (*StateFailed)(nil)
)

// StateStart is the initial state before the pull request has been
// resolved. It is the ONLY state from which the cycle can be rejected:
// non-existence detection is the first, unconditional check, and no later
// state accepts a RejectEvent.
type StateStart struct{}

// ProcessEvent handles events in the Start state.
func (s *StateStart) ProcessEvent(_ context.Context, event CycleEvent,
	env *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case RejectEvent:
		return &CycleTransition{
			NextState: &StateRejected{Reason: e.Reason},
			OutboxEvents: []CycleOutboxEvent{
				LogRejection{
					CycleID: env.CycleID,
					Reason:  e.Reason,
				},
			},
		}, nil

	case ValidatedEvent:
		if e.ChangeSet == nil || len(e.ChangeSet.Files) == 0 {
			return nil, fmt.Errorf(
				"validated event carries empty change set",
			)
		}
		return &CycleTransition{
			NextState: &StateValidated{},
		}, nil

	case FailEvent:
		return failTransition(e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Start", event,
		)
	}
}

func (s *StateStart) IsTerminal() bool { return false }
func (s *StateStart) String() string   { return "start" }
func (s *StateStart) isCycleState()    {}

// StateValidated indicates the PR resolved to a well-formed change set.
type StateValidated struct{}

// ProcessEvent handles events in the Validated state. Retrieval always
// succeeds (an empty context is a valid result), so the only transitions
// are forward or a hard failure.
func (s *StateValidated) ProcessEvent(_ context.Context, event CycleEvent,
	_ *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case ContextRetrievedEvent:
		return &CycleTransition{
			NextState: &StateContextRetrieved{},
		}, nil

	case FailEvent:
		return failTransition(e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Validated", event,
		)
	}
}

func (s *StateValidated) IsTerminal() bool { return false }
func (s *StateValidated) String() string   { return "validated" }
func (s *StateValidated) isCycleState()    {}

// StateContextRetrieved indicates the rule context has been retrieved.
type StateContextRetrieved struct{}

// ProcessEvent handles events in the ContextRetrieved state.
func (s *StateContextRetrieved) ProcessEvent(_ context.Context,
	event CycleEvent, env *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case StrategySelectedEvent:
		env.BucketKey = e.BucketKey
		env.Strategy = e.Strategy
		return &CycleTransition{
			NextState: &StateStrategySelected{},
		}, nil

	case FailEvent:
		return failTransition(e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state ContextRetrieved", event,
		)
	}
}

func (s *StateContextRetrieved) IsTerminal() bool { return false }
func (s *StateContextRetrieved) String() string   { return "context_retrieved" }
func (s *StateContextRetrieved) isCycleState()    {}

// StateStrategySelected indicates a reasoning strategy has been chosen and
// generation plus static analysis are in flight.
type StateStrategySelected struct{}

// ProcessEvent handles events in the StrategySelected state. A generation
// failure fails the whole cycle: a review with no generated text must not
// be scored or persisted as if it were one.
func (s *StateStrategySelected) ProcessEvent(_ context.Context,
	event CycleEvent, _ *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case GeneratedEvent:
		return &CycleTransition{
			NextState: &StateGenerated{},
		}, nil

	case FailEvent:
		return failTransition(e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state StrategySelected", event,
		)
	}
}

func (s *StateStrategySelected) IsTerminal() bool { return false }
func (s *StateStrategySelected) String() string   { return "strategy_selected" }
func (s *StateStrategySelected) isCycleState()    {}

// StateGenerated indicates review text has been generated; the cycle now
// waits for static analysis to complete.
type StateGenerated struct{}

// ProcessEvent handles events in the Generated state.
func (s *StateGenerated) ProcessEvent(_ context.Context, event CycleEvent,
	_ *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case AnalyzedEvent:
		return &CycleTransition{
			NextState: &StateAnalyzed{},
		}, nil

	case FailEvent:
		return failTransition(e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Generated", event,
		)
	}
}

func (s *StateGenerated) IsTerminal() bool { return false }
func (s *StateGenerated) String() string   { return "generated" }
func (s *StateGenerated) isCycleState()    {}

// StateAnalyzed indicates static findings have been merged; the outcome
// signal is computed next.
type StateAnalyzed struct{}

// ProcessEvent handles events in the Analyzed state. The scoring
// transition emits the one and only RecordOutcome for the cycle.
func (s *StateAnalyzed) ProcessEvent(_ context.Context, event CycleEvent,
	env *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case ScoredEvent:
		return &CycleTransition{
			NextState: &StateScored{},
			OutboxEvents: []CycleOutboxEvent{
				RecordOutcome{
					BucketKey: env.BucketKey,
					Strategy:  env.Strategy,
					Reward:    e.Reward,
				},
			},
		}, nil

	case FailEvent:
		return failTransition(e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Analyzed", event,
		)
	}
}

func (s *StateAnalyzed) IsTerminal() bool { return false }
func (s *StateAnalyzed) String() string   { return "analyzed" }
func (s *StateAnalyzed) isCycleState()    {}

// StateScored indicates the outcome signal has been recorded.
type StateScored struct{}

// ProcessEvent handles events in the Scored state.
func (s *StateScored) ProcessEvent(_ context.Context, event CycleEvent,
	_ *CycleEnvironment,
) (*CycleTransition, error) {
	switch e := event.(type) {
	case CompleteEvent:
		return &CycleTransition{
			NextState: &StatePersisted{},
			OutboxEvents: []CycleOutboxEvent{
				PersistResult{Result: e.Result},
			},
		}, nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Scored", event,
		)
	}
}

func (s *StateScored) IsTerminal() bool { return false }
func (s *StateScored) String() string   { return "scored" }
func (s *StateScored) isCycleState()    {}

// StatePersisted is the successful terminal state.
type StatePersisted struct{}

// ProcessEvent returns an error since Persisted is a terminal state.
func (s *StatePersisted) ProcessEvent(_ context.Context, event CycleEvent,
	_ *CycleEnvironment,
) (*CycleTransition, error) {
	return nil, fmt.Errorf(
		"cycle is in terminal state Persisted, cannot process %T",
		event,
	)
}

func (s *StatePersisted) IsTerminal() bool { return true }
func (s *StatePersisted) String() string   { return "persisted" }
func (s *StatePersisted) isCycleState()    {}

// StateRejected is the terminal state for cycles whose PR does not exist.
// It is reachable only from Start.
type StateRejected struct {
	Reason string
}

// ProcessEvent returns an error since Rejected is a terminal state.
func (s *StateRejected) ProcessEvent(_ context.Context, event CycleEvent,
	_ *CycleEnvironment,
) (*CycleTransition, error) {
	return nil, fmt.Errorf(
		"cycle is in terminal state Rejected, cannot process %T",
		event,
	)
}

func (s *StateRejected) IsTerminal() bool { return true }
func (s *StateRejected) String() string   { return "rejected" }
func (s *StateRejected) isCycleState()    {}

// StateFailed is the terminal state for generation or tooling failures.
// Failed cycles never update the selector.
type StateFailed struct {
	Err error
}

// ProcessEvent returns an error since Failed is a terminal state.
func (s *StateFailed) ProcessEvent(_ context.Context, event CycleEvent,
	_ *CycleEnvironment,
) (*CycleTransition, error) {
	return nil, fmt.Errorf(
		"cycle is in terminal state Failed, cannot process %T",
		event,
	)
}

func (s *StateFailed) IsTerminal() bool { return true }
func (s *StateFailed) String() string   { return "failed" }
func (s *StateFailed) isCycleState()    {}

// failTransition is the shared transition into the Failed terminal state.
func failTransition(e FailEvent) *CycleTransition {
	return &CycleTransition{
		NextState: &StateFailed{Err: e.Err},
	}
}
