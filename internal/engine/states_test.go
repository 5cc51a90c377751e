package engine

import (
	"context"
	"testing"

	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/strategy"
	"github.com/stretchr/testify/require"
)

func TestStartRejectTransition(t *testing.T) {
	ctx := context.Background()
	fsm := NewCycleFSM(changeset.Ref{Owner: "o", Repo: "r", Number: 1})

	require.Equal(t, "start", fsm.State().String())
	require.False(t, fsm.State().IsTerminal())

	outbox, err := fsm.ProcessEvent(ctx, RejectEvent{Reason: "missing"})
	require.NoError(t, err)
	require.Equal(t, "rejected", fsm.State().String())
	require.True(t, fsm.State().IsTerminal())

	require.Len(t, outbox, 1)
	lr, ok := outbox[0].(LogRejection)
	require.True(t, ok)
	require.Equal(t, "missing", lr.Reason)
	require.Equal(t, fsm.CycleID(), lr.CycleID)
}

// Rejection is only legal before validation: every later state refuses a
// RejectEvent.
func TestRejectOnlyLegalInStart(t *testing.T) {
	ctx := context.Background()
	env := &CycleEnvironment{CycleID: "c1"}

	states := []CycleState{
		&StateValidated{},
		&StateContextRetrieved{},
		&StateStrategySelected{},
		&StateGenerated{},
		&StateAnalyzed{},
		&StateScored{},
	}
	for _, state := range states {
		_, err := state.ProcessEvent(ctx, RejectEvent{Reason: "x"}, env)
		require.Error(t, err, "state %s accepted RejectEvent",
			state.String())
	}
}

func TestTerminalStatesRefuseAllEvents(t *testing.T) {
	ctx := context.Background()
	env := &CycleEnvironment{CycleID: "c1"}

	terminals := []CycleState{
		&StatePersisted{},
		&StateRejected{Reason: "missing"},
		&StateFailed{},
	}
	events := []CycleEvent{
		RejectEvent{Reason: "x"},
		ValidatedEvent{ChangeSet: testChangeSet()},
		GeneratedEvent{Text: "t"},
		FailEvent{},
	}
	for _, state := range terminals {
		require.True(t, state.IsTerminal())
		for _, event := range events {
			_, err := state.ProcessEvent(ctx, event, env)
			require.Error(t, err, "terminal state %s accepted %T",
				state.String(), event)
		}
	}
}

func TestHappyPathTransitions(t *testing.T) {
	ctx := context.Background()
	fsm := NewCycleFSM(changeset.Ref{Owner: "o", Repo: "r", Number: 1})

	_, err := fsm.ProcessEvent(ctx, ValidatedEvent{
		ChangeSet: testChangeSet(),
	})
	require.NoError(t, err)
	require.Equal(t, "validated", fsm.State().String())

	_, err = fsm.ProcessEvent(ctx, ContextRetrievedEvent{})
	require.NoError(t, err)
	require.Equal(t, "context_retrieved", fsm.State().String())

	_, err = fsm.ProcessEvent(ctx, StrategySelectedEvent{
		BucketKey: "python/tiny",
		Strategy:  strategy.ChainOfThought,
	})
	require.NoError(t, err)
	require.Equal(t, "strategy_selected", fsm.State().String())

	_, err = fsm.ProcessEvent(ctx, GeneratedEvent{Text: "review"})
	require.NoError(t, err)
	require.Equal(t, "generated", fsm.State().String())

	_, err = fsm.ProcessEvent(ctx, AnalyzedEvent{})
	require.NoError(t, err)
	require.Equal(t, "analyzed", fsm.State().String())

	// Scoring emits the outcome recorded during selection.
	outbox, err := fsm.ProcessEvent(ctx, ScoredEvent{Reward: 0.5})
	require.NoError(t, err)
	require.Equal(t, "scored", fsm.State().String())
	require.Len(t, outbox, 1)
	ro, ok := outbox[0].(RecordOutcome)
	require.True(t, ok)
	require.Equal(t, "python/tiny", ro.BucketKey)
	require.Equal(t, strategy.ChainOfThought, ro.Strategy)
	require.Equal(t, 0.5, ro.Reward)

	result := &ReviewResult{ID: fsm.CycleID()}
	outbox, err = fsm.ProcessEvent(ctx, CompleteEvent{Result: result})
	require.NoError(t, err)
	require.Equal(t, "persisted", fsm.State().String())
	require.True(t, fsm.State().IsTerminal())
	require.Len(t, outbox, 1)
	pr, ok := outbox[0].(PersistResult)
	require.True(t, ok)
	require.Equal(t, result, pr.Result)
}

func TestFailEventFromIntermediateStates(t *testing.T) {
	ctx := context.Background()

	intermediates := []CycleState{
		&StateStart{},
		&StateValidated{},
		&StateContextRetrieved{},
		&StateStrategySelected{},
		&StateGenerated{},
		&StateAnalyzed{},
	}
	for _, state := range intermediates {
		env := &CycleEnvironment{CycleID: "c1"}
		transition, err := state.ProcessEvent(
			ctx, FailEvent{}, env,
		)
		require.NoError(t, err, "state %s", state.String())
		require.Equal(t, "failed", transition.NextState.String())
		require.Empty(t, transition.OutboxEvents)
	}
}

func TestValidatedEventRequiresFiles(t *testing.T) {
	ctx := context.Background()
	fsm := NewCycleFSM(changeset.Ref{Owner: "o", Repo: "r", Number: 1})

	_, err := fsm.ProcessEvent(ctx, ValidatedEvent{
		ChangeSet: &changeset.ChangeSet{},
	})
	require.Error(t, err)
}
