package engine

import "github.com/roasbeef/critic/internal/strategy"

// CycleOutboxEvent is the sealed interface for side effects emitted by the
// cycle FSM. The engine dispatches them after each transition; the FSM
// itself never touches the selector, the result store, or the log.
type CycleOutboxEvent interface {
	// isCycleOutboxEvent seals the interface to prevent external
	// implementations.
	isCycleOutboxEvent()
}

// Ensure all outbox event types implement CycleOutboxEvent.
func (LogRejection) isCycleOutboxEvent()  {}
func (RecordOutcome) isCycleOutboxEvent() {}
func (PersistResult) isCycleOutboxEvent() {}

// LogRejection records that a cycle was rejected before any downstream
// work ran. Logging is the only persistence a rejected cycle gets.
type LogRejection struct {
	CycleID string
	Reason  string
}

// RecordOutcome requests a selector update for the completed cycle. This
// is the single mutation path into the shared learning state.
type RecordOutcome struct {
	BucketKey string
	Strategy  strategy.Strategy
	Reward    float64
}

// PersistResult requests that the finished ReviewResult be stored and
// handed to the output collaborator.
type PersistResult struct {
	Result *ReviewResult
}
