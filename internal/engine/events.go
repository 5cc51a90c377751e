package engine

import (
	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/retrieval"
	"github.com/roasbeef/critic/internal/strategy"
)

// CycleEvent is the sealed interface for events that drive the review
// cycle FSM. All event types must implement the unexported isCycleEvent
// method.
type CycleEvent interface {
	// isCycleEvent seals the interface to prevent external
	// implementations.
	isCycleEvent()
}

// Ensure all event types implement CycleEvent.
func (RejectEvent) isCycleEvent()           {}
func (ValidatedEvent) isCycleEvent()        {}
func (ContextRetrievedEvent) isCycleEvent() {}
func (StrategySelectedEvent) isCycleEvent() {}
func (GeneratedEvent) isCycleEvent()        {}
func (AnalyzedEvent) isCycleEvent()         {}
func (ScoredEvent) isCycleEvent()           {}
func (CompleteEvent) isCycleEvent()         {}
func (FailEvent) isCycleEvent()             {}

// RejectEvent is sent when the referenced pull request cannot be resolved.
// It is only legal in the Start state: a cycle that has begun retrieval
// can no longer discover the PR to be missing.
type RejectEvent struct {
	Reason string
}

// ValidatedEvent is sent when the PR resolves to a well-formed, non-empty
// change set.
type ValidatedEvent struct {
	ChangeSet *changeset.ChangeSet
}

// ContextRetrievedEvent is sent when the retriever has produced the rule
// context (possibly empty) for the change set.
type ContextRetrievedEvent struct {
	Context retrieval.Context
}

// StrategySelectedEvent is sent when the selector has chosen a reasoning
// strategy for the cycle's context bucket.
type StrategySelectedEvent struct {
	BucketKey string
	Strategy  strategy.Strategy
}

// GeneratedEvent is sent when the generation backend has produced review
// text.
type GeneratedEvent struct {
	Text string
}

// AnalyzedEvent is sent when static analysis has completed for the change
// set.
type AnalyzedEvent struct {
	Findings []analysis.Finding
}

// ScoredEvent is sent once the outcome signal has been computed from the
// assembled result.
type ScoredEvent struct {
	Reward float64
}

// CompleteEvent is sent when the finished ReviewResult is handed to the
// output collaborator.
type CompleteEvent struct {
	Result *ReviewResult
}

// FailEvent is sent when generation or tooling fails the cycle. Cycles
// that fail never record a selector update.
type FailEvent struct {
	Err error
}
