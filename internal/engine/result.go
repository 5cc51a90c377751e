package engine

import (
	"time"

	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/retrieval"
	"github.com/roasbeef/critic/internal/strategy"
)

// ReviewResult is the assembled output of a completed review cycle.
type ReviewResult struct {
	// ID is the unique identifier of the review cycle.
	ID string

	// Ref identifies the pull request that was reviewed.
	Ref changeset.Ref

	// BucketKey is the change-set bucket the cycle was classified into.
	BucketKey string

	// StrategyUsed is the reasoning strategy selected for this cycle.
	StrategyUsed strategy.Strategy

	// ContextUsed holds the rule documents retrieved for the review.
	ContextUsed retrieval.Context

	// GeneratedText is the full generated review.
	GeneratedText string

	// Verdict is the structured verdict parsed from the generated text,
	// if one was present.
	Verdict *Verdict

	// Findings are the merged, normalized static analysis findings.
	Findings []analysis.Finding

	// OutcomeSignal is the reward recorded against the selected
	// strategy, in [0, 1].
	OutcomeSignal float64

	// CreatedAt is when the cycle completed.
	CreatedAt time.Time
}

// Outcome is the sealed interface describing how a review cycle ended.
type Outcome interface {
	// isOutcome seals the interface.
	isOutcome()
}

// Rejected indicates the cycle short-circuited because the pull request
// does not exist.
type Rejected struct {
	// Reason describes why the cycle was rejected.
	Reason string
}

// Completed indicates the cycle produced a full review result.
type Completed struct {
	// Result is the assembled review output.
	Result *ReviewResult

	// LearningErr is non-nil when the outcome was recorded in memory but
	// persisting the learning state failed. The result is still valid.
	LearningErr error

	// PersistErr is non-nil when storing the finished result failed.
	// The result is still valid.
	PersistErr error
}

// Failed indicates the cycle aborted before producing a result.
type Failed struct {
	// Err is the error that aborted the cycle.
	Err error
}

// Ensure all outcome types implement the Outcome interface.
func (Rejected) isOutcome()  {}
func (Completed) isOutcome() {}
func (Failed) isOutcome()    {}
