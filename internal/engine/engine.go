package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/learner"
	"github.com/roasbeef/critic/internal/retrieval"
	"github.com/roasbeef/critic/internal/strategy"
)

// Resolver fetches the change set for a pull request reference. A PR that
// does not exist is reported by wrapping changeset.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context,
		ref changeset.Ref) (*changeset.ChangeSet, error)
}

// ResultStore persists finished review results.
type ResultStore interface {
	SaveReview(ctx context.Context, result *ReviewResult) error
}

// Config bundles the collaborators and knobs for a review Engine.
type Config struct {
	// Resolver fetches change sets for PR references.
	Resolver Resolver

	// Retriever fetches rule context for a change set.
	Retriever *retrieval.Retriever

	// Selector picks and learns reasoning strategies per bucket.
	Selector *learner.Selector

	// Merger runs per-language static analysis and merges findings.
	Merger *analysis.Merger

	// Generator produces review text from a prompt.
	Generator Generator

	// Results persists finished review results. Optional; when nil
	// results are returned but not stored.
	Results ResultStore

	// Reward scores a completed cycle. Defaults to DefaultReward.
	Reward RewardFunc

	// GenerateRetries is the number of extra generation attempts after
	// a transient failure. Defaults to DefaultGenerateRetries.
	GenerateRetries fn.Option[int]

	// GenerateTimeout bounds each generation attempt.
	GenerateTimeout fn.Option[time.Duration]
}

// Engine orchestrates review cycles: resolve, retrieve, select, generate
// and analyze concurrently, score, learn, persist. Each call to Review
// runs an independent cycle; the Engine itself is safe for concurrent use
// because all mutable learning state lives behind the Selector.
type Engine struct {
	cfg Config
	gen *retryGenerator
}

// New creates a review Engine from the given config.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Resolver == nil:
		return nil, errors.New("engine requires a resolver")
	case cfg.Retriever == nil:
		return nil, errors.New("engine requires a retriever")
	case cfg.Selector == nil:
		return nil, errors.New("engine requires a selector")
	case cfg.Merger == nil:
		return nil, errors.New("engine requires a merger")
	case cfg.Generator == nil:
		return nil, errors.New("engine requires a generator")
	}

	if cfg.Reward == nil {
		cfg.Reward = DefaultReward
	}

	retries := cfg.GenerateRetries.UnwrapOr(DefaultGenerateRetries)

	return &Engine{
		cfg: cfg,
		gen: newRetryGenerator(
			cfg.Generator, retries, cfg.GenerateTimeout,
		),
	}, nil
}

// Review runs one full review cycle for the given PR reference. The
// returned Outcome is one of Rejected, Completed, or Failed; the error
// return is reserved for state machine violations, which indicate a bug.
func (e *Engine) Review(ctx context.Context,
	ref changeset.Ref) (Outcome, error) {

	fsm := NewCycleFSM(ref)

	log.Infof("Cycle %s: reviewing %s/%s#%d", fsm.CycleID(), ref.Owner,
		ref.Repo, ref.Number)

	// Existence is the first, unconditional check. A missing PR
	// short-circuits the cycle before any retrieval, selection, or
	// generation work happens.
	cs, err := e.cfg.Resolver.Resolve(ctx, ref)
	switch {
	case errors.Is(err, changeset.ErrNotFound):
		return e.reject(ctx, fsm, fmt.Sprintf(
			"pull request %s/%s#%d does not exist", ref.Owner,
			ref.Repo, ref.Number,
		))

	case err != nil:
		return e.fail(ctx, fsm, fmt.Errorf("resolving PR: %w", err))

	case len(cs.Files) == 0:
		return e.reject(ctx, fsm, fmt.Sprintf(
			"pull request %s/%s#%d has no reviewable changes",
			ref.Owner, ref.Repo, ref.Number,
		))
	}

	if _, err := fsm.ProcessEvent(
		ctx, ValidatedEvent{ChangeSet: cs},
	); err != nil {
		return nil, err
	}

	// Retrieval degrades rather than fails on an empty knowledge
	// store, so an error here is a hard one.
	rctx, err := e.cfg.Retriever.Retrieve(ctx, cs)
	if err != nil {
		return e.fail(ctx, fsm, fmt.Errorf("retrieving context: %w",
			err))
	}

	if _, err := fsm.ProcessEvent(
		ctx, ContextRetrievedEvent{Context: rctx},
	); err != nil {
		return nil, err
	}

	bucketKey := cs.BucketKey()
	strat := e.cfg.Selector.Select(bucketKey)

	log.Debugf("Cycle %s: bucket=%s strategy=%s, %d context docs",
		fsm.CycleID(), bucketKey, strat, len(rctx.Documents))

	if _, err := fsm.ProcessEvent(ctx, StrategySelectedEvent{
		BucketKey: bucketKey,
		Strategy:  strat,
	}); err != nil {
		return nil, err
	}

	// Generation and static analysis are independent, so they run
	// concurrently. Analysis tool unavailability surfaces as a
	// degraded-coverage finding rather than an error, so any error
	// from either side fails the cycle.
	prompt := strategy.BuildPrompt(strat, rctx, cs)

	type analysisResult struct {
		findings []analysis.Finding
		err      error
	}
	analysisChan := make(chan analysisResult, 1)
	go func() {
		findings, err := e.cfg.Merger.Analyze(ctx, cs)
		analysisChan <- analysisResult{findings: findings, err: err}
	}()

	text, genErr := e.gen.Generate(ctx, prompt)
	anRes := <-analysisChan

	if genErr != nil {
		return e.fail(ctx, fsm, genErr)
	}
	if anRes.err != nil {
		return e.fail(ctx, fsm, fmt.Errorf("static analysis: %w",
			anRes.err))
	}

	if _, err := fsm.ProcessEvent(
		ctx, GeneratedEvent{Text: text},
	); err != nil {
		return nil, err
	}
	if _, err := fsm.ProcessEvent(
		ctx, AnalyzedEvent{Findings: anRes.findings},
	); err != nil {
		return nil, err
	}

	verdict, body := ParseVerdict(text)
	reward := clampReward(e.cfg.Reward(
		body, verdict, rctx, anRes.findings,
	))

	outbox, err := fsm.ProcessEvent(ctx, ScoredEvent{Reward: reward})
	if err != nil {
		return nil, err
	}
	learningErr := e.dispatchLearning(ctx, outbox)

	result := &ReviewResult{
		ID:            fsm.CycleID(),
		Ref:           ref,
		BucketKey:     bucketKey,
		StrategyUsed:  strat,
		ContextUsed:   rctx,
		GeneratedText: body,
		Verdict:       verdict,
		Findings:      anRes.findings,
		OutcomeSignal: reward,
		CreatedAt:     time.Now().UTC(),
	}

	outbox, err = fsm.ProcessEvent(ctx, CompleteEvent{Result: result})
	if err != nil {
		return nil, err
	}
	persistErr := e.dispatchPersist(ctx, outbox)

	log.Infof("Cycle %s: completed, strategy=%s reward=%.2f, "+
		"%d findings", fsm.CycleID(), strat, reward,
		len(anRes.findings))

	return Completed{
		Result:      result,
		LearningErr: learningErr,
		PersistErr:  persistErr,
	}, nil
}

// reject drives the FSM into the Rejected terminal state and dispatches
// its outbox events.
func (e *Engine) reject(ctx context.Context, fsm *CycleFSM,
	reason string) (Outcome, error) {

	outbox, err := fsm.ProcessEvent(ctx, RejectEvent{Reason: reason})
	if err != nil {
		return nil, err
	}

	for _, ev := range outbox {
		if lr, ok := ev.(LogRejection); ok {
			log.Infof("Cycle %s: rejected: %s", lr.CycleID,
				lr.Reason)
		}
	}

	return Rejected{Reason: reason}, nil
}

// fail drives the FSM into the Failed terminal state. Failed cycles never
// record an outcome against the selector.
func (e *Engine) fail(ctx context.Context, fsm *CycleFSM,
	cycleErr error) (Outcome, error) {

	if _, err := fsm.ProcessEvent(
		ctx, FailEvent{Err: cycleErr},
	); err != nil {
		return nil, err
	}

	log.Errorf("Cycle %s: failed: %v", fsm.CycleID(), cycleErr)

	return Failed{Err: cycleErr}, nil
}

// dispatchLearning applies any RecordOutcome events to the selector. A
// persistence failure is surfaced to the caller but never aborts the
// cycle: the in-memory update already happened.
func (e *Engine) dispatchLearning(ctx context.Context,
	events []CycleOutboxEvent) error {

	var learningErr error
	for _, ev := range events {
		ro, ok := ev.(RecordOutcome)
		if !ok {
			continue
		}

		err := e.cfg.Selector.Update(
			ctx, ro.BucketKey, ro.Strategy, ro.Reward,
		)
		if err != nil {
			log.Warnf("Recording outcome for bucket %s: %v",
				ro.BucketKey, err)
			learningErr = errors.Join(learningErr, err)
		}
	}

	return learningErr
}

// dispatchPersist stores any PersistResult events. Storage failures are
// surfaced but the assembled result is still returned to the caller.
func (e *Engine) dispatchPersist(ctx context.Context,
	events []CycleOutboxEvent) error {

	if e.cfg.Results == nil {
		return nil
	}

	var persistErr error
	for _, ev := range events {
		pr, ok := ev.(PersistResult)
		if !ok {
			continue
		}

		if err := e.cfg.Results.SaveReview(ctx, pr.Result); err != nil {
			log.Warnf("Persisting review %s: %v", pr.Result.ID,
				err)
			persistErr = errors.Join(persistErr, err)
		}
	}

	return persistErr
}
