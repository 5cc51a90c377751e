package learner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/critic/internal/strategy"
)

// ErrPersistence indicates the selector state could not be durably
// written. The in-memory statistics are still updated, but callers must
// surface the failure: silently dropping it would corrupt every future
// strategy decision made after a restart.
var ErrPersistence = errors.New("selector state persistence failed")

const (
	// DefaultEpsilon is the exploration probability: the fraction of
	// selections that pick a uniformly random strategy instead of the
	// best-performing one.
	DefaultEpsilon = 0.1

	// optimisticInitial is the average reward assumed for a strategy
	// with zero trials. Set to the reward ceiling so untried strategies
	// win against any partially-explored one, forcing early coverage of
	// all arms.
	optimisticInitial = 1.0
)

// StateStore persists selector state durably across restarts. Saving then
// loading must round-trip exactly: integers bit-for-bit, rewards within
// 1e-9.
type StateStore interface {
	SaveSelectorState(ctx context.Context, state State) error
	LoadSelectorState(ctx context.Context) (State, error)
}

// Config configures a Selector.
type Config struct {
	// Epsilon is the exploration probability. Zero means fully greedy,
	// which also makes Select a pure function of the state for tests.
	Epsilon float64

	// Store persists state after every update. May be nil for purely
	// in-memory operation (tests).
	Store StateStore

	// Seed fixes the exploration RNG seed. Defaults to a random seed.
	Seed fn.Option[int64]
}

// Selector implements the epsilon-greedy strategy policy with persisted
// learning state. All methods are safe for concurrent use: the update
// step's read-modify-write-persist sequence runs under a single lock, so
// concurrent cycles can never lose each other's trial increments.
type Selector struct {
	cfg Config

	mu    sync.Mutex
	state State
	rng   *rand.Rand
}

// NewSelector creates a selector with empty state.
func NewSelector(cfg Config) *Selector {
	seed1, seed2 := rand.Uint64(), rand.Uint64()
	cfg.Seed.WhenSome(func(seed int64) {
		seed1, seed2 = uint64(seed), 0
	})

	return &Selector{
		cfg:   cfg,
		state: make(State),
		rng:   rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Load replaces the in-memory state from the backing store. Called once at
// startup, before any cycles run.
func (s *Selector) Load(ctx context.Context) error {
	if s.cfg.Store == nil {
		return nil
	}

	state, err := s.cfg.Store.LoadSelectorState(ctx)
	if err != nil {
		return fmt.Errorf("load selector state: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	log.InfoS(ctx, "Selector state loaded", "buckets", len(state))

	return nil
}

// Select chooses a strategy for the given context bucket. With probability
// epsilon it explores uniformly at random; otherwise it picks the strategy
// with the highest average reward, treating untried strategies as having
// the optimistic initial average. Ties resolve by the fixed strategy
// priority order, so selection under epsilon=0 is deterministic.
func (s *Selector) Select(bucketKey string) strategy.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := strategy.All()
	if s.cfg.Epsilon > 0 && s.rng.Float64() < s.cfg.Epsilon {
		return all[s.rng.IntN(len(all))]
	}

	// Plain map reads only: a missing bucket or arm reads as zero stats,
	// which Average reports as untried. Select must never materialize
	// state, so a cycle that later fails leaves no trace behind.
	arms := s.state[bucketKey]

	best := all[0]
	bestAvg := math.Inf(-1)
	for _, strat := range all {
		avg, ok := arms[strat].Average()
		if !ok {
			avg = optimisticInitial
		}
		// Strict comparison keeps the earlier (higher-priority)
		// strategy on ties.
		if avg > bestAvg {
			best, bestAvg = strat, avg
		}
	}

	return best
}

// Update records the outcome signal for a completed cycle and persists the
// whole state. The read-modify-write-persist sequence is serialized under
// the selector lock; N concurrent updates to the same arm always land N
// trial increments. Rewards outside [0,1] are clamped.
func (s *Selector) Update(ctx context.Context, bucketKey string,
	strat strategy.Strategy, reward float64,
) error {
	if !strategy.Valid(strat) {
		return fmt.Errorf("update with unknown strategy %q", strat)
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("reward must be finite, got %v", reward)
	}
	reward = math.Max(0, math.Min(1, reward))

	s.mu.Lock()
	defer s.mu.Unlock()

	arms := s.state.bucket(bucketKey)
	stats := arms[strat]
	stats.Trials++
	stats.TotalReward += reward
	if !stats.valid() {
		return fmt.Errorf("invalid stats after update: %+v", stats)
	}
	arms[strat] = stats

	log.DebugS(ctx, "Selector updated",
		"bucket", bucketKey,
		"strategy", string(strat),
		"reward", reward,
		"trials", stats.Trials)

	if s.cfg.Store != nil {
		if err := s.cfg.Store.SaveSelectorState(ctx, s.state); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	return nil
}

// Snapshot returns a deep copy of the current state for reporting.
func (s *Selector) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}
