package learner

import (
	"math"

	"github.com/roasbeef/critic/internal/strategy"
)

// ArmStats tracks how one strategy has performed within one context
// bucket. Trials is never negative and TotalReward is always finite.
type ArmStats struct {
	// Trials is the number of completed review cycles that used this
	// strategy for this bucket.
	Trials int64

	// TotalReward is the sum of outcome signals across those trials.
	TotalReward float64
}

// Average returns the mean reward, or ok=false when no trials have been
// recorded yet (the caller substitutes the optimistic initial value).
func (a ArmStats) Average() (float64, bool) {
	if a.Trials == 0 {
		return 0, false
	}

	return a.TotalReward / float64(a.Trials), true
}

// valid reports whether the stats satisfy the state invariants.
func (a ArmStats) valid() bool {
	return a.Trials >= 0 &&
		!math.IsNaN(a.TotalReward) && !math.IsInf(a.TotalReward, 0)
}

// State maps context bucket keys to per-strategy performance statistics.
// It is the one piece of shared mutable state spanning concurrent review
// cycles; only the Selector's update step mutates it.
type State map[string]map[strategy.Strategy]ArmStats

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for bucket, arms := range s {
		c := make(map[strategy.Strategy]ArmStats, len(arms))
		for strat, stats := range arms {
			c[strat] = stats
		}
		out[bucket] = c
	}

	return out
}

// bucket returns the arm map for a bucket key, creating it with all
// strategies at zero trials on first sight.
func (s State) bucket(key string) map[strategy.Strategy]ArmStats {
	arms, ok := s[key]
	if !ok {
		arms = make(map[strategy.Strategy]ArmStats)
		for _, strat := range strategy.All() {
			arms[strat] = ArmStats{}
		}
		s[key] = arms
	}

	return arms
}
