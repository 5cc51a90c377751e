package strategy

import "fmt"

// Strategy identifies one of the fixed reasoning strategies used to build
// review prompts. Strategies differ only in prompt construction, never in
// downstream handling. Adding a strategy means extending this set and the
// corresponding branch in BuildPrompt.
type Strategy string

const (
	// ZeroShot asks for a direct review with no scaffolding.
	ZeroShot Strategy = "zero_shot"

	// ChainOfThought walks the backend through step-by-step analysis
	// before the final review.
	ChainOfThought Strategy = "chain_of_thought"

	// TreeOfThought explores separate analysis branches and then
	// consolidates them.
	TreeOfThought Strategy = "tree_of_thought"

	// SelfConsistency generates several candidate reviews and keeps the
	// best one.
	SelfConsistency Strategy = "self_consistency"

	// Meta structures the review across fixed quality dimensions.
	Meta Strategy = "meta"
)

// All returns every strategy in fixed priority order. The order doubles as
// the tie-break rule when strategies have equal average reward, which
// keeps selection deterministic.
func All() []Strategy {
	return []Strategy{
		ZeroShot,
		ChainOfThought,
		TreeOfThought,
		SelfConsistency,
		Meta,
	}
}

// Valid reports whether s is a member of the closed strategy set.
func Valid(s Strategy) bool {
	switch s {
	case ZeroShot, ChainOfThought, TreeOfThought, SelfConsistency, Meta:
		return true
	default:
		return false
	}
}

// FromString parses a persisted strategy name.
func FromString(s string) (Strategy, error) {
	strat := Strategy(s)
	if !Valid(strat) {
		return "", fmt.Errorf("unknown strategy %q", s)
	}

	return strat, nil
}
