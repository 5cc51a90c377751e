package engine

import (
	"strings"

	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/retrieval"
)

// RewardFunc computes the outcome signal for a completed cycle. The value
// is clamped to [0, 1] by the caller before being recorded.
type RewardFunc func(text string, verdict *Verdict, rctx retrieval.Context,
	findings []analysis.Finding) float64

// Reward component weights. A review earns partial credit for each
// quality signal it exhibits.
const (
	rewardBase          = 0.25
	rewardSubstantive   = 0.25
	rewardGrounded      = 0.25
	rewardFindingsCover = 0.15
	rewardVerdict       = 0.10

	// substantiveMinLen is the minimum review length that counts as a
	// substantive review rather than a stub.
	substantiveMinLen = 200
)

// DefaultReward scores a generated review on cheap proxies for quality:
// whether it is substantive, whether it cites the retrieved rule
// documents, whether it mentions the files static analysis flagged, and
// whether it carries a structured verdict.
func DefaultReward(text string, verdict *Verdict, rctx retrieval.Context,
	findings []analysis.Finding) float64 {

	reward := rewardBase

	if len(strings.TrimSpace(text)) >= substantiveMinLen {
		reward += rewardSubstantive
	}

	// Grounding: at least one retrieved document ID is cited in the
	// text. When no context was retrieved the component is granted, as
	// there was nothing to cite.
	if rctx.Empty() {
		reward += rewardGrounded
	} else {
		for _, doc := range rctx.Documents {
			if strings.Contains(text, doc.Document.ID) {
				reward += rewardGrounded
				break
			}
		}
	}

	// Coverage: the review discusses at least one file that static
	// analysis flagged. With no findings the component is granted.
	if len(findings) == 0 {
		reward += rewardFindingsCover
	} else {
		for _, f := range findings {
			if f.File != "" && strings.Contains(text, f.File) {
				reward += rewardFindingsCover
				break
			}
		}
	}

	if verdict != nil {
		reward += rewardVerdict
	}

	return clampReward(reward)
}

// clampReward bounds a reward to [0, 1].
func clampReward(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
