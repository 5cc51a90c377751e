package engine

import (
	"strings"
	"testing"

	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/knowledge"
	"github.com/roasbeef/critic/internal/retrieval"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefaultRewardComponents(t *testing.T) {
	rctx := retrieval.Context{
		Documents: []knowledge.ScoredDocument{{
			Document: knowledge.Document{ID: "doc-abc123"},
			Score:    0.9,
		}},
	}
	findings := []analysis.Finding{{
		File: "pkg/api.py", Line: 3, RuleID: "W0001",
	}}

	// A long review citing the rule doc, covering the flagged file, and
	// carrying a verdict earns every component.
	full := strings.Repeat("analysis of pkg/api.py per doc-abc123. ", 10)
	reward := DefaultReward(full, &Verdict{Decision: "approve"}, rctx,
		findings)
	require.Equal(t, 1.0, reward)

	// A stub citing nothing earns only the base.
	reward = DefaultReward("ok", nil, rctx, findings)
	require.Equal(t, rewardBase, reward)
}

func TestDefaultRewardEmptyContextGrantsGrounding(t *testing.T) {
	reward := DefaultReward("ok", nil, retrieval.Context{}, nil)
	require.Equal(t, rewardBase+rewardGrounded+rewardFindingsCover,
		reward)
}

func TestDefaultRewardAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")

		var verdict *Verdict
		if rapid.Bool().Draw(t, "hasVerdict") {
			verdict = &Verdict{Decision: "approve"}
		}

		var findings []analysis.Finding
		if rapid.Bool().Draw(t, "hasFindings") {
			findings = []analysis.Finding{{
				File: rapid.String().Draw(t, "file"),
			}}
		}

		reward := DefaultReward(text, verdict, retrieval.Context{},
			findings)
		require.GreaterOrEqual(t, reward, 0.0)
		require.LessOrEqual(t, reward, 1.0)
	})
}
