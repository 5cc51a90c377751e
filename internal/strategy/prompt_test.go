package strategy

import (
	"strings"
	"testing"

	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/knowledge"
	"github.com/roasbeef/critic/internal/retrieval"
	"github.com/stretchr/testify/require"
)

func promptChangeSet() *changeset.ChangeSet {
	return &changeset.ChangeSet{
		Owner:  "acme",
		Repo:   "widgets",
		Number: 7,
		Files: []changeset.FileDiff{{
			Path:         "pkg/widget.go",
			Language:     "go",
			AddedLines:   4,
			RemovedLines: 1,
			HunkText:     "+func New() *Widget { return nil }",
		}},
		TotalLines: 5,
	}
}

func ruleContext() retrieval.Context {
	return retrieval.Context{
		Documents: []knowledge.ScoredDocument{
			{
				Document: knowledge.Document{
					ID:   "doc-aaa",
					Text: "Never return nil from constructors.",
				},
				Score: 0.9,
			},
			{
				Document: knowledge.Document{
					ID:   "doc-bbb",
					Text: "Wrap errors with context.",
				},
				Score: 0.5,
			},
		},
	}
}

// TestBuildPromptIncludesRules asserts retrieved rules appear as a numbered
// list citing document IDs, in retrieval order.
func TestBuildPromptIncludesRules(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(ChainOfThought, ruleContext(), promptChangeSet())

	require.Contains(t, prompt, "1. [doc-aaa] Never return nil from "+
		"constructors.")
	require.Contains(t, prompt, "2. [doc-bbb] Wrap errors with context.")
	require.Less(t, strings.Index(prompt, "doc-aaa"),
		strings.Index(prompt, "doc-bbb"))

	// The header must identify what is being reviewed.
	require.Contains(t, prompt, "acme/widgets#7: 1 files, 5 changed lines")
}

// TestBuildPromptInstructionBlocks asserts each strategy yields a distinct
// instruction block while the shared sections stay identical.
func TestBuildPromptInstructionBlocks(t *testing.T) {
	t.Parallel()

	cs := promptChangeSet()
	rctx := ruleContext()

	markers := map[Strategy]string{
		ZeroShot:        "Review the change set directly.",
		ChainOfThought:  "Work step by step:",
		TreeOfThought:   "Branch A: functional correctness",
		SelfConsistency: "three concise candidate reviews",
		Meta:            "Critical bugs that must be fixed before merge.",
	}

	prompts := make(map[Strategy]string)
	for _, s := range All() {
		prompts[s] = BuildPrompt(s, rctx, cs)
		require.Contains(t, prompts[s], markers[s], "strategy %v", s)
		require.Contains(t, prompts[s], "## Instructions")
	}

	// All five must differ pairwise.
	seen := make(map[string]Strategy)
	for s, p := range prompts {
		prev, dup := seen[p]
		require.False(t, dup, "%v and %v share a prompt", prev, s)
		seen[p] = s
	}
}

// TestBuildPromptEmptyStore asserts the prompt states that no knowledge base
// exists rather than silently omitting the rules section.
func TestBuildPromptEmptyStore(t *testing.T) {
	t.Parallel()

	rctx := retrieval.Context{StoreEmpty: true}
	prompt := BuildPrompt(ZeroShot, rctx, promptChangeSet())

	require.Contains(t, prompt, "No knowledge base has been ingested")
	require.NotContains(t, prompt, "No additional rules")
}

// TestBuildPromptNoRelevantRules covers a populated store where nothing
// cleared the relevance floor.
func TestBuildPromptNoRelevantRules(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(ZeroShot, retrieval.Context{}, promptChangeSet())

	require.Contains(t, prompt, "No additional rules apply")
	require.NotContains(t, prompt, "No knowledge base")
}

// TestBuildPromptTruncatesLongHunks asserts per-file hunk text is capped and
// the truncation is marked.
func TestBuildPromptTruncatesLongHunks(t *testing.T) {
	t.Parallel()

	cs := promptChangeSet()
	cs.Files[0].HunkText = strings.Repeat("+x\n", promptDiffCap)

	prompt := BuildPrompt(ZeroShot, retrieval.Context{}, cs)

	require.Contains(t, prompt, "[truncated]")
	require.Less(t, len(prompt), 2*promptDiffCap+2048)
}

// TestBuildPromptUnknownLanguage asserts files without a recognized language
// are labeled rather than left blank.
func TestBuildPromptUnknownLanguage(t *testing.T) {
	t.Parallel()

	cs := promptChangeSet()
	cs.Files[0].Language = ""

	prompt := BuildPrompt(ZeroShot, retrieval.Context{}, cs)

	require.Contains(t, prompt, "--- pkg/widget.go (unknown, +4/-1)")
}

func TestStrategyFromString(t *testing.T) {
	t.Parallel()

	for _, s := range All() {
		parsed, err := FromString(string(s))
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	_, err := FromString("galaxy_brain")
	require.ErrorContains(t, err, "unknown strategy")

	require.False(t, Valid(Strategy("")))
}

// TestAllOrderIsStable pins the priority order used to break selection ties.
func TestAllOrderIsStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, []Strategy{
		ZeroShot,
		ChainOfThought,
		TreeOfThought,
		SelfConsistency,
		Meta,
	}, All())
}
