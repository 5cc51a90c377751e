package strategy

import (
	"fmt"
	"strings"

	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/retrieval"
)

// promptDiffCap bounds how much of each file's hunk text is included in
// the prompt. Truncation keeps the head of each hunk.
const promptDiffCap = 4000

// systemPreamble is shared by every strategy.
const systemPreamble = `You are a senior software engineer reviewing a ` +
	`GitHub pull request. Ground every comment in the supplied diff and ` +
	`engineering rules; cite file paths and line references where ` +
	`possible. Do not invent rules that are not listed.`

// strategy-specific instruction blocks. Each block tells the backend how
// to reason before producing the final review.
const (
	zeroShotInstr = `Review the change set directly. Point out bugs, ` +
		`rule violations, and concrete improvements.`

	chainOfThoughtInstr = `Work step by step:
1) Summarize what changed.
2) Identify functional or logic bugs.
3) Check each listed engineering rule against the diff.
4) Suggest prioritized fixes.
Provide only the final review after the analysis.`

	treeOfThoughtInstr = `Explore four branches of analysis, then ` +
		`consolidate:
- Branch A: functional correctness (bugs, edge cases).
- Branch B: engineering-rule compliance (check each listed rule).
- Branch C: performance and security concerns.
- Branch D: tests and documentation.
List short findings per branch, then produce one consolidated review.`

	selfConsistencyInstr = `Generate three concise candidate reviews ` +
		`(label them A, B, C), compare them for correctness and ` +
		`actionability, then return only the best one with a ` +
		`one-line reason for the choice.`

	metaInstr = `Structure the review across these dimensions:
- Summary (1-2 lines).
- Critical bugs that must be fixed before merge.
- Engineering-rule violations (cite the rule text).
- Code quality and maintainability.
- Tests.
Keep it concise and prioritize by severity.`
)

// BuildPrompt assembles the generation prompt from the selected strategy,
// the retrieved rule context, and the change set. Every strategy shares
// the same context and diff sections; only the instruction block differs.
func BuildPrompt(s Strategy, rctx retrieval.Context,
	cs *changeset.ChangeSet,
) string {
	var b strings.Builder

	b.WriteString(systemPreamble)
	b.WriteString("\n\n## Reviewing\n")
	fmt.Fprintf(&b, "%s/%s#%d: %d files, %d changed lines\n",
		cs.Owner, cs.Repo, cs.Number, len(cs.Files), cs.TotalLines)

	b.WriteString("\n## Applicable engineering rules\n")
	switch {
	case rctx.StoreEmpty:
		b.WriteString("No knowledge base has been ingested; review " +
			"using general engineering judgment only.\n")

	case rctx.Empty():
		b.WriteString("No additional rules apply to this change " +
			"set.\n")

	default:
		for i, sd := range rctx.Documents {
			fmt.Fprintf(&b, "%d. [%s] %s\n",
				i+1, sd.Document.ID, sd.Document.Text)
		}
	}

	b.WriteString("\n## Instructions\n")
	b.WriteString(instructions(s))

	b.WriteString("\n\n## Diff\n")
	for _, f := range cs.Files {
		fmt.Fprintf(&b, "--- %s (%s, +%d/-%d)\n",
			f.Path, orUnknown(f.Language),
			f.AddedLines, f.RemovedLines)

		hunk := f.HunkText
		if len(hunk) > promptDiffCap {
			hunk = hunk[:promptDiffCap] + "\n[truncated]\n"
		}
		b.WriteString(hunk)
		b.WriteByte('\n')
	}

	return b.String()
}

// instructions returns the reasoning block for a strategy. The switch is
// exhaustive over the closed strategy set.
func instructions(s Strategy) string {
	switch s {
	case ZeroShot:
		return zeroShotInstr
	case ChainOfThought:
		return chainOfThoughtInstr
	case TreeOfThought:
		return treeOfThoughtInstr
	case SelfConsistency:
		return selfConsistencyInstr
	case Meta:
		return metaInstr
	default:
		return zeroShotInstr
	}
}

func orUnknown(lang string) string {
	if lang == "" {
		return "unknown"
	}
	return lang
}
