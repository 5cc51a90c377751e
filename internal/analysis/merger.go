package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roasbeef/critic/internal/changeset"
)

// Merger invokes per-language analysis adapters and merges their findings
// into a single normalized, deduplicated, ordered list.
type Merger struct {
	adapters map[string]Adapter
}

// NewMerger creates a merger over the given language→adapter table.
func NewMerger(adapters map[string]Adapter) *Merger {
	if adapters == nil {
		adapters = make(map[string]Adapter)
	}

	return &Merger{adapters: adapters}
}

// languageResult carries one language's outcome back from its goroutine.
type languageResult struct {
	language string
	raw      []RawFinding
	err      error
}

// Analyze groups the change set's files by language and invokes the
// corresponding adapter once per distinct language, concurrently. A
// language with no registered adapter, or whose adapter reports
// ErrToolUnavailable, contributes a single informational degraded-coverage
// finding instead of failing the cycle. Any other adapter error aborts the
// analysis.
func (m *Merger) Analyze(ctx context.Context,
	cs *changeset.ChangeSet,
) ([]Finding, error) {
	groups := cs.FilesByLanguage()

	// Deterministic dispatch order keeps logs stable.
	langs := make([]string, 0, len(groups))
	for lang := range groups {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	results := make(chan languageResult, len(langs))
	var wg sync.WaitGroup
	for _, lang := range langs {
		adapter, ok := m.adapters[lang]
		if !ok {
			results <- languageResult{
				language: lang,
				err:      ErrToolUnavailable,
			}
			continue
		}

		wg.Add(1)
		go func(lang string, files []changeset.FileDiff) {
			defer wg.Done()

			raw, err := adapter.Run(ctx, lang, files)
			results <- languageResult{
				language: lang,
				raw:      raw,
				err:      err,
			}
		}(lang, groups[lang])
	}

	wg.Wait()
	close(results)

	var merged []RawFinding
	for res := range results {
		switch {
		case res.err == nil:
			merged = append(merged, res.raw...)

		case errors.Is(res.err, ErrToolUnavailable):
			log.WarnS(ctx, "Analysis tool unavailable, coverage "+
				"degraded", res.err,
				"language", res.language)

			merged = append(merged, degradedCoverage(res.language))

		default:
			return nil, fmt.Errorf("analyze %s: %w",
				res.language, res.err)
		}
	}

	findings := normalize(merged)

	log.DebugS(ctx, "Static analysis merged",
		"languages", len(langs),
		"findings", len(findings))

	return findings, nil
}

// degradedCoverage is the informational finding recorded when a language
// could not be analyzed. The language is part of the rule ID so findings
// for distinct unavailable languages never collapse in deduplication.
func degradedCoverage(language string) RawFinding {
	return RawFinding{
		Severity: string(SeverityInfo),
		RuleID:   degradedCoverageRuleID(language),
		Message: fmt.Sprintf(
			"static analysis unavailable for %s; coverage "+
				"degraded", language,
		),
	}
}

// degradedCoverageRuleID returns the rule ID marking degraded analysis
// coverage for a language.
func degradedCoverageRuleID(language string) string {
	return "degraded-coverage/" + language
}
