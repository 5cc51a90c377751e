package analysis

import "sort"

// Severity classifies a finding. The three levels are a common shape all
// tool-specific severities normalize into.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// rank orders severities for sorting; higher is more severe.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// NormalizeSeverity maps arbitrary tool severity strings onto the common
// scale. Unrecognized values degrade to info rather than being dropped.
func NormalizeSeverity(s string) Severity {
	switch s {
	case "error", "critical", "high", "fatal":
		return SeverityError
	case "warning", "warn", "medium":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// RawFinding is a single tool-reported issue before normalization.
type RawFinding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	RuleID   string `json:"ruleId"`
	Message  string `json:"message"`
}

// Finding is a normalized static-analysis issue.
type Finding struct {
	File     string
	Line     int
	Severity Severity
	RuleID   string
	Message  string
}

// dedupeKey identifies findings that refer to the same issue.
type dedupeKey struct {
	file   string
	line   int
	ruleID string
}

// normalize deduplicates findings by (file, line, ruleId) and orders them
// file path ascending, then line ascending, then severity descending, then
// rule ID ascending so equal locations still order deterministically.
func normalize(raw []RawFinding) []Finding {
	seen := make(map[dedupeKey]struct{}, len(raw))
	findings := make([]Finding, 0, len(raw))
	for _, rf := range raw {
		key := dedupeKey{file: rf.File, line: rf.Line, ruleID: rf.RuleID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		findings = append(findings, Finding{
			File:     rf.File,
			Line:     rf.Line,
			Severity: NormalizeSeverity(rf.Severity),
			RuleID:   rf.RuleID,
			Message:  rf.Message,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Severity != b.Severity {
			return a.Severity.rank() > b.Severity.rank()
		}
		return a.RuleID < b.RuleID
	})

	return findings
}
