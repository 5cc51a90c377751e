package knowledge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const rulesMarkdown = `# Error handling

Always check errors returned by deferred Close calls.

Tags: go, errors

# Exception hygiene

Avoid bare except clauses.

` + "```python\ntry:\n    work()\nexcept Exception:\n    pass\n```" + `

Tags: python
`

func TestParseRulesSections(t *testing.T) {
	rules := ParseRules([]byte(rulesMarkdown), "style-guide")
	require.Len(t, rules, 2)

	require.Contains(t, rules[0].Text, "Error handling")
	require.Contains(t, rules[0].Text, "deferred Close")
	require.Equal(t, []string{"style-guide", "go", "errors"},
		rules[0].Tags)

	// Fenced code blocks stay part of the rule text.
	require.Contains(t, rules[1].Text, "bare except")
	require.Contains(t, rules[1].Text, "except Exception:")
	require.Equal(t, []string{"style-guide", "python"}, rules[1].Tags)

	// The tags paragraph itself is not part of the rule text.
	require.NotContains(t, rules[0].Text, "Tags:")
}

func TestParseRulesNoHeadings(t *testing.T) {
	rules := ParseRules([]byte("Just one paragraph of guidance.\n"))
	require.Len(t, rules, 1)
	require.Equal(t, "Just one paragraph of guidance.", rules[0].Text)
	require.Empty(t, rules[0].Tags)
}

func TestParseRulesEmpty(t *testing.T) {
	require.Empty(t, ParseRules(nil))
	require.Empty(t, ParseRules([]byte("   \n\n")))
}

func TestSplitTags(t *testing.T) {
	require.Equal(t, []string{"go", "error handling"},
		splitTags(" Go , Error Handling ,, "))
}
