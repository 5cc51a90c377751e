package knowledge

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// tagsPrefix marks a paragraph that lists tags for the enclosing section,
// e.g. "Tags: python, style".
const tagsPrefix = "tags:"

// ParseRules splits a markdown rule file into one RuleDocument per
// heading-delimited section. Section text is the heading plus its body.
// Tags come from a "Tags: a, b" paragraph within the section, plus any
// base tags supplied by the caller (typically derived from the file name).
func ParseRules(src []byte, baseTags ...string) []RuleDocument {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var (
		rules   []RuleDocument
		section strings.Builder
		tags    []string
	)

	flush := func() {
		body := strings.TrimSpace(section.String())
		if body == "" {
			return
		}
		rules = append(rules, RuleDocument{
			Text: body,
			Tags: mergeTags(baseTags, tags),
		})
		section.Reset()
		tags = nil
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*ast.Heading); ok {
			flush()
		}

		block := nodeText(n, src)
		if _, ok := n.(*ast.Paragraph); ok {
			lower := strings.ToLower(block)
			if strings.HasPrefix(lower, tagsPrefix) {
				tags = append(tags, splitTags(
					block[len(tagsPrefix):],
				)...)
				continue
			}
		}

		if block != "" {
			if section.Len() > 0 {
				section.WriteString("\n")
			}
			section.WriteString(block)
		}
	}
	flush()

	return rules
}

// nodeText extracts the raw text content of a block node.
func nodeText(n ast.Node, src []byte) string {
	var buf strings.Builder

	_ = ast.Walk(n, func(child ast.Node,
		entering bool,
	) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch t := child.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}

		case *ast.FencedCodeBlock:
			lines := t.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

// splitTags parses a comma-separated tag list.
func splitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

// mergeTags combines base and section tags, deduplicated.
func mergeTags(base, extra []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range append(append([]string(nil), base...), extra...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}
