package engine

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Verdict is the structured summary a generated review may carry as a YAML
// front matter block.
type Verdict struct {
	// Decision is the overall recommendation, typically one of approve,
	// request_changes, or comment.
	Decision string `yaml:"decision"`

	// Confidence is the generator's self-reported confidence in [0, 1].
	Confidence float64 `yaml:"confidence"`

	// Summary is a one-line summary of the review.
	Summary string `yaml:"summary"`
}

const frontMatterDelim = "---"

// ParseVerdict extracts a YAML front matter verdict from generated review
// text. It returns the verdict (or nil if none is present) and the review
// body with the front matter stripped. Malformed front matter is treated
// as absent rather than failing the cycle.
func ParseVerdict(text string) (*Verdict, string) {
	trimmed := strings.TrimLeft(text, "\r\n")
	if !strings.HasPrefix(trimmed, frontMatterDelim+"\n") {
		return nil, text
	}

	rest := trimmed[len(frontMatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		return nil, text
	}

	block := rest[:end]
	body := rest[end+len(frontMatterDelim)+1:]
	body = strings.TrimLeft(body, "\r\n")

	var v Verdict
	if err := yaml.Unmarshal([]byte(block), &v); err != nil {
		log.Debugf("Ignoring malformed verdict front matter: %v", err)
		return nil, text
	}
	if v.Decision == "" {
		return nil, text
	}

	if v.Confidence < 0 {
		v.Confidence = 0
	} else if v.Confidence > 1 {
		v.Confidence = 1
	}

	return &v, body
}
