package changeset

import (
	"fmt"
	"io"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// Parse reads a unified diff and normalizes it into a ChangeSet for the
// given pull request reference. Binary files are skipped since there is
// nothing reviewable in their hunks.
func Parse(ref Ref, r io.Reader) (*ChangeSet, error) {
	parsed, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	cs := &ChangeSet{
		Owner:  ref.Owner,
		Repo:   ref.Repo,
		Number: ref.Number,
	}

	for _, f := range parsed {
		if f.IsBinary {
			continue
		}

		path := f.NewName
		if path == "" {
			path = f.OldName
		}

		fd := FileDiff{
			Path:     path,
			Language: DetectLanguage(path),
		}

		var hunks strings.Builder
		for _, frag := range f.TextFragments {
			hunks.WriteString(frag.Header())
			hunks.WriteByte('\n')
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					fd.AddedLines++
				case gitdiff.OpDelete:
					fd.RemovedLines++
				}
				hunks.WriteString(line.Op.String())
				hunks.WriteString(line.Line)
			}
		}
		fd.HunkText = hunks.String()

		cs.Files = append(cs.Files, fd)
		cs.TotalLines += fd.AddedLines + fd.RemovedLines
	}

	return cs, nil
}

// ParseString is a convenience wrapper around Parse for in-memory diffs.
func ParseString(ref Ref, raw string) (*ChangeSet, error) {
	return Parse(ref, strings.NewReader(raw))
}
