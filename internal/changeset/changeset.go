package changeset

// FileDiff is a single changed file within a change set. HunkText holds the
// raw unified-diff hunks for the file, which downstream consumers truncate
// as needed.
type FileDiff struct {
	// Path is the post-change path of the file.
	Path string

	// Language is the detected source language, e.g. "go" or "python".
	// Empty when the extension is not recognized.
	Language string

	// AddedLines is the number of added lines across all hunks.
	AddedLines int

	// RemovedLines is the number of removed lines across all hunks.
	RemovedLines int

	// HunkText is the concatenated hunk text for the file.
	HunkText string
}

// ChangeSet is the normalized representation of one pull request under
// review. It is immutable input to a single review cycle.
type ChangeSet struct {
	// Owner is the repository owner.
	Owner string

	// Repo is the repository name.
	Repo string

	// Number is the pull request number.
	Number int

	// Files is the ordered list of changed files.
	Files []FileDiff

	// TotalLines is the total number of changed (added + removed) lines.
	TotalLines int
}

// Ref identifies a pull request to review.
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

// PrimaryLanguage returns the language accounting for the most changed
// lines in the set, falling back to the first file's language. Files with
// no recognized language are ignored unless nothing else is present.
func (cs *ChangeSet) PrimaryLanguage() string {
	counts := make(map[string]int)
	for _, f := range cs.Files {
		if f.Language == "" {
			continue
		}
		counts[f.Language] += f.AddedLines + f.RemovedLines
	}

	best, bestLines := "", -1
	for lang, lines := range counts {
		// Ties broken by lexicographic order so the result is stable
		// regardless of map iteration order.
		if lines > bestLines || (lines == bestLines && lang < best) {
			best, bestLines = lang, lines
		}
	}
	if best == "" {
		return "unknown"
	}

	return best
}

// Languages returns the distinct recognized languages present in the change
// set, in first-seen file order.
func (cs *ChangeSet) Languages() []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, f := range cs.Files {
		if f.Language == "" {
			continue
		}
		if _, ok := seen[f.Language]; ok {
			continue
		}
		seen[f.Language] = struct{}{}
		langs = append(langs, f.Language)
	}

	return langs
}

// FilesByLanguage groups the change set's files by recognized language.
// Files with no recognized language are omitted.
func (cs *ChangeSet) FilesByLanguage() map[string][]FileDiff {
	groups := make(map[string][]FileDiff)
	for _, f := range cs.Files {
		if f.Language == "" {
			continue
		}
		groups[f.Language] = append(groups[f.Language], f)
	}

	return groups
}
