package changeset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound indicates the referenced pull request does not exist or is
// not accessible. Resolvers must return an error wrapping this sentinel so
// the orchestrator can distinguish a missing PR from a transient failure.
var ErrNotFound = errors.New("pull request not found")

// PatchDirResolver resolves pull requests from a directory of exported
// patch files laid out as <dir>/<owner>/<repo>/<number>.patch. A missing
// file means the PR does not exist.
type PatchDirResolver struct {
	// Dir is the root of the patch tree.
	Dir string
}

// NewPatchDirResolver creates a resolver rooted at dir.
func NewPatchDirResolver(dir string) *PatchDirResolver {
	return &PatchDirResolver{Dir: dir}
}

// Resolve loads and parses the patch file for ref.
func (r *PatchDirResolver) Resolve(ctx context.Context,
	ref Ref,
) (*ChangeSet, error) {
	path := filepath.Join(
		r.Dir, ref.Owner, ref.Repo, fmt.Sprintf("%d.patch", ref.Number),
	)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf(
				"%w: %s/%s#%d", ErrNotFound,
				ref.Owner, ref.Repo, ref.Number,
			)
		}

		return nil, fmt.Errorf("open patch: %w", err)
	}
	defer f.Close()

	cs, err := Parse(ref, f)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", path, err)
	}

	return cs, nil
}
