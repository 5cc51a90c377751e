package changeset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writePatch lays a patch file out the way an export tree does:
// <dir>/<owner>/<repo>/<number>.patch.
func writePatch(t *testing.T, dir string, ref Ref, patch string) {
	t.Helper()

	prDir := filepath.Join(dir, ref.Owner, ref.Repo)
	require.NoError(t, os.MkdirAll(prDir, 0o700))

	path := filepath.Join(prDir, "42.patch")
	require.NoError(t, os.WriteFile(path, []byte(patch), 0o600))
}

func TestPatchDirResolverResolves(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ref := Ref{Owner: "acme", Repo: "widgets", Number: 42}
	writePatch(t, dir, ref, samplePatch)

	cs, err := NewPatchDirResolver(dir).Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "acme", cs.Owner)
	require.Len(t, cs.Files, 2)
}

// TestPatchDirResolverMissing asserts a missing patch file maps to
// ErrNotFound so callers can distinguish it from transient failures.
func TestPatchDirResolverMissing(t *testing.T) {
	t.Parallel()

	r := NewPatchDirResolver(t.TempDir())
	ref := Ref{Owner: "acme", Repo: "widgets", Number: 404}

	_, err := r.Resolve(context.Background(), ref)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorContains(t, err, "acme/widgets#404")
}

func TestPatchDirResolverMalformedPatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ref := Ref{Owner: "acme", Repo: "widgets", Number: 42}
	writePatch(t, dir, ref, "diff --git a/x b/x\n@@ bad @@\nnope\n")

	_, err := NewPatchDirResolver(dir).Resolve(context.Background(), ref)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
