package analysis

import (
	"context"
	"errors"

	"github.com/roasbeef/critic/internal/changeset"
)

// ErrToolUnavailable indicates a language's analysis tool is missing or
// misconfigured. The merger recovers locally: the cycle continues with
// degraded coverage for that language.
var ErrToolUnavailable = errors.New("analysis tool unavailable")

// Adapter is the black-box contract for one language's external analysis
// tool. One Run call covers every changed file of that language; the
// adapter fans out over files itself, so concurrent external process count
// is bounded by the number of distinct languages in the change set.
type Adapter interface {
	// Run analyzes the given files and returns raw findings, or an
	// error wrapping ErrToolUnavailable when the tool cannot run.
	Run(ctx context.Context, language string,
		files []changeset.FileDiff) ([]RawFinding, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, language string,
	files []changeset.FileDiff) ([]RawFinding, error)

// Run implements Adapter.
func (f AdapterFunc) Run(ctx context.Context, language string,
	files []changeset.FileDiff,
) ([]RawFinding, error) {
	return f(ctx, language, files)
}
