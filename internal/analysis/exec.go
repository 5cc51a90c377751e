package analysis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/roasbeef/critic/internal/changeset"
)

// ExecAdapter runs an external analysis command for a language. The
// command receives the changed file paths as arguments and must print one
// JSON-encoded raw finding per line to stdout. A missing binary surfaces
// as ErrToolUnavailable so the merger can degrade coverage instead of
// failing the review cycle.
type ExecAdapter struct {
	// Command is the program to run followed by any fixed arguments.
	Command []string
}

// NewExecAdapter creates an adapter for the given command line.
func NewExecAdapter(command []string) *ExecAdapter {
	return &ExecAdapter{Command: command}
}

// Run implements Adapter.
func (a *ExecAdapter) Run(ctx context.Context, language string,
	files []changeset.FileDiff,
) ([]RawFinding, error) {
	if len(a.Command) == 0 {
		return nil, fmt.Errorf("%w: no command configured for %s",
			ErrToolUnavailable, language)
	}

	if _, err := exec.LookPath(a.Command[0]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v",
			ErrToolUnavailable, a.Command[0], err)
	}

	args := append([]string(nil), a.Command[1:]...)
	for _, f := range files {
		args = append(args, f.Path)
	}

	cmd := exec.CommandContext(ctx, a.Command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s",
				ErrToolUnavailable, a.Command[0])
		}

		// Linters conventionally exit non-zero when they find
		// issues; only treat the run as failed when nothing was
		// produced.
		if stdout.Len() == 0 {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return nil, fmt.Errorf("run %s: %s",
				a.Command[0], msg)
		}
	}

	return parseFindings(&stdout)
}

// parseFindings decodes one JSON raw finding per line, skipping blank
// lines.
func parseFindings(buf *bytes.Buffer) ([]RawFinding, error) {
	var findings []RawFinding

	scanner := bufio.NewScanner(buf)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rf RawFinding
		if err := json.Unmarshal([]byte(line), &rf); err != nil {
			return nil, fmt.Errorf("decode finding %q: %w",
				line, err)
		}
		findings = append(findings, rf)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tool output: %w", err)
	}

	return findings, nil
}
