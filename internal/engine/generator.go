package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrGeneration is returned when review text generation fails after all
// retry attempts are exhausted.
var ErrGeneration = errors.New("review generation failed")

// DefaultGenerateRetries is the number of additional attempts made after
// the first generation attempt fails with a transient error.
const DefaultGenerateRetries = 1

// Generator produces review text from an assembled prompt.
type Generator interface {
	// Generate produces review text for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements the Generator interface.
func (f GeneratorFunc) Generate(ctx context.Context,
	prompt string) (string, error) {

	return f(ctx, prompt)
}

// retryGenerator wraps a Generator with bounded retries and an optional
// per-attempt timeout. Context cancellation is never retried.
type retryGenerator struct {
	inner   Generator
	retries int
	timeout fn.Option[time.Duration]
}

// newRetryGenerator wraps gen with retry behavior. A negative retries
// value is treated as zero.
func newRetryGenerator(gen Generator, retries int,
	timeout fn.Option[time.Duration]) *retryGenerator {

	if retries < 0 {
		retries = 0
	}

	return &retryGenerator{
		inner:   gen,
		retries: retries,
		timeout: timeout,
	}
}

// Generate attempts generation up to 1+retries times, returning the first
// success. All failures are wrapped in ErrGeneration.
func (r *retryGenerator) Generate(ctx context.Context,
	prompt string) (string, error) {

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			log.Debugf("Retrying generation, attempt %d of %d",
				attempt+1, r.retries+1)
		}

		attemptCtx := ctx
		cancel := func() {}
		r.timeout.WhenSome(func(d time.Duration) {
			attemptCtx, cancel = context.WithTimeout(ctx, d)
		})

		text, err := r.inner.Generate(attemptCtx, prompt)
		cancel()

		if err == nil {
			if strings.TrimSpace(text) == "" {
				lastErr = errors.New("generator returned " +
					"empty text")
				continue
			}
			return text, nil
		}

		// A cancelled parent context means the cycle is being torn
		// down, not that the attempt was transient.
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrGeneration,
				ctx.Err())
		}

		lastErr = err
	}

	return "", fmt.Errorf("%w: %v", ErrGeneration, lastErr)
}

// ExecGenerator generates review text by running an external command,
// writing the prompt to its stdin and reading the review from its stdout.
type ExecGenerator struct {
	// Command is the command and its leading arguments.
	Command []string
}

// Generate implements the Generator interface.
func (g *ExecGenerator) Generate(ctx context.Context,
	prompt string) (string, error) {

	if len(g.Command) == 0 {
		return "", errors.New("no generator command configured")
	}

	path, err := exec.LookPath(g.Command[0])
	if err != nil {
		return "", fmt.Errorf("generator command %q not found: %w",
			g.Command[0], err)
	}

	cmd := exec.CommandContext(ctx, path, g.Command[1:]...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("generator command failed: %w "+
			"(stderr: %s)", err,
			strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
