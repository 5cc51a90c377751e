package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

func TestRetryGeneratorSucceedsAfterTransientError(t *testing.T) {
	attempts := 0
	inner := GeneratorFunc(func(_ context.Context,
		_ string) (string, error) {

		attempts++
		if attempts == 1 {
			return "", errors.New("transient")
		}
		return "review text", nil
	})

	gen := newRetryGenerator(inner, 1, fn.None[time.Duration]())
	text, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "review text", text)
	require.Equal(t, 2, attempts)
}

func TestRetryGeneratorExhaustsRetries(t *testing.T) {
	attempts := 0
	inner := GeneratorFunc(func(_ context.Context,
		_ string) (string, error) {

		attempts++
		return "", errors.New("always down")
	})

	gen := newRetryGenerator(inner, 2, fn.None[time.Duration]())
	_, err := gen.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrGeneration)
	require.Equal(t, 3, attempts)
}

func TestRetryGeneratorEmptyTextIsFailure(t *testing.T) {
	inner := GeneratorFunc(func(_ context.Context,
		_ string) (string, error) {

		return "   \n", nil
	})

	gen := newRetryGenerator(inner, 0, fn.None[time.Duration]())
	_, err := gen.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrGeneration)
}

func TestRetryGeneratorNoRetryOnCancel(t *testing.T) {
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	inner := GeneratorFunc(func(_ context.Context,
		_ string) (string, error) {

		attempts++
		cancel()
		return "", errors.New("interrupted")
	})

	gen := newRetryGenerator(inner, 5, fn.None[time.Duration]())
	_, err := gen.Generate(ctx, "prompt")
	require.ErrorIs(t, err, ErrGeneration)
	require.Equal(t, 1, attempts)
}
