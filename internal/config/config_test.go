package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	// Point at an empty temp file so the user's real config (and the
	// CRITIC_* env) cannot leak into the test.
	path := writeConfig(t, "")
	for _, key := range []string{
		envDBPath, envPatchDir, envLogLevel, envEpsilon, envSeed,
		envTopK, envRelevanceFloor, envGenerateTimeout,
		envGenerateRetries,
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, defaultLogLevel, cfg.LogLevel)
	require.Equal(t, defaultEpsilon, cfg.Epsilon)
	require.Equal(t, defaultTopK, cfg.TopK)
	require.Equal(t, defaultRelevanceFloor, cfg.RelevanceFloor)
	require.Equal(t, defaultGenerateTimeout, cfg.GenerateTimeout)
	require.Equal(t, defaultGenerateRetries, cfg.GenerateRetries)
	require.Empty(t, cfg.Generator)
	require.Zero(t, cfg.Seed)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := mergeFile(&cfg, filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestMergeFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
db_path = "/var/lib/critic/critic.db"
log_level = "debug"
epsilon = 0.25
seed = 1234
top_k = 12
relevance_floor = 0.3
generate_timeout = "45s"
generate_retries = 3
generator = ["claude", "-p"]

[analyzers]
Python = ["ruff", "check"]
go = ["golangci-lint", "run"]
`)

	cfg := DefaultConfig()
	require.NoError(t, mergeFile(&cfg, path))

	require.Equal(t, "/var/lib/critic/critic.db", cfg.DBPath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 0.25, cfg.Epsilon)
	require.EqualValues(t, 1234, cfg.Seed)
	require.Equal(t, 12, cfg.TopK)
	require.Equal(t, 0.3, cfg.RelevanceFloor)
	require.Equal(t, 45*time.Second, cfg.GenerateTimeout)
	require.Equal(t, 3, cfg.GenerateRetries)
	require.Equal(t, []string{"claude", "-p"}, cfg.Generator)

	// Analyzer language keys are case-folded.
	require.Equal(t, []string{"ruff", "check"}, cfg.Analyzers["python"])
	require.Equal(t, []string{"golangci-lint", "run"},
		cfg.Analyzers["go"])
}

func TestMergeFilePartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `log_level = "trace"`)

	cfg := DefaultConfig()
	require.NoError(t, mergeFile(&cfg, path))

	require.Equal(t, "trace", cfg.LogLevel)
	require.Equal(t, defaultEpsilon, cfg.Epsilon)
	require.Equal(t, defaultTopK, cfg.TopK)
}

func TestMergeFileRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := mergeFile(&cfg, writeConfig(t, `epsilon = 1.5`))
	require.ErrorContains(t, err, "epsilon must be in [0, 1]")

	cfg = DefaultConfig()
	err = mergeFile(&cfg, writeConfig(t, `generate_timeout = "soon"`))
	require.ErrorContains(t, err, "invalid generate_timeout")

	cfg = DefaultConfig()
	err = mergeFile(&cfg, writeConfig(t, `top_k = [`))
	require.ErrorContains(t, err, "invalid config file")
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Epsilon = 0.5
	cfg.DBPath = "/from/file.db"

	err := applyEnv(&cfg, []string{
		envDBPath + "=/from/env.db",
		envEpsilon + "=0.9",
		envSeed + "=77",
		envGenerateTimeout + "=90",
		envTopK + "=3",
	})
	require.NoError(t, err)

	require.Equal(t, "/from/env.db", cfg.DBPath)
	require.Equal(t, 0.9, cfg.Epsilon)
	require.EqualValues(t, 77, cfg.Seed)
	require.Equal(t, 90*time.Second, cfg.GenerateTimeout)
	require.Equal(t, 3, cfg.TopK)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := applyEnv(&cfg, []string{envEpsilon + "=lots"})
	require.ErrorContains(t, err, envEpsilon)

	cfg = DefaultConfig()
	err = applyEnv(&cfg, []string{envEpsilon + "=2"})
	require.ErrorContains(t, err, "must be in [0, 1]")

	cfg = DefaultConfig()
	err = applyEnv(&cfg, []string{envGenerateRetries + "=many"})
	require.ErrorContains(t, err, envGenerateRetries)
}

func TestApplyEnvIgnoresEmptyValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DBPath = "/keep/me.db"

	err := applyEnv(&cfg, []string{envDBPath + "=", "JUNK"})
	require.NoError(t, err)
	require.Equal(t, "/keep/me.db", cfg.DBPath)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, err := parseDuration("5m")
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, d)

	d, err = parseDuration("30")
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, d)

	d, err = parseDuration(" 10s ")
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, d)

	_, err = parseDuration("")
	require.Error(t, err)

	_, err = parseDuration("later")
	require.Error(t, err)
}
