// Package config provides critic configuration with a defined load order:
// environment variables > config file > defaults.
//
// The config file lives at the XDG config dir, e.g.
// ~/.config/critic/config.toml (see os.UserConfigDir), unless an explicit
// path is given.
//
// Environment variables (override the config file when set):
//   - CRITIC_DB_PATH, CRITIC_PATCH_DIR, CRITIC_LOG_LEVEL,
//   - CRITIC_EPSILON, CRITIC_SEED,
//   - CRITIC_TOP_K, CRITIC_RELEVANCE_FLOOR,
//   - CRITIC_GENERATE_TIMEOUT (Go duration string or integer seconds),
//   - CRITIC_GENERATE_RETRIES.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all critic configuration. Zero values mean "use default
// behavior".
type Config struct {
	// DBPath is the path to the SQLite database. Empty means the
	// default under the user's home directory.
	DBPath string `toml:"db_path"`

	// PatchDir is the directory holding PR patch files, laid out as
	// <owner>/<repo>/<number>.patch.
	PatchDir string `toml:"patch_dir"`

	// LogLevel is the log level for all subsystems.
	LogLevel string `toml:"log_level"`

	// Epsilon is the exploration rate of the strategy selector.
	Epsilon float64 `toml:"epsilon"`

	// Seed fixes the selector's random source for reproducible runs.
	// Zero means seed from entropy.
	Seed int64 `toml:"seed"`

	// TopK is the number of rule documents to retrieve per review.
	TopK int `toml:"top_k"`

	// RelevanceFloor drops retrieved documents scoring below it.
	RelevanceFloor float64 `toml:"relevance_floor"`

	// GenerateTimeout bounds each generation attempt.
	GenerateTimeout time.Duration `toml:"-"`

	// GenerateRetries is the number of extra generation attempts.
	GenerateRetries int `toml:"generate_retries"`

	// Generator is the external command that produces review text,
	// reading the prompt on stdin.
	Generator []string `toml:"generator"`

	// Analyzers maps a language to the static analysis command for it.
	Analyzers map[string][]string `toml:"analyzers"`
}

const (
	defaultLogLevel        = "info"
	defaultEpsilon         = 0.1
	defaultTopK            = 8
	defaultRelevanceFloor  = 0.1
	defaultGenerateTimeout = 2 * time.Minute
	defaultGenerateRetries = 1
)

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		LogLevel:        defaultLogLevel,
		Epsilon:         defaultEpsilon,
		TopK:            defaultTopK,
		RelevanceFloor:  defaultRelevanceFloor,
		GenerateTimeout: defaultGenerateTimeout,
		GenerateRetries: defaultGenerateRetries,
		Analyzers:       make(map[string][]string),
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config "+
			"directory: %w", err)
	}

	return filepath.Join(dir, "critic", "config.toml"), nil
}

// Load loads configuration with precedence: defaults < file < env. A
// missing config file is ignored; invalid TOML or invalid env values
// return an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if err := mergeFile(&cfg, path); err != nil {
		return nil, err
	}

	if err := applyEnv(&cfg, os.Environ()); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeFile reads path and merges it into cfg. A missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read config file %s: %w", path,
			err)
	}

	var file struct {
		DBPath          *string             `toml:"db_path"`
		PatchDir        *string             `toml:"patch_dir"`
		LogLevel        *string             `toml:"log_level"`
		Epsilon         *float64            `toml:"epsilon"`
		Seed            *int64              `toml:"seed"`
		TopK            *int                `toml:"top_k"`
		RelevanceFloor  *float64            `toml:"relevance_floor"`
		GenerateTimeout *string             `toml:"generate_timeout"`
		GenerateRetries *int                `toml:"generate_retries"`
		Generator       []string            `toml:"generator"`
		Analyzers       map[string][]string `toml:"analyzers"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if file.DBPath != nil && *file.DBPath != "" {
		cfg.DBPath = *file.DBPath
	}
	if file.PatchDir != nil && *file.PatchDir != "" {
		cfg.PatchDir = *file.PatchDir
	}
	if file.LogLevel != nil && *file.LogLevel != "" {
		cfg.LogLevel = *file.LogLevel
	}
	if file.Epsilon != nil {
		if *file.Epsilon < 0 || *file.Epsilon > 1 {
			return fmt.Errorf("epsilon must be in [0, 1], got %v",
				*file.Epsilon)
		}
		cfg.Epsilon = *file.Epsilon
	}
	if file.Seed != nil {
		cfg.Seed = *file.Seed
	}
	if file.TopK != nil && *file.TopK > 0 {
		cfg.TopK = *file.TopK
	}
	if file.RelevanceFloor != nil && *file.RelevanceFloor >= 0 {
		cfg.RelevanceFloor = *file.RelevanceFloor
	}
	if file.GenerateTimeout != nil && *file.GenerateTimeout != "" {
		d, err := parseDuration(*file.GenerateTimeout)
		if err != nil {
			return fmt.Errorf("invalid generate_timeout: %w", err)
		}
		cfg.GenerateTimeout = d
	}
	if file.GenerateRetries != nil && *file.GenerateRetries >= 0 {
		cfg.GenerateRetries = *file.GenerateRetries
	}
	if len(file.Generator) > 0 {
		cfg.Generator = file.Generator
	}
	for lang, cmd := range file.Analyzers {
		cfg.Analyzers[strings.ToLower(lang)] = cmd
	}

	return nil
}

// env key names for config.
const (
	envDBPath          = "CRITIC_DB_PATH"
	envPatchDir        = "CRITIC_PATCH_DIR"
	envLogLevel        = "CRITIC_LOG_LEVEL"
	envEpsilon         = "CRITIC_EPSILON"
	envSeed            = "CRITIC_SEED"
	envTopK            = "CRITIC_TOP_K"
	envRelevanceFloor  = "CRITIC_RELEVANCE_FLOOR"
	envGenerateTimeout = "CRITIC_GENERATE_TIMEOUT"
	envGenerateRetries = "CRITIC_GENERATE_RETRIES"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		vals[strings.TrimSpace(e[:idx])] = strings.TrimSpace(e[idx+1:])
	}

	if v, ok := vals[envDBPath]; ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := vals[envPatchDir]; ok && v != "" {
		cfg.PatchDir = v
	}
	if v, ok := vals[envLogLevel]; ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := vals[envEpsilon]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a valid number: %w",
				envEpsilon, err)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("%s must be in [0, 1]", envEpsilon)
		}
		cfg.Epsilon = f
	}
	if v, ok := vals[envSeed]; ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be a valid number: %w",
				envSeed, err)
		}
		cfg.Seed = n
	}
	if v, ok := vals[envTopK]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a valid number: %w",
				envTopK, err)
		}
		if n > 0 {
			cfg.TopK = n
		}
	}
	if v, ok := vals[envRelevanceFloor]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a valid number: %w",
				envRelevanceFloor, err)
		}
		if f >= 0 {
			cfg.RelevanceFloor = f
		}
	}
	if v, ok := vals[envGenerateTimeout]; ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s must be a valid duration: %w",
				envGenerateTimeout, err)
		}
		cfg.GenerateTimeout = d
	}
	if v, ok := vals[envGenerateRetries]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a valid number: %w",
				envGenerateRetries, err)
		}
		if n >= 0 {
			cfg.GenerateRetries = n
		}
	}

	return nil
}

// parseDuration parses either a Go duration string (e.g. "5m", "30s") or
// an integer number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	return time.Duration(n) * time.Second, nil
}
