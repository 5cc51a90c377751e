package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	btclog "github.com/btcsuite/btclog/v2"
	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/build"
	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/config"
	"github.com/roasbeef/critic/internal/db"
	"github.com/roasbeef/critic/internal/engine"
	"github.com/roasbeef/critic/internal/knowledge"
	"github.com/roasbeef/critic/internal/learner"
	"github.com/roasbeef/critic/internal/retrieval"
)

// loadConfig loads the config file and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if patchDir != "" {
		cfg.PatchDir = patchDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

// setupLogging creates the subsystem loggers and hands each internal
// package its own. When --log-dir is set, records are mirrored to a
// rotating log file.
func setupLogging(cfg *config.Config) error {
	var mgr *build.LogManager
	if logDir != "" {
		fileWriter := build.NewRotatingLogWriter()
		rotCfg := build.DefaultLogRotatorConfig()
		rotCfg.LogDir = logDir
		if err := fileWriter.InitLogRotator(rotCfg); err != nil {
			return err
		}

		mgr = build.NewLogManagerWithHandlers(
			btclog.NewDefaultHandler(os.Stderr),
			btclog.NewDefaultHandler(fileWriter),
		)
	} else {
		mgr = build.NewLogManager(os.Stderr)
	}

	level, err := build.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	mgr.SetLevels(level)

	knowledge.UseLogger(mgr.Logger("KNOW"))
	retrieval.UseLogger(mgr.Logger("RTRV"))
	learner.UseLogger(mgr.Logger("LRNR"))
	analysis.UseLogger(mgr.Logger("ANLZ"))
	engine.UseLogger(mgr.Logger("ENGN"))
	db.UseLogger(mgr.Logger("DB"))

	return nil
}

// openStore opens the database from config, applying migrations.
func openStore(cfg *config.Config) (*db.Store, error) {
	path := cfg.DBPath
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	return db.Open(path)
}

// parseRef parses a PR reference of the form "owner/repo#number".
func parseRef(s string) (changeset.Ref, error) {
	slash := strings.Index(s, "/")
	hash := strings.LastIndex(s, "#")
	if slash <= 0 || hash <= slash+1 || hash == len(s)-1 {
		return changeset.Ref{}, fmt.Errorf(
			"invalid PR reference %q, expected owner/repo#number",
			s,
		)
	}

	number, err := strconv.Atoi(s[hash+1:])
	if err != nil || number <= 0 {
		return changeset.Ref{}, fmt.Errorf(
			"invalid PR number in %q", s,
		)
	}

	return changeset.Ref{
		Owner:  s[:slash],
		Repo:   s[slash+1 : hash],
		Number: number,
	}, nil
}
