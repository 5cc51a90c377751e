package commands

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is the path to the TOML config file.
	configPath string

	// dbPath is the path to the SQLite database.
	dbPath string

	// patchDir is the directory holding PR patch files.
	patchDir string

	// logLevel is the log level for all subsystems.
	logLevel string

	// logDir, when set, mirrors log output to a rotating file under the
	// given directory in addition to stderr.
	logDir string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "critic",
	Short: "Adaptive code review engine",
	Long: `Critic reviews pull requests by retrieving relevant review rules,
selecting a reasoning strategy that has worked for similar changes, and
merging the generated review with static analysis findings.

The strategy selector learns across runs: every completed review records
an outcome signal against the strategy that produced it.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to config file (default: ~/.config/critic/config.toml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&dbPath, "db", "",
		"Path to SQLite database (default: ~/.critic/critic.db)",
	)
	rootCmd.PersistentFlags().StringVar(
		&patchDir, "patch-dir", "",
		"Directory holding PR patches as <owner>/<repo>/<number>.patch",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error, critical",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"Also write logs to a rotating file under this directory",
	)

	// Add subcommands.
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(versionCmd)
}
