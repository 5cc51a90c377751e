package commands

import (
	"fmt"

	"github.com/roasbeef/critic/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version and commit hash for critic.`,
	Run:   runVersion,
}

// runVersion prints the version and build information.
func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("critic version %s\n", build.Version())
}
