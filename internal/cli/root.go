package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "stackbench",
	Short: "Benchmark coding agents on library-specific tasks",
	Long: `Stackbench benchmarks how well AI coding agents implement tasks with a
specific library, using only that library's documentation.

A benchmark run clones the target repository, extracts use cases from its
documentation, hands them to a coding agent, and analyzes the resulting
implementations. Each run carries its state through an explicit phase
lifecycle, so every command picks up exactly where the previous one left off.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stackbench %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
