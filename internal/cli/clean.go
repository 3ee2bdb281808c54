package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/observability"
)

var (
	cleanOlderThan time.Duration
	cleanDryRun    bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old run directories",
	Long: `Delete run directories created more than the given age ago. With no
--older-than every run is selected. Corrupt run directories are cleaned
by their modification time, so broken state does not accumulate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Registry == nil {
			return fmt.Errorf("registry not initialized")
		}

		selected, err := Registry.Clean(cleanOlderThan, cleanDryRun)
		if err != nil {
			return fmt.Errorf("cleaning runs: %w", err)
		}

		if len(selected) == 0 {
			fmt.Println("No runs to clean.")
			return nil
		}

		verb := "Deleted"
		if cleanDryRun {
			verb = "Would delete"
		}
		for _, s := range selected {
			label := s.RepoName
			if s.Degraded {
				label = "corrupt"
			}
			fmt.Printf("%s %s (%s)\n", verb, s.ID, label)
			if !cleanDryRun {
				observability.Info(EventLog, s.ID, observability.EventRunDeleted, "run deleted", nil)
			}
		}
		fmt.Printf("%s %d run(s).\n", verb, len(selected))
		return nil
	},
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 0, "only delete runs created more than this long ago (e.g. 720h)")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "list what would be deleted without deleting")
	rootCmd.AddCommand(cleanCmd)
}
