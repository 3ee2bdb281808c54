package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/analysis"
	"github.com/drapaimern/stackbench/internal/observability"
)

var (
	analyzeWorkers  int
	analyzeForce    bool
	analyzeUseCases []int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-id>",
	Short: "Analyze executed use case implementations",
	Long: `Analyze the implementations of executed use cases with a bounded pool
of concurrent workers. Each result is persisted as soon as it finishes,
so an interrupted batch resumes where it left off; --force discards
previous results first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Coordinator == nil {
			return fmt.Errorf("analysis coordinator not initialized")
		}

		workers := analyzeWorkers
		if workers == 0 {
			workers = Config.AnalysisWorkers
		}

		fmt.Printf("Analyzing run %s with %d worker(s)...\n", args[0], workers)

		summary, err := Coordinator.AnalyzeRun(cmd.Context(), args[0], analysis.Options{
			Workers: workers,
			Force:   analyzeForce,
			Only:    analyzeUseCases,
		})
		if err != nil {
			observability.Error(EventLog, args[0], err.Error(), nil)
			return fmt.Errorf("analyzing run: %w", err)
		}
		observability.Info(EventLog, args[0], observability.EventTaskAnalyzed, "analysis batch finished",
			map[string]any{"attempted": summary.Attempted, "succeeded": summary.Succeeded, "failed": summary.Failed})

		fmt.Printf("Analyzed %d use case(s): %d succeeded, %d failed, %d remaining.\n",
			summary.Attempted, summary.Succeeded, summary.Failed, summary.Remaining)
		fmt.Printf("Run phase: %s\n", summary.Phase)
		if summary.Remaining == 0 && summary.Failed == 0 {
			fmt.Printf("Next: stackbench report %s\n", args[0])
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "concurrent analysis workers (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "discard previous analysis results and re-analyze")
	analyzeCmd.Flags().IntSliceVarP(&analyzeUseCases, "use-case", "u", nil, "analyze only these use cases")
	rootCmd.AddCommand(analyzeCmd)
}
