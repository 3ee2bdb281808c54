package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Aggregate analysis results into the final report",
	Long: `Aggregate the run's per-use-case analysis results into results.json and
results.md and mark the run completed. The report is deterministic: the
same analysis artifacts always produce the same report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil || Reports == nil {
			return fmt.Errorf("report generator not initialized")
		}

		run, err := Runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}
		// Check the phase before writing anything so a premature report
		// leaves no artifacts behind.
		if run.Phase != models.PhaseAnalysisIndividual {
			return fmt.Errorf("generating report for run %s: run is in phase %s, want %s: %w",
				run.ID, run.Phase, models.PhaseAnalysisIndividual, core.ErrInvalidTransition)
		}

		report, err := Reports.Generate(run)
		if err != nil {
			Runs.RecordError(run.ID, 0, fmt.Sprintf("report: %v", err))
			observability.Error(EventLog, run.ID, err.Error(), nil)
			return fmt.Errorf("generating report: %w", err)
		}

		run, err = Runs.MarkOverallReportWritten(run.ID)
		if err != nil {
			return fmt.Errorf("recording report: %w", err)
		}
		observability.Info(EventLog, run.ID, observability.EventReportWritten, "overall report written",
			map[string]any{"success_rate": report.SuccessRate, "status": report.PassFailStatus})

		run, err = Runs.MarkCompleted(run.ID)
		if err != nil {
			return fmt.Errorf("completing run: %w", err)
		}
		observability.Info(EventLog, run.ID, observability.EventRunCompleted, "run completed", nil)

		fmt.Printf("Report written for %s: %s (%.0f%% success rate)\n",
			run.RepoName, report.PassFailStatus, report.SuccessRate*100)
		fmt.Printf("  %s\n", Store.Paths().ResultsMarkdownPath(run.ID))
		fmt.Printf("  %s\n", Store.Paths().ResultsJSONPath(run.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
