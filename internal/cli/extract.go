package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/observability"
)

var extractCmd = &cobra.Command{
	Use:   "extract <run-id>",
	Short: "Extract use cases from the cloned documentation",
	Long: `Read the run's documentation files and extract coding use cases from
them, writing use_cases.json and creating a task record per use case.

Extraction runs once per run; repeating it on an extracted run fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil || Extractor == nil {
			return fmt.Errorf("extractor not initialized")
		}

		run, err := Runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		fmt.Printf("Extracting up to %d use cases from %s...\n", run.Config.NumUseCases, run.RepoName)

		result, err := Extractor.Extract(cmd.Context(), run)
		if err != nil {
			Runs.RecordError(run.ID, 0, fmt.Sprintf("extraction: %v", err))
			observability.Error(EventLog, run.ID, err.Error(), nil)
			return fmt.Errorf("extracting use cases: %w", err)
		}
		for _, msg := range result.Errors {
			fmt.Printf("Warning: %s\n", msg)
		}

		runID := run.ID
		run, err = Runs.SetUseCases(runID, result.UseCases)
		if err != nil {
			if errors.Is(err, core.ErrEmptyExtraction) {
				observability.Error(EventLog, runID, "extraction produced no use cases", nil)
				return fmt.Errorf("no use cases were extracted from %d document(s); "+
					"check the repository's documentation or --include-folders", result.DocumentsProcessed)
			}
			return fmt.Errorf("recording use cases: %w", err)
		}
		observability.Info(EventLog, run.ID, observability.EventRunExtracted, "use cases extracted",
			map[string]any{"count": len(run.Tasks), "documents": result.DocumentsProcessed})

		fmt.Printf("Extracted %d use case(s) from %d document(s) in %.1fs\n",
			len(run.Tasks), result.DocumentsProcessed, result.ProcessingSeconds)
		for _, task := range run.Tasks {
			fmt.Printf("  %2d. %s\n", task.Number, task.Name)
		}
		fmt.Println()
		fmt.Println(nextStepHint(run))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
