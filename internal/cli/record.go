package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/integration"
	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/pkg/models"
)

var (
	recordUseCase int
	recordOutcome string
)

var recordCmd = &cobra.Command{
	Use:   "record <run-id>",
	Short: "Record the outcome of a manually executed use case",
	Long: `Record that a use case was executed outside the tool, typically by an
IDE agent. The implementation file is checked on disk so analysis later
knows whether there is anything to inspect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil {
			return fmt.Errorf("run manager not initialized")
		}

		var outcome models.ExecutionStatus
		switch recordOutcome {
		case "executed":
			outcome = models.ExecutionExecuted
		case "failed":
			outcome = models.ExecutionFailed
		case "skipped":
			outcome = models.ExecutionSkipped
		default:
			return fmt.Errorf("invalid outcome %q: must be executed, failed, or skipped", recordOutcome)
		}

		run, err := Runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		task := run.Task(recordUseCase)
		if task == nil {
			return fmt.Errorf("run has no use case %d", recordUseCase)
		}
		found := integration.ImplementationExists(Store.Paths(), run.ID, task.Number, task.TargetFile)
		if outcome == models.ExecutionExecuted && !found {
			fmt.Printf("Warning: %s not found for use case %d; it will be skipped during analysis.\n",
				task.TargetFile, task.Number)
		}

		run, err = Runs.RecordExecution(run.ID, recordUseCase, outcome, models.MethodIDEManual, found)
		if err != nil {
			return fmt.Errorf("recording execution: %w", err)
		}
		observability.Info(EventLog, run.ID, observability.EventTaskExecuted, "use case recorded",
			map[string]any{"number": recordUseCase, "outcome": string(outcome)})

		fmt.Printf("Recorded use case %d as %s (%d of %d executed).\n",
			recordUseCase, outcome, run.ExecutedCount(), len(run.Tasks))
		if run.AllExecuted() {
			fmt.Println(nextStepHint(run))
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().IntVarP(&recordUseCase, "use-case", "u", 0, "use case number")
	recordCmd.Flags().StringVar(&recordOutcome, "outcome", "executed", "execution outcome: executed, failed, or skipped")
	recordCmd.MarkFlagRequired("use-case")
	rootCmd.AddCommand(recordCmd)
}
