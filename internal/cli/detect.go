package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/integration"
	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/pkg/models"
)

var detectCmd = &cobra.Command{
	Use:   "detect <run-id>",
	Short: "Detect finished implementations and mark them executed",
	Long: `Scan every pending use case for its implementation file and mark those
found as executed. This is a convenience for IDE workflows where several
use cases are finished before any outcome is recorded.

Use cases without an implementation are left pending; record them
explicitly with 'stackbench record'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil {
			return fmt.Errorf("run manager not initialized")
		}

		run, err := Runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		detected := 0
		for _, task := range run.Tasks {
			if task.ExecutionStatus.Terminal() {
				continue
			}
			if !integration.ImplementationExists(Store.Paths(), run.ID, task.Number, task.TargetFile) {
				fmt.Printf("  %2d. %s: no %s yet\n", task.Number, task.Name, task.TargetFile)
				continue
			}
			run, err = Runs.RecordExecution(run.ID, task.Number,
				models.ExecutionExecuted, models.MethodIDEManual, true)
			if err != nil {
				return fmt.Errorf("recording use case %d: %w", task.Number, err)
			}
			observability.Info(EventLog, run.ID, observability.EventTaskExecuted, "implementation detected",
				map[string]any{"number": task.Number})
			fmt.Printf("  %2d. %s: detected\n", task.Number, task.Name)
			detected++
		}

		fmt.Printf("\nDetected %d implementation(s); %d of %d use case(s) executed.\n",
			detected, run.ExecutedCount(), len(run.Tasks))
		if run.AllExecuted() {
			fmt.Println(nextStepHint(run))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
