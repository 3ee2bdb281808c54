package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/integration"
	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/pkg/models"
)

var executeUseCase int

var executeCmd = &cobra.Command{
	Use:   "execute <run-id>",
	Short: "Run an automated agent against pending use cases",
	Long: `Drive an automated CLI agent through the run's pending use cases. Each
use case gets a fresh working directory and one agent invocation; the
outcome is recorded immediately so an interrupted batch can resume.

Manual agents cannot be executed this way; use prompt and record instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil {
			return fmt.Errorf("run manager not initialized")
		}

		run, err := Runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		agent, err := integration.NewAgent(run.Config.AgentType, Store.Paths(), Config.AnalysisCommand)
		if err != nil {
			return fmt.Errorf("resolving agent: %w", err)
		}
		automated, ok := agent.(integration.AutomatedAgent)
		if !ok {
			return fmt.Errorf("agent %q runs in an IDE; use 'stackbench prompt %s -u <n>' "+
				"and 'stackbench record' instead", agent.Name(), run.ID)
		}

		var pending []int
		if executeUseCase > 0 {
			pending = []int{executeUseCase}
		} else {
			for _, task := range run.Tasks {
				if !task.ExecutionStatus.Terminal() {
					pending = append(pending, task.Number)
				}
			}
		}
		if len(pending) == 0 {
			fmt.Println("All use cases are already executed.")
			return nil
		}

		for _, number := range pending {
			fmt.Printf("Executing use case %d...\n", number)
			execErr := automated.Execute(cmd.Context(), run, number)

			outcome := models.ExecutionExecuted
			found := true
			if execErr != nil {
				outcome = models.ExecutionFailed
				found = integration.ImplementationExists(Store.Paths(), run.ID, number, targetFileFor(run, number))
				Runs.RecordError(run.ID, number, fmt.Sprintf("execution: %v", execErr))
				fmt.Printf("  Failed: %v\n", execErr)
			} else {
				fmt.Println("  Done.")
			}

			run, err = Runs.RecordExecution(run.ID, number, outcome, automated.Method(), found)
			if err != nil {
				return fmt.Errorf("recording execution of use case %d: %w", number, err)
			}
			observability.Info(EventLog, run.ID, observability.EventTaskExecuted, "use case executed",
				map[string]any{"number": number, "outcome": string(outcome)})
		}

		fmt.Printf("\nExecuted %d of %d use case(s) successfully.\n", run.ExecutedCount(), len(run.Tasks))
		fmt.Println(nextStepHint(run))
		return nil
	},
}

func targetFileFor(run *models.Run, number int) string {
	if task := run.Task(number); task != nil {
		return task.TargetFile
	}
	return ""
}

func init() {
	executeCmd.Flags().IntVarP(&executeUseCase, "use-case", "u", 0, "execute a single use case")
	rootCmd.AddCommand(executeCmd)
}
