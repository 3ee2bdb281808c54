package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/integration"
)

var (
	promptUseCase int
	promptCopy    bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt <run-id>",
	Short: "Print the implementation prompt for a use case",
	Long: `Render the implementation prompt for one use case, ready to paste into
an IDE agent. The use case working directory is created as a side effect
so the agent has somewhere to write its implementation.`,
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

		prompt, err := agent.FormatPrompt(run, promptUseCase)
		if err != nil {
			return fmt.Errorf("formatting prompt: %w", err)
		}

		if promptCopy {
			if err := clipboard.WriteAll(prompt); err != nil {
				return fmt.Errorf("copying to clipboard: %w", err)
			}
			fmt.Printf("Prompt for use case %d copied to clipboard.\n", promptUseCase)
			return nil
		}

		fmt.Println(prompt)
		return nil
	},
}

func init() {
	promptCmd.Flags().IntVarP(&promptUseCase, "use-case", "u", 1, "use case number")
	promptCmd.Flags().BoolVar(&promptCopy, "copy", false, "copy the prompt to the clipboard instead of printing it")
	rootCmd.AddCommand(promptCmd)
}
