package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/pkg/models"
)

var (
	phaseActive   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	phaseDone     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	taskExecuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	taskFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	taskSkipped   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	taskPending   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sectionHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the lifecycle state of a run",
	Long: `Show where a run is in its lifecycle: the current phase, per-use-case
execution and analysis state, and any recorded errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil {
			return fmt.Errorf("run manager not initialized")
		}

		run, err := Runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		fmt.Printf("Run:        %s\n", run.ID)
		fmt.Printf("Repository: %s (%s)\n", run.RepoName, run.Config.RepoURL)
		fmt.Printf("Agent:      %s\n", run.Config.AgentType)
		fmt.Printf("Phase:      %s\n", styleForPhase(run.Phase).Render(string(run.Phase)))
		fmt.Printf("Created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
		fmt.Printf("Updated:    %s\n", run.UpdatedAt.Format("2006-01-02 15:04:05 UTC"))

		if len(run.Tasks) > 0 {
			fmt.Println()
			fmt.Println(sectionHeader.Render(fmt.Sprintf("Use cases (%d executed, %d analyzed of %d)",
				run.ExecutedCount(), run.AnalyzedCount(), len(run.Tasks))))
			for _, task := range run.Tasks {
				line := fmt.Sprintf("  %2d. %-40s %-12s %s",
					task.Number, truncate(task.Name, 40), task.ExecutionStatus, task.AnalysisStatus)
				fmt.Println(styleForTask(task).Render(line))
			}
		}

		if run.HasErrors() {
			fmt.Println()
			fmt.Println(sectionHeader.Render("Errors"))
			for _, e := range run.Errors {
				fmt.Println(errorStyle.Render(fmt.Sprintf("  [%s] %s",
					e.Time.Format("15:04:05"), e.Message)))
			}
			for _, task := range run.Tasks {
				for _, e := range task.Errors {
					fmt.Println(errorStyle.Render(fmt.Sprintf("  [%s] use case %d: %s",
						e.Time.Format("15:04:05"), task.Number, e.Message)))
				}
			}
		}

		fmt.Println()
		fmt.Println(nextStepHint(run))
		return nil
	},
}

func styleForPhase(phase models.RunPhase) lipgloss.Style {
	if phase == models.PhaseCompleted {
		return phaseDone
	}
	return phaseActive
}

func styleForTask(task models.TaskRecord) lipgloss.Style {
	switch task.ExecutionStatus {
	case models.ExecutionExecuted:
		return taskExecuted
	case models.ExecutionFailed:
		return taskFailed
	case models.ExecutionSkipped:
		return taskSkipped
	default:
		return taskPending
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func nextStepHint(run *models.Run) string {
	switch run.Phase {
	case models.PhaseCreated:
		return "Next: the repository clone did not finish; re-run stackbench clone."
	case models.PhaseCloned:
		return fmt.Sprintf("Next: stackbench extract %s", run.ID)
	case models.PhaseExtracted:
		if strings.EqualFold(run.Config.AgentType, "cursor") {
			return fmt.Sprintf("Next: stackbench prompt %s -u <n>, then stackbench record or detect", run.ID)
		}
		return fmt.Sprintf("Next: stackbench execute %s", run.ID)
	case models.PhaseExecution:
		return fmt.Sprintf("Next: stackbench analyze %s", run.ID)
	case models.PhaseAnalysisIndividual, models.PhaseAnalysisOverall:
		return fmt.Sprintf("Next: stackbench report %s", run.ID)
	case models.PhaseCompleted:
		return "Run is complete."
	default:
		return ""
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
