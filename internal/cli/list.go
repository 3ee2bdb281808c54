package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all benchmark runs",
	Long: `List every run in the data directory, newest first. Runs whose state
file cannot be read are shown as corrupt rather than hidden, so they can
be found and cleaned up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Registry == nil {
			return fmt.Errorf("registry not initialized")
		}

		summaries, err := Registry.List()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if listJSON {
			data, err := json.MarshalIndent(summaries, "", "  ")
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(summaries) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Run ID", "Repository", "Agent", "Phase", "Executed", "Analyzed", "Created"})
		for _, s := range summaries {
			if s.Degraded {
				tw.AppendRow(table.Row{s.ID, "-", "-", "corrupt", "-", "-", "-"})
				continue
			}
			phase := string(s.Phase)
			if s.HasErrors {
				phase += " !"
			}
			tw.AppendRow(table.Row{
				s.ID,
				s.RepoName,
				s.AgentType,
				phase,
				fmt.Sprintf("%d/%d", s.ExecutedCount, s.TaskCount),
				fmt.Sprintf("%d/%d", s.AnalyzedCount, s.TaskCount),
				s.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		tw.Render()
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
