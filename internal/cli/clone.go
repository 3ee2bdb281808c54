package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/pkg/models"
)

var (
	cloneBranch         string
	cloneIncludeFolders []string
	cloneAgent          string
	cloneLanguage       string
	cloneNumUseCases    int
)

var cloneCmd = &cobra.Command{
	Use:   "clone <repo-url>",
	Short: "Create a benchmark run and clone its repository",
	Long: `Create a new benchmark run for the given repository, clone it shallowly,
and strip everything except documentation and config files.

The run configuration is frozen at creation time. A failed clone discards
the run directory entirely.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil {
			return fmt.Errorf("run manager not initialized")
		}

		cfg := models.RunConfig{
			RepoURL:         args[0],
			Branch:          cloneBranch,
			IncludeFolders:  cloneIncludeFolders,
			AgentType:       cloneAgent,
			Language:        cloneLanguage,
			NumUseCases:     cloneNumUseCases,
			ExtractModel:    Config.ExtractModel,
			AnalysisWorkers: Config.AnalysisWorkers,
		}
		if cfg.AgentType == "" {
			cfg.AgentType = Config.DefaultAgent
		}
		if cfg.Language == "" {
			cfg.Language = Config.DefaultLanguage
		}
		if cfg.NumUseCases == 0 {
			cfg.NumUseCases = Config.NumUseCases
		}

		run, err := Runs.Create(cfg)
		if err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		observability.Info(EventLog, run.ID, observability.EventRunCreated, "run created",
			map[string]any{"repo_url": cfg.RepoURL, "agent": cfg.AgentType})

		fmt.Printf("Created run %s for %s\n", run.ID, run.RepoName)
		fmt.Printf("Cloning %s...\n", cfg.RepoURL)

		repoDir := Store.Paths().RepoDir(run.ID)
		if err := Cloner.Clone(cmd.Context(), cfg.RepoURL, cfg.Branch, repoDir); err != nil {
			// A run without its repository is useless, discard it.
			observability.Error(EventLog, run.ID, err.Error(), nil)
			if delErr := Store.Delete(run.ID); delErr != nil {
				fmt.Printf("Warning: could not discard run directory: %v\n", delErr)
			}
			return fmt.Errorf("cloning repository: %w", err)
		}

		run, err = Runs.MarkCloned(run.ID)
		if err != nil {
			return fmt.Errorf("recording clone: %w", err)
		}
		observability.Info(EventLog, run.ID, observability.EventRunCloned, "repository cloned", nil)

		fmt.Printf("Run %s is ready for extraction (phase: %s)\n", run.ID, run.Phase)
		fmt.Printf("Next: stackbench extract %s\n", run.ID)
		return nil
	},
}

func init() {
	cloneCmd.Flags().StringVar(&cloneBranch, "branch", "", "git branch to clone")
	cloneCmd.Flags().StringSliceVar(&cloneIncludeFolders, "include-folders", nil, "restrict extraction to these folders")
	cloneCmd.Flags().StringVar(&cloneAgent, "agent", "", "agent type for this run (default from config)")
	cloneCmd.Flags().StringVar(&cloneLanguage, "language", "", "implementation language (default from config)")
	cloneCmd.Flags().IntVar(&cloneNumUseCases, "num-use-cases", 0, "use case target (default from config)")
	rootCmd.AddCommand(cloneCmd)
}
