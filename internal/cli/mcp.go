package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	sbmcp "github.com/drapaimern/stackbench/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the stackbench MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stackbench MCP server on stdio",
	Long: `Start the stackbench MCP server on stdio transport.

The server exposes run state as MCP tools that AI coding assistants can
call: list_runs, get_run, get_report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Runs == nil || Registry == nil {
			return fmt.Errorf("run manager not initialized")
		}

		srv := sbmcp.NewServer(Runs, Registry, Store.Paths(), appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
