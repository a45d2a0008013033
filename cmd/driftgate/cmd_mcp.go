package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"driftgate/internal/mcp"
)

var mcpFlags struct {
	config string
	memory bool
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve prediction tools over the Model Context Protocol on stdio",
	Long: `Runs an MCP server over stdio exposing the predict, drift_check and
store_stats tools, for agents that drive the serving pipeline directly
instead of through HTTP.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpFlags.config, "config", "", "path to config YAML")
	mcpCmd.Flags().BoolVar(&mcpFlags.memory, "memory", false, "use an in-process feature store instead of Redis")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(mcpFlags.config, mcpFlags.memory)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mcp.NewServer(a.pipeline, a.detector, a.store, version).Run(ctx)
}
