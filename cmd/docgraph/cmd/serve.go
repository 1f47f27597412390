package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the docgraph MCP server over stdio",
		Long: `Start the docgraph MCP server, exposing index_document, query and the
rest of the graph-aware retrieval tool set over the Model Context
Protocol's stdio transport.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	a, err := openApp(dir)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.server.Serve(ctx)
}
