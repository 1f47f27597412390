// Package cmd provides the CLI commands for docgraph.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docgraph/internal/logging"
	"github.com/Aman-CERP/docgraph/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the docgraph CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docgraph",
		Short:   "Hierarchical document index and graph-aware retrieval",
		Long:    `docgraph indexes a tree of documents, links their sections into a typed graph, and answers graph-aware retrieval queries over them.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("docgraph version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "write debug logs to the docgraph log file")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newGraphCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// startLogging enables file-based debug logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

// stopLogging flushes and closes the debug log file, if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
