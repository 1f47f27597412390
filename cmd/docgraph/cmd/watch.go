package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/docsync"
	"github.com/Aman-CERP/docgraph/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <path>",
		Short: "Keep the index in sync with live changes under a directory",
		Long: `Watch starts a filesystem watcher over path and re-syncs any markdown
file it sees created or modified, the same parse-and-sync the index
command runs once, but driven continuously off fsnotify (or polling,
when fsnotify isn't available) until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0])
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	a, err := openApp(dir)
	if err != nil {
		return err
	}
	defer a.close()

	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	coordinator := docsync.NewCoordinator(docsync.CoordinatorConfig{
		RootPath: path,
		Syncer:   a.syncer,
		Parse:    parseMarkdownFile(path),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx, path); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "watching %s for markdown changes, press ctrl-c to stop\n", path)

	events := w.Events()
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			for _, err := range coordinator.HandleEvents(ctx, []watcher.FileEvent{batch}) {
				fmt.Fprintf(out, "sync error: %v\n", err)
			}
		case err, ok := <-errs:
			if !ok {
				continue
			}
			fmt.Fprintf(out, "watcher error: %v\n", err)
		}
	}
}

// parseMarkdownFile returns a docsync.ParseFunc that reads a file and splits
// it into a section tree the same way the index command does, deriving the
// document id and title from its path relative to root.
func parseMarkdownFile(root string) docsync.ParseFunc {
	return func(path string) (*document.Document, error) {
		docID, title, body, err := readMarkdownFile(root, path)
		if err != nil {
			return nil, err
		}

		sectionRoot := markdownToRoot(title, body)
		assignIDs(sectionRoot)

		doc := &document.Document{DocID: docID, Title: title, Root: sectionRoot}
		doc.BuildNodeIndex()
		return doc, nil
	}
}
