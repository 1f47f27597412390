package docsync

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/watcher"
)

// ParseFunc turns a markdown file on disk into a hierarchical Document. The
// markdown grammar itself is an external collaborator (spec section 1's
// out-of-scope list); docsync only needs "document string -> tree".
type ParseFunc func(path string) (*document.Document, error)

// CoordinatorConfig configures a Coordinator, mirroring index.CoordinatorConfig's
// field set narrowed to what docsync needs: a Syncer plus a parser.
type CoordinatorConfig struct {
	RootPath string
	Syncer   *Syncer
	Parse    ParseFunc
}

// Coordinator drives Syncer.Sync off watcher.FileEvent batches, the same
// event-driven reconcile shape as index.Coordinator, so a directory of
// markdown sources can be kept in sync with live filesystem changes
// (spec section 4.E's "content is ... a markdown string handed to the
// external parser", generalized to a live directory rather than one call).
type Coordinator struct {
	cfg CoordinatorConfig
	mu  sync.Mutex
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{cfg: cfg}
}

// HandleEvents processes a batch of file events, syncing or deleting
// documents as appropriate and continuing past individual failures
// (graceful degradation, mirroring index.Coordinator.HandleEvents).
func (c *Coordinator) HandleEvents(ctx context.Context, events []watcher.FileEvent) []error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, ev := range events {
		if err := c.handleEvent(ctx, ev); err != nil {
			slog.Warn("docsync: failed to process file event",
				slog.String("path", ev.Path), slog.String("operation", ev.Operation.String()), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *Coordinator) handleEvent(ctx context.Context, ev watcher.FileEvent) error {
	if ev.IsDir || !isMarkdown(ev.Path) {
		return nil
	}
	switch ev.Operation {
	case watcher.OpDelete:
		return nil // deletion is out of docsync's core scope (spec section 6); left to the caller
	default:
		doc, err := c.cfg.Parse(ev.Path)
		if err != nil {
			return err
		}
		_, err = c.cfg.Syncer.Sync(ctx, doc)
		return err
	}
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
