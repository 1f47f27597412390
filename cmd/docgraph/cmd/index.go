package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docgraph/internal/document"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <path>",
		Short: "Index a markdown file or directory tree",
		Long: `Index reads one markdown file, or every *.md file under a directory,
splits each by its headers into a section tree, and syncs it into the
document index. Re-running index only re-embeds sections whose content
changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args[0])
		},
	}
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	a, err := openApp(dir)
	if err != nil {
		return err
	}
	defer a.close()

	files, err := markdownFiles(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no markdown files found under %s", path)
	}

	for _, f := range files {
		docID, title, body, err := readMarkdownFile(path, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		root := markdownToRoot(title, body)
		assignIDs(root)

		doc := &document.Document{DocID: docID, Title: title, Root: root}
		doc.BuildNodeIndex()

		res, err := a.syncer.Sync(ctx, doc)
		if err != nil {
			return fmt.Errorf("sync %s: %w", docID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sections (%d synced, %d skipped, %d deleted)\n",
			docID, res.SectionsTotal, res.SectionsSynced, res.SectionsSkipped, res.SectionsDeleted)
	}
	return nil
}

// markdownFiles returns path itself if it is a single .md file, or every
// .md file under it if it's a directory.
func markdownFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var out []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".md") {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// readMarkdownFile derives a doc id from file's path relative to root's
// parent directory (slash-joined, extension stripped, so the id starts with
// root's own name) and a title from its first markdown heading of any level
// or, failing that, its filename.
func readMarkdownFile(root, file string) (docID, title, body string, err error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", "", "", err
	}
	body = string(raw)

	rel, err := filepath.Rel(filepath.Dir(root), file)
	if err != nil {
		rel = filepath.Base(file)
	}
	docID = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	title = firstHeading(body)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	return docID, title, body, nil
}

func firstHeading(body string) string {
	loc := markdownHeaderPattern.FindStringSubmatchIndex(body)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(body[loc[4]:loc[5]])
}
