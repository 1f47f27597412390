package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docgraph/internal/retrieval"
)

type queryOptions struct {
	k           int
	expandGraph bool
	maxHops     int
	maxNodes    int
	noContext   bool
	noRerank    bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Graph-aware retrieval over the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.k, "k", "k", 3, "number of vector seeds")
	cmd.Flags().BoolVar(&opts.expandGraph, "expand", false, "expand the graph from the seeds before reranking")
	cmd.Flags().IntVar(&opts.maxHops, "max-hops", 1, "graph expansion depth when --expand is set")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 20, "graph expansion node cap when --expand is set")
	cmd.Flags().BoolVar(&opts.noContext, "no-context", false, "skip hierarchical context assembly")
	cmd.Flags().BoolVar(&opts.noRerank, "no-rerank", false, "skip edge-aware reranking")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, text string, opts queryOptions) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	a, err := openApp(dir)
	if err != nil {
		return err
	}
	defer a.close()

	qopts := retrieval.DefaultQueryOptions()
	qopts.K = opts.k
	qopts.ExpandGraph = opts.expandGraph
	qopts.GraphConfig.MaxHops = opts.maxHops
	qopts.GraphConfig.MaxNodes = opts.maxNodes
	qopts.IncludeContext = !opts.noContext
	qopts.Rerank = !opts.noRerank

	result, err := a.pipeline.Query(ctx, text, qopts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(result.Sources) == 0 {
		fmt.Fprintln(out, result.Answer)
		return nil
	}
	for i, src := range result.Sources {
		fmt.Fprintf(out, "%d. [%s] %s (doc=%s score=%.4f hop=%d)\n", i+1, src.NodeID, src.Title, src.DocID, src.Score, src.Hop)
		if src.Context != "" {
			fmt.Fprintln(out, src.Context)
		}
	}
	return nil
}
