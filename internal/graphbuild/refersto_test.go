package graphbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

func newTestDocstore(t *testing.T) docstore.Store {
	t.Helper()
	s, err := docstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustSave(t *testing.T, store docstore.Store, doc *document.Document) {
	t.Helper()
	require.NoError(t, store.Save(doc))
}

func TestRefersToBuilderResolvesAnchorLink(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	doc := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{
			ID: "a#intro", Title: "Intro",
			Content: []string{"See the [setup guide](#setup) for details."},
			Children: []*document.SectionNode{
				{ID: "a#setup", Title: "Setup"},
			},
		},
	}
	mustSave(t, docs, doc)

	b := &RefersToBuilder{Docs: docs, Graph: graph}
	report, err := b.Build(ctx, []string{"a"}, RefersToConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.EdgesWritten)

	out, err := graph.GetOutgoingEdges(ctx, "a#intro", graphstore.EdgeRefersTo)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a#setup", out[0].ToID)
}

func TestRefersToBuilderResolvesExplicitCrossDocLink(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	docA := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{ID: "a#intro", Title: "Intro",
			Content: []string{"Refer to [the API](b#api) for the contract."}},
	}
	docB := &document.Document{
		DocID: "b", Title: "Doc B",
		Root: &document.SectionNode{ID: "b#api", Title: "API"},
	}
	mustSave(t, docs, docA)
	mustSave(t, docs, docB)

	b := &RefersToBuilder{Docs: docs, Graph: graph}
	_, err := b.Build(ctx, []string{"a", "b"}, RefersToConfig{})
	require.NoError(t, err)

	out, err := graph.GetOutgoingEdges(ctx, "a#intro", graphstore.EdgeRefersTo)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b#api", out[0].ToID)
}

func TestRefersToBuilderFuzzyTitleMatchWikiLink(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	docA := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{ID: "a#intro", Title: "Intro",
			Content: []string{"Related: [[Authentication Flow]]."}},
	}
	docB := &document.Document{
		DocID: "b", Title: "Doc B",
		Root: &document.SectionNode{ID: "b#auth", Title: "Authentication Flow"},
	}
	mustSave(t, docs, docA)
	mustSave(t, docs, docB)

	b := &RefersToBuilder{Docs: docs, Graph: graph}
	_, err := b.Build(ctx, []string{"a", "b"}, RefersToConfig{CrossDocumentOnly: true})
	require.NoError(t, err)

	out, err := graph.GetOutgoingEdges(ctx, "a#intro", graphstore.EdgeRefersTo)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b#auth", out[0].ToID)
}

// I5: an unresolvable link target must not produce an edge.
func TestRefersToBuilderDropsUnresolvableLink(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	doc := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{ID: "a#intro", Title: "Intro",
			Content: []string{"See [nowhere](#does-not-exist)."}},
	}
	mustSave(t, docs, doc)

	b := &RefersToBuilder{Docs: docs, Graph: graph}
	report, err := b.Build(ctx, []string{"a"}, RefersToConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.EdgesWritten)

	out, err := graph.GetOutgoingEdges(ctx, "a#intro", graphstore.EdgeRefersTo)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRefersToBuilderEmitReverse(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	doc := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{ID: "a#intro", Title: "Intro",
			Content: []string{"See the [setup guide](#setup) for details."},
			Children: []*document.SectionNode{
				{ID: "a#setup", Title: "Setup"},
			},
		},
	}
	mustSave(t, docs, doc)

	b := &RefersToBuilder{Docs: docs, Graph: graph}
	report, err := b.Build(ctx, []string{"a"}, RefersToConfig{EmitReverse: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.EdgesWritten)

	rev, err := graph.GetOutgoingEdges(ctx, "a#setup", graphstore.EdgeRefersTo)
	require.NoError(t, err)
	require.Len(t, rev, 1)
	assert.Equal(t, "a#intro", rev[0].ToID)
}
