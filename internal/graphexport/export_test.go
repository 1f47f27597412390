package graphexport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

func newTestExporter(t *testing.T) (*Exporter, docstore.Store, *graphstore.Store) {
	t.Helper()
	docs, err := docstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })
	graph, err := graphstore.NewStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = graph.Close() })
	return &Exporter{Docs: docs, Graph: graph}, docs, graph
}

func saveLinearDoc(t *testing.T, docs docstore.Store, docID string) {
	t.Helper()
	root := &document.SectionNode{
		ID: docID + "#root", Title: "Root",
		Children: []*document.SectionNode{
			{ID: docID + "#a", Title: "A"},
			{ID: docID + "#b", Title: "B"},
		},
	}
	require.NoError(t, docs.Save(&document.Document{DocID: docID, Title: "Doc " + docID, Root: root}))
}

func TestExportGraphIncludesSectionNodesAndEdges(t *testing.T) {
	x, docs, graph := newTestExporter(t)
	ctx := context.Background()
	saveLinearDoc(t, docs, "d")
	require.NoError(t, graph.UpsertEdge(ctx, graphstore.Edge{FromID: "d#root", ToID: "d#a", Type: graphstore.EdgeParentOf}))

	snap, err := x.ExportGraph(ctx, Config{IncludeSectionNodes: true})
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Stats.NodeCount)
	assert.Equal(t, 1, snap.Stats.EdgeCount)
}

func TestExportGraphDegreeFilterDropsIsolatedNodes(t *testing.T) {
	x, docs, graph := newTestExporter(t)
	ctx := context.Background()
	saveLinearDoc(t, docs, "d")
	require.NoError(t, graph.UpsertEdge(ctx, graphstore.Edge{FromID: "d#root", ToID: "d#a", Type: graphstore.EdgeParentOf}))

	snap, err := x.ExportGraph(ctx, Config{IncludeSectionNodes: true, MinDegree: 1})
	require.NoError(t, err)

	var ids []string
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, "d#root")
	assert.Contains(t, ids, "d#a")
	assert.NotContains(t, ids, "d#b", "isolated node below minDegree must be dropped")
}

func TestExportGraphNodeCapKeepsHighestDegree(t *testing.T) {
	x, docs, graph := newTestExporter(t)
	ctx := context.Background()
	saveLinearDoc(t, docs, "d")
	require.NoError(t, graph.UpsertEdges(ctx, []graphstore.Edge{
		{FromID: "d#root", ToID: "d#a", Type: graphstore.EdgeParentOf},
		{FromID: "d#root", ToID: "d#b", Type: graphstore.EdgeParentOf},
	}))

	snap, err := x.ExportGraph(ctx, Config{IncludeSectionNodes: true, MaxNodes: 1})
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "d#root", snap.Nodes[0].ID, "root has the highest degree (2) and should survive the cap")
}

func TestExportGraphConceptNodesSurfacedFromEdges(t *testing.T) {
	x, docs, graph := newTestExporter(t)
	ctx := context.Background()
	saveLinearDoc(t, docs, "d")
	require.NoError(t, graph.UpsertEdge(ctx, graphstore.Edge{FromID: "d#a", ToID: "concept:api", Type: graphstore.EdgeMentions, Weight: 0.8, HasWeight: true}))

	snap, err := x.ExportGraph(ctx, Config{IncludeSectionNodes: true})
	require.NoError(t, err)

	var concept *Node
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == "concept:api" {
			concept = &snap.Nodes[i]
		}
	}
	require.NotNil(t, concept)
	assert.Equal(t, "concept", concept.Kind)
	assert.Equal(t, "api", concept.Label)
}

func TestExportGraphFormatCytoscape(t *testing.T) {
	x, docs, graph := newTestExporter(t)
	ctx := context.Background()
	saveLinearDoc(t, docs, "d")
	require.NoError(t, graph.UpsertEdge(ctx, graphstore.Edge{FromID: "d#root", ToID: "d#a", Type: graphstore.EdgeParentOf}))

	out, err := x.ExportGraphFormat(ctx, FormatCytoscape, Config{IncludeSectionNodes: true})
	require.NoError(t, err)
	doc, ok := out.(CytoscapeDoc)
	require.True(t, ok)
	assert.Len(t, doc.Elements.Nodes, 3)
	assert.Len(t, doc.Elements.Edges, 1)
}

func TestExportGraphFormatUnknownFormatErrors(t *testing.T) {
	x, _, _ := newTestExporter(t)
	_, err := x.ExportGraphFormat(context.Background(), Format("bogus"), Config{})
	require.Error(t, err)
}

func TestExportGraphFormatGraphML(t *testing.T) {
	x, docs, graph := newTestExporter(t)
	ctx := context.Background()
	saveLinearDoc(t, docs, "d")
	require.NoError(t, graph.UpsertEdge(ctx, graphstore.Edge{FromID: "d#root", ToID: "d#a", Type: graphstore.EdgeParentOf}))

	out, err := x.ExportGraphFormat(ctx, FormatGraphML, Config{IncludeSectionNodes: true})
	require.NoError(t, err)
	doc, ok := out.(GraphML)
	require.True(t, ok)
	assert.Equal(t, "directed", doc.Graph.EdgeDefault)
	assert.Len(t, doc.Graph.Nodes, 3)
}
