package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/embedport"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

func newTestPipeline(t *testing.T) (*Pipeline, *vectorindex.Index, *graphstore.Store, docstore.Store) {
	t.Helper()
	dir := t.TempDir()
	docs, err := docstore.NewFileStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	vecs, err := vectorindex.NewIndex(filepath.Join(dir, "vectors.db"), vectorindex.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vecs.Close() })

	graph, err := graphstore.NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = graph.Close() })

	embedder := embedport.NewMockEmbedder(8)

	p := &Pipeline{Docs: docs, Vectors: vecs, Graph: graph, Embedder: embedder}
	return p, vecs, graph, docs
}

func saveDoc(t *testing.T, docs docstore.Store, docID, title string, sections ...*document.SectionNode) {
	t.Helper()
	root := &document.SectionNode{ID: docID + "#root", Title: title, Children: sections}
	doc := &document.Document{DocID: docID, Title: title, Root: root}
	require.NoError(t, docs.Save(doc))
}

func TestQueryReturnsNoRelevantDocumentsWhenIndexEmpty(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	result, err := p.Query(ctx, "anything", DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, "no relevant documents", result.Answer)
	assert.Empty(t, result.Sources)
}

func TestQueryReturnsSeedsWithoutGraphExpansion(t *testing.T) {
	p, vecs, _, docs := newTestPipeline(t)
	ctx := context.Background()

	saveDoc(t, docs, "alpha", "Alpha Doc", &document.SectionNode{ID: "alpha#s1", Title: "Intro", Content: []string{"about graphs"}})

	v, err := p.Embedder.Embed(ctx, "about graphs")
	require.NoError(t, err)
	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "alpha#s1", DocID: "alpha", Title: "Intro", Dimensions: len(v)}, v))

	opts := DefaultQueryOptions()
	opts.ExpandGraph = false
	result, err := p.Query(ctx, "about graphs", opts)
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "alpha#s1", result.Sources[0].NodeID)
	assert.Equal(t, 0, result.Sources[0].Hop)
	assert.False(t, result.GraphExpanded)
	assert.Contains(t, result.Sources[0].Context, "[Document: Alpha Doc]")
	assert.Contains(t, result.Sources[0].Context, "## Intro")
}

func TestQueryExpandsGraphAndIncludesHopNodes(t *testing.T) {
	p, vecs, graph, docs := newTestPipeline(t)
	ctx := context.Background()

	saveDoc(t, docs, "alpha", "Alpha Doc",
		&document.SectionNode{ID: "alpha#s1", Title: "Intro", Content: []string{"seed section"}})
	saveDoc(t, docs, "beta", "Beta Doc",
		&document.SectionNode{ID: "beta#s1", Title: "Related", Content: []string{"related section"}})

	v1, err := p.Embedder.Embed(ctx, "seed section")
	require.NoError(t, err)
	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "alpha#s1", DocID: "alpha", Title: "Intro", Dimensions: len(v1)}, v1))

	v2, err := p.Embedder.Embed(ctx, "related section")
	require.NoError(t, err)
	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "beta#s1", DocID: "beta", Title: "Related", Dimensions: len(v2)}, v2))

	require.NoError(t, graph.UpsertEdge(ctx, graphstore.Edge{FromID: "alpha#s1", ToID: "beta#s1", Type: graphstore.EdgeSameTopic, Weight: 0.9, HasWeight: true}))

	opts := DefaultQueryOptions()
	opts.K = 1
	opts.ExpandGraph = true
	opts.GraphConfig = DefaultGraphExpandConfig()
	opts.Rerank = false

	result, err := p.Query(ctx, "seed section", opts)
	require.NoError(t, err)
	assert.True(t, result.GraphExpanded)
	require.Len(t, result.Sources, 2, "expansion should surface beta#s1 via SAME_TOPIC even though k=1")

	var ids []string
	for _, s := range result.Sources {
		ids = append(ids, s.NodeID)
	}
	assert.Contains(t, ids, "alpha#s1")
	assert.Contains(t, ids, "beta#s1")
}
