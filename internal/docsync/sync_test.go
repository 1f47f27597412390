package docsync

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

type countingEmbedder struct {
	embedport.Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.Embedder.Embed(ctx, text)
}

func newTestSyncer(t *testing.T) (*Syncer, *countingEmbedder) {
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

	embedder := &countingEmbedder{Embedder: embedport.NewMockEmbedder(32)}
	return &Syncer{Docs: docs, Vectors: vecs, Graph: graph, Embedder: embedder}, embedder
}

func section(id, title string, content []string, children ...*document.SectionNode) *document.SectionNode {
	return &document.SectionNode{ID: id, Type: document.TypeSection, Title: title, Content: content, Children: children}
}

func twoSectionDoc() *document.Document {
	s1 := section("s1", "Intro", []string{"intro text"})
	s2 := section("s2", "Background", []string{"background text"})
	root := &document.SectionNode{ID: "root", Type: document.TypeDocument, Title: "Doc", Children: []*document.SectionNode{s1, s2}}
	doc := &document.Document{DocID: "doc-1", Title: "Doc", Version: 1, Root: root}
	doc.BuildNodeIndex()
	return doc
}

func TestSyncEmbedsEveryNodeOnFirstPass(t *testing.T) {
	s, embedder := newTestSyncer(t)
	ctx := context.Background()
	doc := twoSectionDoc()

	res, err := s.Sync(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SectionsTotal) // root + s1 + s2
	assert.Equal(t, 3, res.SectionsSynced)
	assert.Equal(t, 3, embedder.calls)
}

// P1: sync(doc); sync(doc) performs zero embedding calls the second time.
func TestSyncIsIdempotentNoReembedding(t *testing.T) {
	s, embedder := newTestSyncer(t)
	ctx := context.Background()
	doc := twoSectionDoc()

	_, err := s.Sync(ctx, doc)
	require.NoError(t, err)
	embedder.calls = 0

	res, err := s.Sync(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SectionsSynced)
	assert.Equal(t, 3, res.SectionsSkipped)
	assert.Equal(t, 0, embedder.calls)
}

// Scenario 1: re-ingest with S1 modified, S3 added, S2 removed.
func TestSyncIncrementalAddModifyRemove(t *testing.T) {
	s, embedder := newTestSyncer(t)
	ctx := context.Background()
	doc := twoSectionDoc()
	_, err := s.Sync(ctx, doc)
	require.NoError(t, err)
	embedder.calls = 0

	s1 := section("s1", "Intro", []string{"intro text CHANGED"})
	s3 := section("s3", "New Section", []string{"new text"})
	doc.Root.Children = []*document.SectionNode{s1, s3}
	doc.BuildNodeIndex()

	res, err := s.Sync(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls, "only s1 (changed) and s3 (new) should be embedded, not the unchanged root")
	assert.Equal(t, 1, res.SectionsDeleted)

	_, err = s.Vectors.GetSectionMeta(ctx, "s2")
	require.Error(t, err, "s2 must be gone from the vector index")

	ids, err := s.Vectors.GetDocNodeIds(ctx, doc.DocID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"root", "s1", "s3"}, ids)
}

// P2: after sync, {nodeIds reachable from root} == C.getDocNodeIds(docId).
func TestSyncTreeIndexBijection(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()
	doc := twoSectionDoc()

	_, err := s.Sync(ctx, doc)
	require.NoError(t, err)

	ids, err := s.Vectors.GetDocNodeIds(ctx, doc.DocID)
	require.NoError(t, err)
	assert.ElementsMatch(t, doc.NodeIDs(), ids)

	cons, err := s.Check(ctx, doc.DocID)
	require.NoError(t, err)
	assert.True(t, cons.Consistent)
}

func TestSyncRebuildsStructuralEdges(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()
	doc := twoSectionDoc()

	_, err := s.Sync(ctx, doc)
	require.NoError(t, err)

	out, err := s.Graph.GetOutgoingEdges(ctx, "root", graphstore.EdgeParentOf)
	require.NoError(t, err)
	require.Len(t, out, 2)

	sib, err := s.Graph.GetOutgoingEdges(ctx, "s2", graphstore.EdgePrevSibling)
	require.NoError(t, err)
	require.Len(t, sib, 1)
	assert.Equal(t, "s1", sib[0].ToID)
}

func TestSyncRejectsEmptyDocID(t *testing.T) {
	s, _ := newTestSyncer(t)
	_, err := s.Sync(context.Background(), &document.Document{})
	require.Error(t, err)
}
