package graphbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

func newTestVectors(t *testing.T) *vectorindex.Index {
	t.Helper()
	idx, err := vectorindex.NewIndex(t.TempDir()+"/vectors.db", vectorindex.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func newTestGraph(t *testing.T) *graphstore.Store {
	t.Helper()
	s, err := graphstore.NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

// Scenario 3: SAME_TOPIC top-k cap. Seven candidate weights, maxConnections=5
// keeps only the top 5.
func TestSameTopicBuilderPrunesToMaxConnections(t *testing.T) {
	vecs := newTestVectors(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	// Build one source node "src" in doc A and seven target nodes in doc B
	// whose vectors are engineered to land at decreasing cosine similarity
	// to src by construction (a 2D rotation family).
	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "src", DocID: "a", Title: "Source", Dimensions: 2}, []float32{1, 0}))

	weights := []float32{0.99, 0.95, 0.9, 0.88, 0.85, 0.83, 0.81}
	for i, w := range weights {
		x := w
		y := sqrtF(1 - w*w)
		nodeID := "t" + string(rune('0'+i))
		require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: nodeID, DocID: "b", Title: "Target", Dimensions: 2}, []float32{x, y}))
	}

	builder := &SameTopicBuilder{Vectors: vecs, Graph: graph}
	cfg := SameTopicConfig{MinSimilarity: 0.5, MaxConnections: 5, CrossDocOnly: true}
	_, err := builder.Build(ctx, []string{"a", "b"}, cfg)
	require.NoError(t, err)

	out, err := graph.GetOutgoingEdges(ctx, "src", graphstore.EdgeSameTopic)
	require.NoError(t, err)
	assert.Len(t, out, 5, "only the top 5 by weight should survive the prune")
}

// P3 / I4: every SAME_TOPIC edge has a symmetric counterpart with equal weight.
func TestSameTopicBuilderEmitsSymmetricEdges(t *testing.T) {
	vecs := newTestVectors(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "a1", DocID: "a", Title: "One", Dimensions: 2}, []float32{1, 0}))
	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "b1", DocID: "b", Title: "Two", Dimensions: 2}, []float32{1, 0}))

	builder := &SameTopicBuilder{Vectors: vecs, Graph: graph}
	_, err := builder.Build(ctx, []string{"a", "b"}, DefaultSameTopicConfig())
	require.NoError(t, err)

	fwd, err := graph.GetOutgoingEdges(ctx, "a1", graphstore.EdgeSameTopic)
	require.NoError(t, err)
	require.Len(t, fwd, 1)
	rev, err := graph.GetOutgoingEdges(ctx, "b1", graphstore.EdgeSameTopic)
	require.NoError(t, err)
	require.Len(t, rev, 1)
	assert.Equal(t, fwd[0].Weight, rev[0].Weight)
}

func TestSameTopicBuilderCrossDocOnlySkipsSameDocument(t *testing.T) {
	vecs := newTestVectors(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "a1", DocID: "a", Title: "One", Dimensions: 2}, []float32{1, 0}))
	require.NoError(t, vecs.UpsertSection(ctx, vectorindex.SectionMeta{NodeID: "a2", DocID: "a", Title: "Two", Dimensions: 2}, []float32{1, 0}))

	builder := &SameTopicBuilder{Vectors: vecs, Graph: graph}
	_, err := builder.Build(ctx, []string{"a"}, DefaultSameTopicConfig())
	require.NoError(t, err)

	out, err := graph.GetOutgoingEdges(ctx, "a1", graphstore.EdgeSameTopic)
	require.NoError(t, err)
	assert.Empty(t, out, "crossDocOnly must skip same-document pairs")
}

func sqrtF(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := float64(x)
	for i := 0; i < 20; i++ {
		z -= (z*z - float64(x)) / (2 * z)
	}
	return float32(z)
}
