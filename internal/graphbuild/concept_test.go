package graphbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

func TestConceptNodeID(t *testing.T) {
	assert.Equal(t, "concept:api", ConceptNodeID("api"))
}

func TestConceptBuilderEmitsDefinesWhenTitleMatches(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	doc := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{
			ID: "a#root", Title: "Root",
			Children: []*document.SectionNode{
				{ID: "a#api", Title: "API Guide", Content: []string{"The API is documented here."}},
			},
		},
	}
	mustSave(t, docs, doc)

	b := &ConceptBuilder{Docs: docs, Graph: graph}
	concepts, _, err := b.Build(ctx, []string{"a"})
	require.NoError(t, err)
	require.Contains(t, concepts, ConceptNodeID("api"))

	// The title "API Guide" yields both "api" and "guide", and both occur in
	// the title, so each gets a DEFINES edge.
	out, err := graph.GetOutgoingEdges(ctx, "a#api", graphstore.EdgeDefines)
	require.NoError(t, err)
	require.Len(t, out, 2)
	targets := []string{out[0].ToID, out[1].ToID}
	assert.ElementsMatch(t, []string{ConceptNodeID("api"), ConceptNodeID("guide")}, targets)
}

func TestConceptBuilderEmitsMentionsWhenTitleDoesNotMatch(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	doc := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{
			ID: "a#root", Title: "Root",
			Children: []*document.SectionNode{
				{ID: "a#overview", Title: "Overview", Content: []string{"This overview references the API briefly."}},
			},
		},
	}
	mustSave(t, docs, doc)

	b := &ConceptBuilder{Docs: docs, Graph: graph}
	_, _, err := b.Build(ctx, []string{"a"})
	require.NoError(t, err)

	out, err := graph.GetOutgoingEdges(ctx, "a#overview", graphstore.EdgeMentions)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ConceptNodeID("api"), out[0].ToID)
}

// Scenario 6: RELATED_TO weight accumulates with co-occurrence count, capped
// at 1.0 (min(1, n*0.2)).
func TestConceptBuilderRelatedToAccumulatesAcrossSections(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	mkSection := func(id string) *document.SectionNode {
		return &document.SectionNode{ID: id, Title: id, Content: []string{"The API talks to the SDK over HTTP."}}
	}
	doc := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{
			ID: "a#root", Title: "Root",
			Children: []*document.SectionNode{
				mkSection("a#s1"),
				mkSection("a#s2"),
				mkSection("a#s3"),
			},
		},
	}
	mustSave(t, docs, doc)

	b := &ConceptBuilder{Docs: docs, Graph: graph}
	_, _, err := b.Build(ctx, []string{"a"})
	require.NoError(t, err)

	// API, SDK and HTTP co-occur in all three sections, so api relates to
	// both sdk and http with weight 3*0.2.
	out, err := graph.GetOutgoingEdges(ctx, ConceptNodeID("api"), graphstore.EdgeRelatedTo)
	require.NoError(t, err)
	require.Len(t, out, 2)
	weights := map[string]float64{}
	for _, e := range out {
		weights[e.ToID] = e.Weight
	}
	require.Contains(t, weights, ConceptNodeID("sdk"))
	require.Contains(t, weights, ConceptNodeID("http"))
	assert.InDelta(t, 0.6, weights[ConceptNodeID("sdk")], 1e-9)
	assert.InDelta(t, 0.6, weights[ConceptNodeID("http")], 1e-9)
}

func TestConceptBuilderFrequencyAccumulatesAcrossDocuments(t *testing.T) {
	docs := newTestDocstore(t)
	graph := newTestGraph(t)
	ctx := context.Background()

	docA := &document.Document{
		DocID: "a", Title: "Doc A",
		Root: &document.SectionNode{ID: "a#s1", Title: "Intro", Content: []string{"The API is central here."}},
	}
	docB := &document.Document{
		DocID: "b", Title: "Doc B",
		Root: &document.SectionNode{ID: "b#s1", Title: "Intro", Content: []string{"The API appears again."}},
	}
	mustSave(t, docs, docA)
	mustSave(t, docs, docB)

	b := &ConceptBuilder{Docs: docs, Graph: graph}
	concepts, _, err := b.Build(ctx, []string{"a", "b"})
	require.NoError(t, err)

	c := concepts[ConceptNodeID("api")]
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Frequency)
	assert.True(t, c.Documents["a"])
	assert.True(t, c.Documents["b"])
}

func TestDedupeRelatedToCapsWeightAtOne(t *testing.T) {
	edges := make([]graphstore.Edge, 0, 10)
	for i := 0; i < 10; i++ {
		edges = append(edges, graphstore.Edge{FromID: "concept:a", ToID: "concept:b", Type: graphstore.EdgeRelatedTo, Weight: 0.2, HasWeight: true})
	}
	out := dedupeRelatedTo(edges)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Weight)
}
