package graphbuild

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/entity"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

// ConceptNodeID returns the shared id-space identifier for a normalized
// entity, per spec section 3's "concept:<normalized>" convention.
func ConceptNodeID(normalized string) string {
	return "concept:" + normalized
}

// Concept is the derived concept node the builder accumulates across every
// section it observes the entity in (spec section 3's Concept node).
type Concept struct {
	ID         string
	Name       string
	EntityType entity.Type
	Frequency  int
	Documents  map[string]bool
	Sections   map[string]bool
}

// ConceptBuilder runs the Entity Extractor over every section of a document
// and emits MENTIONS/DEFINES edges to accumulated concept nodes, plus
// RELATED_TO edges between concepts that co-occur within a section
// (document index component 4.G, spec scenario 6).
type ConceptBuilder struct {
	Docs  docstore.Store
	Graph *graphstore.Store
}

// Build processes every listed document and returns the accumulated concept
// registry alongside the BuildReport. Replaying Build over an unchanged
// corpus reproduces the same concepts and edges (idempotent).
func (b *ConceptBuilder) Build(ctx context.Context, docIDs []string) (map[string]*Concept, BuildReport, error) {
	concepts := make(map[string]*Concept)
	var report BuildReport
	var edges []graphstore.Edge

	for _, docID := range docIDs {
		doc, err := b.Docs.Load(docID)
		if err != nil {
			report.fail(docID, err)
			continue
		}
		doc.Walk(func(n *document.SectionNode) {
			entities := entity.Extract(n.Text())
			if len(entities) == 0 {
				return
			}
			titleLower := strings.ToLower(n.Title)
			var seenInSection []string
			for _, e := range entities {
				cid := ConceptNodeID(e.Normalized)
				c, ok := concepts[cid]
				if !ok {
					c = &Concept{ID: cid, Name: e.Normalized, EntityType: e.Type, Documents: map[string]bool{}, Sections: map[string]bool{}}
					concepts[cid] = c
				}
				c.Frequency += e.Frequency
				c.Documents[docID] = true
				c.Sections[n.ID] = true
				seenInSection = append(seenInSection, cid)

				edgeType := graphstore.EdgeMentions
				if strings.Contains(titleLower, strings.ToLower(e.Normalized)) {
					edgeType = graphstore.EdgeDefines
				}
				edges = append(edges, graphstore.Edge{
					FromID: n.ID, ToID: cid, Type: edgeType,
					Weight: e.Confidence, HasWeight: true,
					Metadata: map[string]string{"frequency": strconv.Itoa(e.Frequency)},
				})
			}
			edges = append(edges, relatedToEdges(seenInSection)...)
		})
	}

	if len(edges) > 0 {
		deduped := dedupeRelatedTo(edges)
		if err := b.Graph.UpsertEdges(ctx, deduped); err != nil {
			return concepts, report, amerrors.WrapKind(amerrors.KindStorage, "graphbuild.ConceptBuilder.Build", err)
		}
		report.EdgesWritten = len(deduped)
	}
	return concepts, report, nil
}

// relatedToEdges emits RELATED_TO for every distinct concept pair observed
// together in one section, with weight 0.2 for a single co-occurrence (the
// caller's dedupeRelatedTo step accumulates co-occurrence count across
// sections before the final weight is computed).
func relatedToEdges(conceptIDs []string) []graphstore.Edge {
	unique := dedupeStrings(conceptIDs)
	sort.Strings(unique)
	var out []graphstore.Edge
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			out = append(out,
				graphstore.Edge{FromID: unique[i], ToID: unique[j], Type: graphstore.EdgeRelatedTo, Weight: 0.2, HasWeight: true},
				graphstore.Edge{FromID: unique[j], ToID: unique[i], Type: graphstore.EdgeRelatedTo, Weight: 0.2, HasWeight: true},
			)
		}
	}
	return out
}

// dedupeRelatedTo collapses repeated RELATED_TO edges between the same pair
// (one per co-occurring section) into a single edge whose weight is
// min(1, co_occurrence*0.2), per spec section 4.G's co-occurrence rule
// (scenario 6). Non-RELATED_TO edges pass through unchanged.
func dedupeRelatedTo(edges []graphstore.Edge) []graphstore.Edge {
	counts := make(map[[2]string]int)
	var others []graphstore.Edge
	for _, e := range edges {
		if e.Type != graphstore.EdgeRelatedTo {
			others = append(others, e)
			continue
		}
		counts[[2]string{e.FromID, e.ToID}]++
	}
	for pair, n := range counts {
		w := float64(n) * 0.2
		if w > 1 {
			w = 1
		}
		others = append(others, graphstore.Edge{FromID: pair[0], ToID: pair[1], Type: graphstore.EdgeRelatedTo, Weight: w, HasWeight: true})
	}
	return others
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

