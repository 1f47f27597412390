package graphbuild

import (
	"context"
	"math"
	"sort"
	"strings"

	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

// SameTopicConfig configures the SAME_TOPIC builder, matching the defaults
// enumerated in spec section 6.
type SameTopicConfig struct {
	MinSimilarity    float64 // default 0.80
	MaxConnections   int     // default 5, top-k outgoing edges kept per source node
	CrossDocOnly     bool    // default true
	TitleSimilarity  bool    // default false; when true, combine 0.8*embeddingSim + 0.2*titleSim
}

// DefaultSameTopicConfig returns spec section 6's SAME_TOPIC defaults.
func DefaultSameTopicConfig() SameTopicConfig {
	return SameTopicConfig{MinSimilarity: 0.80, MaxConnections: 5, CrossDocOnly: true, TitleSimilarity: false}
}

// SameTopicBuilder computes cosine similarity between every eligible section
// pair and emits a symmetric pair of SAME_TOPIC edges above the threshold,
// then prunes each source node to its top MaxConnections outgoing edges by
// weight (a k-NN subgraph cut), grounded on vectorindex's cosine-similarity
// math (normalizeVectorInPlace/distanceToScore) applied to unpadded slices.
type SameTopicBuilder struct {
	Vectors *vectorindex.Index
	Graph   *graphstore.Store
}

type candidateEdge struct {
	from, to string
	weight   float64
}

// Build enumerates every document's sections, scores all eligible pairs, and
// persists the pruned symmetric SAME_TOPIC edge set. Idempotent: replaying
// Build with the same corpus and cfg reproduces the same edges.
func (b *SameTopicBuilder) Build(ctx context.Context, docIDs []string, cfg SameTopicConfig) (BuildReport, error) {
	var report BuildReport

	type section struct {
		meta vectorindex.SectionMeta
		vec  []float32
	}
	var sections []section
	for _, docID := range docIDs {
		ids, err := b.Vectors.GetDocNodeIds(ctx, docID)
		if err != nil {
			report.fail(docID, err)
			continue
		}
		for _, id := range ids {
			meta, err := b.Vectors.GetSectionMeta(ctx, id)
			if err != nil {
				continue
			}
			vec, err := b.Vectors.GetVector(ctx, id)
			if err != nil {
				continue
			}
			sections = append(sections, section{meta: *meta, vec: vec})
		}
	}

	byFrom := make(map[string][]candidateEdge)
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			s1, s2 := sections[i], sections[j]
			// The safer reading of the includeSameDoc/crossDocOnly conflict
			// (spec section 9 Open Questions): cross-doc-only wins.
			if cfg.CrossDocOnly && s1.meta.DocID == s2.meta.DocID {
				continue
			}
			embSim := cosineSimilarity(s1.vec[:s1.meta.Dimensions], s2.vec[:s2.meta.Dimensions])
			combined := embSim
			if cfg.TitleSimilarity {
				titleSim := jaccardTitleSimilarity(s1.meta.Title, s2.meta.Title)
				combined = 0.8*embSim + 0.2*titleSim
			}
			if combined < cfg.MinSimilarity {
				continue
			}
			weight := roundTo(combined, 2)
			byFrom[s1.meta.NodeID] = append(byFrom[s1.meta.NodeID], candidateEdge{from: s1.meta.NodeID, to: s2.meta.NodeID, weight: weight})
			byFrom[s2.meta.NodeID] = append(byFrom[s2.meta.NodeID], candidateEdge{from: s2.meta.NodeID, to: s1.meta.NodeID, weight: weight})
		}
	}

	maxConn := cfg.MaxConnections
	if maxConn <= 0 {
		maxConn = 5
	}

	var edges []graphstore.Edge
	froms := make([]string, 0, len(byFrom))
	for from := range byFrom {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		cands := byFrom[from]
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].weight != cands[j].weight {
				return cands[i].weight > cands[j].weight
			}
			return cands[i].to < cands[j].to
		})
		if len(cands) > maxConn {
			cands = cands[:maxConn]
		}
		for _, c := range cands {
			edges = append(edges, graphstore.Edge{FromID: c.from, ToID: c.to, Type: graphstore.EdgeSameTopic, Weight: c.weight, HasWeight: true})
		}
	}

	if len(edges) == 0 {
		return report, nil
	}
	if err := b.Graph.UpsertEdges(ctx, edges); err != nil {
		return report, amerrors.WrapKind(amerrors.KindStorage, "graphbuild.SameTopicBuilder.Build", err)
	}
	report.EdgesWritten = len(edges)
	return report, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func jaccardTitleSimilarity(a, b string) float64 {
	wa := titleWordSet(a)
	wb := titleWordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func titleWordSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(title)) {
		set[w] = true
	}
	return set
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
