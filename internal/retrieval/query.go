package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/embedport"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

// QueryNormalizer is an optional pre-embedding text transform (trim,
// lowercase fold for lexicon matching). It never reaches the embedder's
// input in a way that changes retrieval semantics beyond what spec section
// 4.H.2's reliance on raw vector similarity allows: normalization only
// shapes what gets embedded, never the candidate scoring math.
type QueryNormalizer func(text string) string

// DefaultQueryNormalizer trims surrounding whitespace, the only
// normalization spec.md is silent enough about to supplement safely.
func DefaultQueryNormalizer(text string) string {
	return strings.TrimSpace(text)
}

// Pipeline is the Retrieval Pipeline: query → embed → k-NN seed → optional
// graph expansion → edge-aware rerank → hierarchical context assembly.
// Grounded on search.Engine's embed-gather-fuse-assemble orchestration
// shape, generalized from chunk/BM25 fusion to vector-seed/graph-expansion
// fusion.
type Pipeline struct {
	Docs      docstore.Store
	Vectors   *vectorindex.Index
	Graph     *graphstore.Store
	Embedder  embedport.Embedder
	Normalize QueryNormalizer
}

// Query implements spec section 4.H's public query(text, opts) operation.
func (p *Pipeline) Query(ctx context.Context, text string, opts QueryOptions) (Result, error) {
	normalize := p.Normalize
	if normalize == nil {
		normalize = DefaultQueryNormalizer
	}
	k := opts.K
	if k <= 0 {
		k = 3
	}

	v, err := p.Embedder.Embed(ctx, normalize(text))
	if err != nil {
		return Result{}, amerrors.WrapKind(amerrors.KindEmbedding, "retrieval.Query", err)
	}

	seeds, err := p.Vectors.SearchKNN(ctx, v, k, vectorindex.Filters{})
	if err != nil {
		return Result{}, amerrors.WrapKind(amerrors.KindStorage, "retrieval.Query", err)
	}
	if len(seeds) == 0 {
		return Result{Answer: "no relevant documents"}, nil
	}

	type found struct {
		cand     candidate
		distance float32
	}
	bySource := make(map[string]found, len(seeds))
	seedIDs := make([]string, len(seeds))
	for i, s := range seeds {
		seedIDs[i] = s.Meta.NodeID
		bySource[s.Meta.NodeID] = found{
			cand:     candidate{nodeID: s.Meta.NodeID, distance: s.Distance, hop: 0},
			distance: s.Distance,
		}
	}

	graphExpanded := false
	if opts.ExpandGraph {
		exp, err := p.Graph.ExpandGraph(ctx, seedIDs, opts.GraphConfig)
		if err != nil {
			return Result{}, amerrors.WrapKind(amerrors.KindStorage, "retrieval.Query", err)
		}
		graphExpanded = true
		for _, e := range exp {
			if e.Hop == 0 {
				continue
			}
			meta, err := p.Vectors.GetSectionMeta(ctx, e.NodeID)
			var dist float32 = 1
			if err == nil {
				if sim, serr := p.nodeDistanceToSeed(ctx, v, meta.NodeID); serr == nil {
					dist = sim
				}
			}
			cand := candidate{
				nodeID: e.NodeID, distance: dist, hop: e.Hop,
				edgeType: e.EdgeType, path: e.Path, similarityWeight: e.Weight,
			}
			existing, ok := bySource[e.NodeID]
			if !ok || dist < existing.distance {
				bySource[e.NodeID] = found{cand: cand, distance: dist}
			}
		}
	}

	scored := make([]scoredCandidate, 0, len(bySource))
	for _, f := range bySource {
		scored = append(scored, scoredCandidate{candidate: f.cand, score: score(f.cand, opts.RerankConfig)})
	}

	docOf := func(nodeID string) string {
		meta, err := p.Vectors.GetSectionMeta(ctx, nodeID)
		if err != nil {
			return ""
		}
		return meta.DocID
	}

	if opts.Rerank {
		scored = rerank(scored, opts.RerankConfig, opts.MaxPerDocument, docOf)
	} else {
		sortByHopThenDistance(scored)
	}

	sources := make([]Source, 0, len(scored))
	for _, sc := range scored {
		meta, err := p.Vectors.GetSectionMeta(ctx, sc.candidate.nodeID)
		if err != nil {
			continue
		}
		var ctxStr string
		if opts.IncludeContext || sc.candidate.hop == 0 {
			if doc, derr := p.Docs.Load(meta.DocID); derr == nil {
				if node := findNode(doc, sc.candidate.nodeID); node != nil {
					ctxStr = assembleContext(doc.Title, node, p.Docs, meta.DocID, opts.IncludeContext)
				}
			}
		}
		sources = append(sources, Source{
			NodeID: meta.NodeID, DocID: meta.DocID, Title: meta.Title,
			Distance: sc.candidate.distance, Score: sc.score,
			Hop: sc.candidate.hop, EdgeType: sc.candidate.edgeType,
			Path: sc.candidate.path, Context: ctxStr,
		})
	}

	answer := summarize(len(sources), graphExpanded)
	return Result{
		Answer:         answer,
		Sources:        sources,
		GraphExpanded:  graphExpanded,
		SeedCount:      len(seeds),
		CandidateCount: len(bySource),
	}, nil
}

// nodeDistanceToSeed re-derives an approximate vector distance for an
// expanded (non-seed) node so the V component of its score is still
// meaningful, by comparing its stored vector directly against the query.
func (p *Pipeline) nodeDistanceToSeed(ctx context.Context, query []float32, nodeID string) (float32, error) {
	vec, err := p.Vectors.GetVector(ctx, nodeID)
	if err != nil {
		return 1, err
	}
	meta, err := p.Vectors.GetSectionMeta(ctx, nodeID)
	if err != nil {
		return 1, err
	}
	n := meta.Dimensions
	if n > len(vec) {
		n = len(vec)
	}
	if n > len(query) {
		n = len(query)
	}
	return float32(1 - cosineSimilarity32(query[:n], vec[:n])), nil
}

func cosineSimilarity32(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

func findNode(doc *document.Document, nodeID string) *document.SectionNode {
	var found *document.SectionNode
	doc.Walk(func(n *document.SectionNode) {
		if found == nil && n.ID == nodeID {
			found = n
		}
	})
	return found
}

func summarize(count int, graphExpanded bool) string {
	if count == 0 {
		return "no relevant documents"
	}
	word := "source"
	if count != 1 {
		word = "sources"
	}
	if graphExpanded {
		return fmt.Sprintf("found %d %s (graph expansion used)", count, word)
	}
	return fmt.Sprintf("found %d %s", count, word)
}
