package retrieval

import (
	"sort"

	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

// candidate is the internal scoring unit for one node before it becomes a
// ranked Source, grounded on search.FusedResult's "carry every component,
// combine at the end, sort deterministically" shape.
type candidate struct {
	nodeID           string
	distance         float32
	hop              int
	edgeType         graphstore.EdgeType
	path             []string
	similarityWeight float64 // the discovering SAME_TOPIC edge's own weight, if any
}

// score computes the three-component rerank score (V, E, H) and combines
// them per cfg.Strategy, exactly as spec section 4.H.2 specifies.
func score(c candidate, cfg RerankConfig) float64 {
	v := 1 - float64(c.distance)
	if v < 0 {
		v = 0
	}

	var e float64
	if c.hop == 0 {
		e = cfg.SeedBoost
	} else {
		e = cfg.EdgeWeights[c.edgeType]
		if e == 0 {
			e = 0.5
		}
		if c.edgeType == graphstore.EdgeSameTopic {
			e *= edgeSimilarityWeight(c)
		}
	}

	h := hopDecayPow(cfg.HopDecay, c.hop)

	switch cfg.Strategy {
	case StrategyAdditive:
		return (v + e + h) / 3
	case StrategyWeighted:
		return 0.5*v + 0.3*e + 0.2*h
	default:
		return v * e * h
	}
}

// edgeSimilarityWeight extracts the SAME_TOPIC edge's own similarity weight
// stashed on the candidate by the caller that discovered it via expandGraph
// (ExpandResult.Weight); absent any recorded weight, 1 leaves E unchanged.
func edgeSimilarityWeight(c candidate) float64 {
	if c.similarityWeight > 0 {
		return c.similarityWeight
	}
	return 1
}

func hopDecayPow(decay float64, hop int) float64 {
	if hop == 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < hop; i++ {
		result *= decay
	}
	return result
}

// rerank scores every candidate, drops anything below MinScore, sorts
// descending by score with a deterministic tie-break on nodeID, and applies
// the per-document cap by greedy filtering in sorted order.
func rerank(cands []scoredCandidate, cfg RerankConfig, maxPerDocument int, docOf func(nodeID string) string) []scoredCandidate {
	kept := make([]scoredCandidate, 0, len(cands))
	for _, c := range cands {
		if c.score < cfg.MinScore {
			continue
		}
		kept = append(kept, c)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].candidate.nodeID < kept[j].candidate.nodeID
	})
	if maxPerDocument <= 0 {
		return kept
	}
	perDoc := make(map[string]int)
	out := make([]scoredCandidate, 0, len(kept))
	for _, c := range kept {
		doc := docOf(c.candidate.nodeID)
		if perDoc[doc] >= maxPerDocument {
			continue
		}
		perDoc[doc]++
		out = append(out, c)
	}
	return out
}

// sortByHopThenDistance implements spec section 4.H step 7: when rerank is
// disabled, order by (hop asc, distance asc).
func sortByHopThenDistance(cands []scoredCandidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].candidate.hop != cands[j].candidate.hop {
			return cands[i].candidate.hop < cands[j].candidate.hop
		}
		if cands[i].candidate.distance != cands[j].candidate.distance {
			return cands[i].candidate.distance < cands[j].candidate.distance
		}
		return cands[i].candidate.nodeID < cands[j].candidate.nodeID
	})
}

type scoredCandidate struct {
	candidate candidate
	score     float64
}
