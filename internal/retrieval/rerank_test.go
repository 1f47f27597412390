package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

// Scenario 5: seed X at distance=0.2, expanded Y via SAME_TOPIC(weight=0.9)
// at hop=1 with distance=0.1. Under defaults and multiplicative strategy,
// score(X)=0.96, score(Y)=0.6885, order X then Y.
func TestRerankScenario5EdgeAwareExample(t *testing.T) {
	cfg := DefaultRerankConfig()

	x := candidate{nodeID: "x", distance: 0.2, hop: 0}
	y := candidate{nodeID: "y", distance: 0.1, hop: 1, edgeType: graphstore.EdgeSameTopic, similarityWeight: 0.9}

	sx := score(x, cfg)
	sy := score(y, cfg)

	assert.InDelta(t, 0.96, sx, 1e-9)
	assert.InDelta(t, 0.6885, sy, 1e-9)
	assert.Greater(t, sx, sy)
}

func TestRerankFiltersByMinScoreAndSortsDescending(t *testing.T) {
	cfg := DefaultRerankConfig()
	cands := []scoredCandidate{
		{candidate: candidate{nodeID: "low"}, score: 0.05},
		{candidate: candidate{nodeID: "high"}, score: 0.9},
		{candidate: candidate{nodeID: "mid"}, score: 0.5},
	}
	out := rerank(cands, cfg, 0, func(string) string { return "" })
	if assert.Len(t, out, 2) {
		assert.Equal(t, "high", out[0].candidate.nodeID)
		assert.Equal(t, "mid", out[1].candidate.nodeID)
	}
}

func TestRerankTieBreaksDeterministicallyByNodeID(t *testing.T) {
	cfg := DefaultRerankConfig()
	cands := []scoredCandidate{
		{candidate: candidate{nodeID: "b"}, score: 0.5},
		{candidate: candidate{nodeID: "a"}, score: 0.5},
	}
	out := rerank(cands, cfg, 0, func(string) string { return "" })
	assert.Equal(t, "a", out[0].candidate.nodeID)
	assert.Equal(t, "b", out[1].candidate.nodeID)
}

func TestRerankAppliesPerDocumentCapGreedily(t *testing.T) {
	cfg := DefaultRerankConfig()
	docs := map[string]string{"a1": "docA", "a2": "docA", "a3": "docA", "b1": "docB"}
	cands := []scoredCandidate{
		{candidate: candidate{nodeID: "a1"}, score: 0.9},
		{candidate: candidate{nodeID: "a2"}, score: 0.8},
		{candidate: candidate{nodeID: "a3"}, score: 0.7},
		{candidate: candidate{nodeID: "b1"}, score: 0.6},
	}
	out := rerank(cands, cfg, 2, func(id string) string { return docs[id] })
	want := []string{"a1", "a2", "b1"}
	var got []string
	for _, c := range out {
		got = append(got, c.candidate.nodeID)
	}
	assert.Equal(t, want, got)
}

func TestSortByHopThenDistanceOrdering(t *testing.T) {
	cands := []scoredCandidate{
		{candidate: candidate{nodeID: "far-seed", hop: 0, distance: 0.5}},
		{candidate: candidate{nodeID: "near-seed", hop: 0, distance: 0.1}},
		{candidate: candidate{nodeID: "hop1", hop: 1, distance: 0.01}},
	}
	sortByHopThenDistance(cands)
	assert.Equal(t, "near-seed", cands[0].candidate.nodeID)
	assert.Equal(t, "far-seed", cands[1].candidate.nodeID)
	assert.Equal(t, "hop1", cands[2].candidate.nodeID)
}

// P5: rerank determinism - same inputs/config yield identical ordering.
func TestRerankDeterministicAcrossRuns(t *testing.T) {
	cfg := DefaultRerankConfig()
	build := func() []scoredCandidate {
		return []scoredCandidate{
			{candidate: candidate{nodeID: "a"}, score: 0.7},
			{candidate: candidate{nodeID: "b"}, score: 0.9},
			{candidate: candidate{nodeID: "c"}, score: 0.7},
		}
	}
	first := rerank(build(), cfg, 0, func(string) string { return "" })
	second := rerank(build(), cfg, 0, func(string) string { return "" })
	idsOf := func(cs []scoredCandidate) []string {
		ids := make([]string, len(cs))
		for i, c := range cs {
			ids[i] = c.candidate.nodeID
		}
		return ids
	}
	assert.Equal(t, idsOf(first), idsOf(second))
}
