// Package retrieval is the Retrieval Pipeline (document index component
// 4.H): embed a query, seed from k-NN, optionally expand the graph,
// edge-aware rerank the candidates, and assemble hierarchical context for
// each surviving source.
package retrieval

import (
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

// RerankStrategy selects how the vector, edge and hop-decay components of a
// candidate's score combine, per spec section 4.H.2.
type RerankStrategy string

const (
	StrategyMultiplicative RerankStrategy = "multiplicative"
	StrategyAdditive       RerankStrategy = "additive"
	StrategyWeighted       RerankStrategy = "weighted"
)

// RerankConfig configures edge-aware reranking. Zero value is invalid;
// callers should start from DefaultRerankConfig.
type RerankConfig struct {
	Strategy    RerankStrategy
	EdgeWeights map[graphstore.EdgeType]float64
	SeedBoost   float64
	HopDecay    float64
	MinScore    float64
}

// DefaultRerankConfig returns spec section 4.H.2's defaults.
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Strategy: StrategyMultiplicative,
		EdgeWeights: map[graphstore.EdgeType]float64{
			graphstore.EdgeSameTopic:   1.0,
			graphstore.EdgeRefersTo:    0.9,
			graphstore.EdgeParentOf:    0.7,
			graphstore.EdgeChildOf:     0.6,
			graphstore.EdgeNextSibling: 0.4,
			graphstore.EdgePrevSibling: 0.4,
			graphstore.EdgeMentions:    0.5,
			graphstore.EdgeDefines:     0.8,
			graphstore.EdgeRelatedTo:   0.5,
		},
		SeedBoost: 1.2,
		HopDecay:  0.85,
		MinScore:  0.1,
	}
}

// DefaultGraphExpandConfig returns the query-time graph expansion configuration, using
// graphstore.ExpandConfig's shape directly with spec section 6's defaults.
func DefaultGraphExpandConfig() graphstore.ExpandConfig {
	return graphstore.ExpandConfig{
		MaxHops:   1,
		MaxNodes:  20,
		EdgeTypes: []graphstore.EdgeType{graphstore.EdgeParentOf, graphstore.EdgeChildOf, graphstore.EdgeSameTopic},
	}
}

// QueryOptions is the public query(text, opts) parameter set, spec 4.H.
type QueryOptions struct {
	K              int
	ExpandGraph    bool
	GraphConfig    graphstore.ExpandConfig
	IncludeContext bool
	Rerank         bool
	RerankConfig   RerankConfig
	MaxPerDocument int
}

// DefaultQueryOptions returns spec section 4.H's stated defaults:
// k=3, expandGraph=false, includeContext=true, rerank=true.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		K:              3,
		ExpandGraph:    false,
		GraphConfig:    DefaultGraphExpandConfig(),
		IncludeContext: true,
		Rerank:         true,
		RerankConfig:   DefaultRerankConfig(),
	}
}

// Source is one ranked retrieval result returned to the caller.
type Source struct {
	NodeID   string
	DocID    string
	Title    string
	Distance float32
	Score    float64
	Hop      int
	EdgeType graphstore.EdgeType // zero value for a seed (hop 0)
	Path     []string
	Context  string
}

// Result is the public query(text, opts) return value.
type Result struct {
	Answer          string
	Sources         []Source
	GraphExpanded   bool
	SeedCount       int
	CandidateCount  int
}
