package mcp

import "github.com/Aman-CERP/docgraph/internal/graphstore"

// SectionInput is the wire shape of a document.SectionNode for
// index_document, mirrored here (rather than reusing document.SectionNode
// directly) so the jsonschema tags can describe the tool's input
// independently of the internal tree type.
type SectionInput struct {
	ID       string         `json:"id,omitempty" jsonschema:"stable section id; derived from title when omitted"`
	Title    string         `json:"title" jsonschema:"section title"`
	Content  []string       `json:"content,omitempty" jsonschema:"section paragraphs, in order"`
	Children []SectionInput `json:"children,omitempty" jsonschema:"nested subsections, in document order"`
}

// IndexDocumentInput defines the input schema for the index_document tool.
type IndexDocumentInput struct {
	DocID   string       `json:"doc_id" jsonschema:"unique document id"`
	Title   string       `json:"title" jsonschema:"document title"`
	Version int          `json:"version,omitempty" jsonschema:"monotonically increasing version; auto-incremented when omitted"`
	Root    SectionInput `json:"root" jsonschema:"the document's root section"`
}

// IndexDocumentOutput defines the output schema for the index_document tool.
type IndexDocumentOutput struct {
	DocID           string `json:"doc_id"`
	SectionsTotal   int    `json:"sections_total"`
	SectionsSynced  int    `json:"sections_synced"`
	SectionsSkipped int    `json:"sections_skipped"`
	SectionsDeleted int    `json:"sections_deleted"`
}

// DeleteDocumentInput defines the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocID string `json:"doc_id" jsonschema:"document id to delete"`
}

// DeleteDocumentOutput defines the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	DocID   string `json:"doc_id"`
	Deleted bool   `json:"deleted"`
}

// QueryInput defines the input schema for the query tool.
type QueryInput struct {
	Text           string `json:"text" jsonschema:"the natural-language query"`
	K              int    `json:"k,omitempty" jsonschema:"number of vector seeds, default 3"`
	ExpandGraph    bool   `json:"expand_graph,omitempty" jsonschema:"follow graph edges out from the seeds before reranking"`
	MaxHops        int    `json:"max_hops,omitempty" jsonschema:"graph expansion depth when expand_graph is true, default 1"`
	MaxNodes       int    `json:"max_nodes,omitempty" jsonschema:"graph expansion node cap when expand_graph is true, default 20"`
	IncludeContext bool   `json:"include_context,omitempty" jsonschema:"add parent-section context to each source; false when omitted"`
	Rerank         bool   `json:"rerank,omitempty" jsonschema:"apply edge-aware reranking; false when omitted (results are then ordered by hop, then distance)"`
	MaxPerDocument int    `json:"max_per_document,omitempty" jsonschema:"cap results from a single document, 0 is unbounded"`
}

// QueryOutput defines the output schema for the query tool.
type QueryOutput struct {
	Sources        []SourceOutput `json:"sources"`
	GraphExpanded  bool           `json:"graph_expanded"`
	SeedCount      int            `json:"seed_count"`
	CandidateCount int            `json:"candidate_count"`
}

// SourceOutput is one ranked retrieval result.
type SourceOutput struct {
	NodeID   string  `json:"node_id"`
	DocID    string  `json:"doc_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Hop      int     `json:"hop"`
	EdgeType string  `json:"edge_type,omitempty"`
	Path     []string `json:"path,omitempty"`
	Context  string  `json:"context,omitempty"`
}

// RawSearchInput defines the input schema for the raw_search tool: k-NN
// retrieval with no graph expansion or rerank.
type RawSearchInput struct {
	Text   string `json:"text" jsonschema:"the natural-language query"`
	K      int    `json:"k,omitempty" jsonschema:"number of results, default 3"`
	DocID  string `json:"doc_id,omitempty" jsonschema:"restrict results to this document"`
	IsLeaf *bool  `json:"is_leaf,omitempty" jsonschema:"restrict results to leaf (true) or non-leaf (false) sections"`
}

// RawSearchOutput defines the output schema for the raw_search tool.
type RawSearchOutput struct {
	Results []RawSearchResult `json:"results"`
}

// RawSearchResult is one unreranked k-NN hit.
type RawSearchResult struct {
	NodeID   string  `json:"node_id"`
	DocID    string  `json:"doc_id"`
	Title    string  `json:"title"`
	Path     string  `json:"path"`
	Distance float32 `json:"distance"`
	Score    float32 `json:"score"`
}

// ListDocumentsInput defines the input schema for the list_documents tool (no parameters).
type ListDocumentsInput struct{}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentSummary `json:"documents"`
}

// DocumentSummary is one entry of list_documents.
type DocumentSummary struct {
	DocID   string `json:"doc_id"`
	Title   string `json:"title"`
	Version int    `json:"version"`
}

// GetDocumentInput defines the input schema for the get_document tool.
type GetDocumentInput struct {
	DocID string `json:"doc_id" jsonschema:"document id"`
}

// GetDocumentOutput defines the output schema for the get_document tool.
type GetDocumentOutput struct {
	DocID   string        `json:"doc_id"`
	Title   string        `json:"title"`
	Version int           `json:"version"`
	Root    SectionOutput `json:"root"`
}

// SectionOutput is the wire shape of a document.SectionNode returned to callers.
type SectionOutput struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Level    int             `json:"level"`
	Content  []string        `json:"content,omitempty"`
	Children []SectionOutput `json:"children,omitempty"`
}

// GetStructureInput defines the input schema for the get_structure tool: the
// document's outline without paragraph content.
type GetStructureInput struct {
	DocID string `json:"doc_id" jsonschema:"document id"`
}

// GetStructureOutput defines the output schema for the get_structure tool.
type GetStructureOutput struct {
	DocID string        `json:"doc_id"`
	Title string        `json:"title"`
	Root  SectionOutput `json:"root"`
}

// GetSectionsInput defines the input schema for the get_sections tool.
type GetSectionsInput struct {
	DocID  string `json:"doc_id" jsonschema:"document id"`
	NodeID string `json:"node_id" jsonschema:"section id"`
}

// GetSectionsOutput defines the output schema for the get_sections tool.
type GetSectionsOutput struct {
	Node     SectionOutput   `json:"node"`
	Parent   *SectionOutput  `json:"parent,omitempty"`
	Children []SectionOutput `json:"children,omitempty"`
	Siblings []SectionOutput `json:"siblings,omitempty"`
}

// GraphStatsInput defines the input schema for the graph_stats tool (no parameters).
type GraphStatsInput struct{}

// GraphStatsOutput defines the output schema for the graph_stats tool.
type GraphStatsOutput struct {
	TotalEdges    int            `json:"total_edges"`
	EdgesByType   map[string]int `json:"edges_by_type"`
	DistinctNodes int            `json:"distinct_nodes"`
	AverageDegree float64        `json:"average_degree"`
}

// GetNeighborsInput defines the input schema for the get_neighbors tool.
type GetNeighborsInput struct {
	NodeID    string   `json:"node_id" jsonschema:"node id"`
	EdgeTypes []string `json:"edge_types,omitempty" jsonschema:"restrict to these edge types; empty means all"`
}

// GetNeighborsOutput defines the output schema for the get_neighbors tool.
type GetNeighborsOutput struct {
	Neighbors []NeighborOutput `json:"neighbors"`
}

// NeighborOutput is one row of get_neighbors.
type NeighborOutput struct {
	NodeID    string  `json:"node_id"`
	EdgeType  string  `json:"edge_type"`
	Weight    float64 `json:"weight"`
	Direction string  `json:"direction"`
}

// GetEdgesInput defines the input schema for the get_edges tool.
type GetEdgesInput struct {
	NodeID    string `json:"node_id" jsonschema:"node id"`
	Direction string `json:"direction,omitempty" jsonschema:"out, in, or both (default both)"`
	EdgeType  string `json:"edge_type,omitempty" jsonschema:"restrict to this edge type"`
}

// GetEdgesOutput defines the output schema for the get_edges tool.
type GetEdgesOutput struct {
	Edges []EdgeOutput `json:"edges"`
}

// EdgeOutput is one edge row.
type EdgeOutput struct {
	FromID string  `json:"from_id"`
	ToID   string  `json:"to_id"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// ExpandGraphInput defines the input schema for the expand_graph tool.
type ExpandGraphInput struct {
	Seeds     []string `json:"seeds" jsonschema:"starting node ids"`
	MaxHops   int      `json:"max_hops,omitempty" jsonschema:"BFS depth, 1-3, default 1"`
	MaxNodes  int      `json:"max_nodes,omitempty" jsonschema:"total node cap, default 20"`
	EdgeTypes []string `json:"edge_types,omitempty" jsonschema:"restrict traversal to these types; empty means all"`
	MinWeight float64  `json:"min_weight,omitempty" jsonschema:"ignore edges below this effective weight"`
}

// ExpandGraphOutput defines the output schema for the expand_graph tool.
type ExpandGraphOutput struct {
	Results []ExpandResultOutput `json:"results"`
}

// ExpandResultOutput is one BFS-ordered row of expand_graph.
type ExpandResultOutput struct {
	NodeID   string   `json:"node_id"`
	Hop      int      `json:"hop"`
	EdgeType string   `json:"edge_type,omitempty"`
	Path     []string `json:"path,omitempty"`
}

// BuildSameTopicInput defines the input schema for the build_same_topic tool.
type BuildSameTopicInput struct {
	DocIDs           []string `json:"doc_ids,omitempty" jsonschema:"restrict to these documents; empty means every document"`
	MinSimilarity    float64  `json:"min_similarity,omitempty" jsonschema:"default 0.80"`
	MaxConnections   int      `json:"max_connections,omitempty" jsonschema:"default 5"`
	CrossDocOnly     bool     `json:"cross_doc_only,omitempty" jsonschema:"link only sections of different documents; false when omitted"`
}

// BuildRefersToInput defines the input schema for the build_refers_to tool.
type BuildRefersToInput struct {
	DocIDs []string `json:"doc_ids,omitempty" jsonschema:"restrict to these documents; empty means every document"`
}

// BuildConceptsInput defines the input schema for the build_concepts tool.
type BuildConceptsInput struct {
	DocIDs []string `json:"doc_ids,omitempty" jsonschema:"restrict to these documents; empty means every document"`
}

// BuildReportOutput is the common output shape for every graph-build tool.
type BuildReportOutput struct {
	EdgesWritten int               `json:"edges_written"`
	Failed       []FailedDocOutput `json:"failed,omitempty"`
}

// FailedDocOutput is one failed document in a BuildReportOutput.
type FailedDocOutput struct {
	DocID string `json:"doc_id"`
	Error string `json:"error"`
}

// ExportGraphInput defines the input schema for the export_graph tool.
type ExportGraphInput struct {
	Format               string   `json:"format,omitempty" jsonschema:"cytoscape, d3, vis, or graphml; empty returns the raw snapshot"`
	DocIDs               []string `json:"doc_ids,omitempty" jsonschema:"restrict to these documents; empty means every document"`
	IncludeDocumentNodes bool     `json:"include_document_nodes,omitempty"`
	IncludeSectionNodes  bool     `json:"include_section_nodes,omitempty" jsonschema:"default true when include_document_nodes is also unset"`
	EdgeTypes            []string `json:"edge_types,omitempty" jsonschema:"restrict to these edge types; empty means all"`
	MinDegree            int      `json:"min_degree,omitempty"`
	MaxNodes             int      `json:"max_nodes,omitempty"`
}

// ExportGraphOutput defines the output schema for the export_graph tool: the
// raw, format-agnostic snapshot, plus the requested format's JSON
// serialization in Formatted when Format was non-empty.
type ExportGraphOutput struct {
	Nodes     []ExportNodeOutput `json:"nodes"`
	Edges     []ExportEdgeOutput `json:"edges"`
	Stats     ExportStatsOutput  `json:"stats"`
	Formatted string             `json:"formatted,omitempty" jsonschema:"the snapshot re-serialized into the requested format, as a JSON string"`
}

// ExportNodeOutput is one exported node.
type ExportNodeOutput struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	DocID  string `json:"doc_id,omitempty"`
	Level  int    `json:"level,omitempty"`
	Degree int    `json:"degree"`
}

// ExportEdgeOutput is one exported edge.
type ExportEdgeOutput struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// ExportStatsOutput summarizes an export_graph snapshot.
type ExportStatsOutput struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// ExportSubgraphInput defines the input schema for the export_subgraph tool:
// an export_graph restricted to the documents that the BFS neighborhood of a
// set of seed nodes touches. Every section of those documents is exported,
// not only the nodes the BFS reached.
type ExportSubgraphInput struct {
	Seeds     []string `json:"seeds" jsonschema:"starting node ids"`
	MaxHops   int      `json:"max_hops,omitempty" jsonschema:"default 1"`
	MaxNodes  int      `json:"max_nodes,omitempty" jsonschema:"default 20"`
	EdgeTypes []string `json:"edge_types,omitempty"`
	Format    string   `json:"format,omitempty" jsonschema:"cytoscape, d3, vis, or graphml; empty returns the raw snapshot"`
}

func toEdgeTypes(raw []string) []graphstore.EdgeType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]graphstore.EdgeType, len(raw))
	for i, r := range raw {
		out[i] = graphstore.EdgeType(r)
	}
	return out
}
