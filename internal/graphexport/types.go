// Package graphexport is the Graph Export component (document index
// component 4.I): a filtered snapshot of the document/section/concept graph
// and its serialization into the canonical cytoscape, d3, vis and graphml
// shapes spec section 6 enumerates.
package graphexport

import "github.com/Aman-CERP/docgraph/internal/graphstore"

// Format selects one of the four canonical export shapes.
type Format string

const (
	FormatCytoscape Format = "cytoscape"
	FormatD3        Format = "d3"
	FormatVis       Format = "vis"
	FormatGraphML   Format = "graphml"
)

// Config filters what exportGraph collects.
type Config struct {
	DocIDs               []string // empty means every document
	IncludeDocumentNodes bool
	IncludeSectionNodes  bool
	EdgeTypes            []graphstore.EdgeType // empty means every type
	MinDegree            int
	MaxNodes             int // 0 means unlimited
}

// Node is one exported node, generalized across document, section and
// concept node kinds.
type Node struct {
	ID     string
	Label  string
	Kind   string // "document", "section" or "concept"
	DocID  string
	Level  int
	Degree int
}

// Edge is one exported edge.
type Edge struct {
	From   string
	To     string
	Type   graphstore.EdgeType
	Weight float64
}

// Stats summarizes the exported snapshot.
type Stats struct {
	NodeCount int
	EdgeCount int
}

// Snapshot is exportGraph's {nodes[], edges[], stats} result, the common
// intermediate every format serializer consumes.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
	Stats Stats
}
