package graphexport

import (
	"context"
	"strconv"

	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

// ExportGraphFormat implements spec section 4.I's exportGraphFormat(format,
// cfg): build the snapshot, then re-serialize into one of the four
// canonical shapes enumerated in spec section 6.
func (x *Exporter) ExportGraphFormat(ctx context.Context, format Format, cfg Config) (interface{}, error) {
	snap, err := x.ExportGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCytoscape:
		return toCytoscape(snap), nil
	case FormatD3:
		return toD3(snap), nil
	case FormatVis:
		return toVis(snap), nil
	case FormatGraphML:
		return toGraphML(snap), nil
	default:
		return nil, amerrors.NewKind(amerrors.KindValidation, "graphexport.ExportGraphFormat", "unknown export format: "+string(format))
	}
}

// CytoscapeDoc is the `{elements: {nodes[], edges[]}}` shape Cytoscape.js
// consumes directly.
type CytoscapeDoc struct {
	Elements CytoscapeElements `json:"elements"`
}

type CytoscapeElements struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

type CytoscapeNodeData struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	DocID string `json:"docId,omitempty"`
}

type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

type CytoscapeEdgeData struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

func toCytoscape(s Snapshot) CytoscapeDoc {
	doc := CytoscapeDoc{}
	for _, n := range s.Nodes {
		doc.Elements.Nodes = append(doc.Elements.Nodes, CytoscapeNode{
			Data: CytoscapeNodeData{ID: n.ID, Label: n.Label, Kind: n.Kind, DocID: n.DocID},
		})
	}
	for i, e := range s.Edges {
		doc.Elements.Edges = append(doc.Elements.Edges, CytoscapeEdge{
			Data: CytoscapeEdgeData{ID: edgeID(i), Source: e.From, Target: e.To, Type: string(e.Type), Weight: e.Weight},
		})
	}
	return doc
}

// D3Doc is the `{nodes, links[]}` shape d3-force consumes.
type D3Doc struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

type D3Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type D3Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

func toD3(s Snapshot) D3Doc {
	doc := D3Doc{}
	for _, n := range s.Nodes {
		doc.Nodes = append(doc.Nodes, D3Node{ID: n.ID, Label: n.Label, Kind: n.Kind})
	}
	for _, e := range s.Edges {
		doc.Links = append(doc.Links, D3Link{Source: e.From, Target: e.To, Type: string(e.Type), Weight: e.Weight})
	}
	return doc
}

// VisDoc is the `{nodes[], edges[]}` shape vis-network consumes.
type VisDoc struct {
	Nodes []VisNode `json:"nodes"`
	Edges []VisEdge `json:"edges"`
}

type VisNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
	Level int    `json:"level"`
	Title string `json:"title"`
}

type VisEdge struct {
	ID    string  `json:"id"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func toVis(s Snapshot) VisDoc {
	doc := VisDoc{}
	for _, n := range s.Nodes {
		doc.Nodes = append(doc.Nodes, VisNode{ID: n.ID, Label: n.Label, Group: n.Kind, Level: n.Level, Title: n.Label})
	}
	for i, e := range s.Edges {
		doc.Edges = append(doc.Edges, VisEdge{ID: edgeID(i), From: e.From, To: e.To, Label: string(e.Type), Value: e.Weight})
	}
	return doc
}

func edgeID(i int) string {
	return "e" + strconv.Itoa(i)
}
