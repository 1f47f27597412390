package graphexport

import (
	"encoding/xml"
	"strconv"
)

// GraphML is the standard GraphML document shape with label/type/weight
// data keys, per spec section 6. encoding/xml is used here deliberately
// rather than a third-party library: no example repo in the retrieval pack
// imports a GraphML or general-purpose GraphML-writer library, and
// GraphML's schema is simple enough (one root, two key declarations, a flat
// node/edge list) that the standard library's struct-tag-driven marshaling
// is the idiomatic Go fit, the same way `internal/config` uses stdlib
// `encoding/json` for the parts YAML doesn't cover.
type GraphML struct {
	XMLName xml.Name       `xml:"graphml"`
	Keys    []GraphMLKey   `xml:"key"`
	Graph   GraphMLGraph   `xml:"graph"`
}

type GraphMLKey struct {
	ID     string `xml:"id,attr"`
	For    string `xml:"for,attr"`
	Name   string `xml:"attr.name,attr"`
	Type   string `xml:"attr.type,attr"`
}

type GraphMLGraph struct {
	EdgeDefault string          `xml:"edgedefault,attr"`
	Nodes       []GraphMLNode   `xml:"node"`
	Edges       []GraphMLEdge   `xml:"edge"`
}

type GraphMLNode struct {
	ID   string          `xml:"id,attr"`
	Data []GraphMLData   `xml:"data"`
}

type GraphMLEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []GraphMLData `xml:"data"`
}

type GraphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

func toGraphML(s Snapshot) GraphML {
	doc := GraphML{
		Keys: []GraphMLKey{
			{ID: "label", For: "node", Name: "label", Type: "string"},
			{ID: "kind", For: "node", Name: "kind", Type: "string"},
			{ID: "type", For: "edge", Name: "type", Type: "string"},
			{ID: "weight", For: "edge", Name: "weight", Type: "double"},
		},
		Graph: GraphMLGraph{EdgeDefault: "directed"},
	}
	for _, n := range s.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, GraphMLNode{
			ID: n.ID,
			Data: []GraphMLData{
				{Key: "label", Value: n.Label},
				{Key: "kind", Value: n.Kind},
			},
		})
	}
	for _, e := range s.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, GraphMLEdge{
			Source: e.From, Target: e.To,
			Data: []GraphMLData{
				{Key: "type", Value: string(e.Type)},
				{Key: "weight", Value: strconv.FormatFloat(e.Weight, 'f', -1, 64)},
			},
		})
	}
	return doc
}
