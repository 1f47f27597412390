package graphexport

import (
	"context"
	"sort"
	"strings"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

// allEdgeTypes mirrors graphstore's nine defined edge types, used when
// cfg.EdgeTypes is empty ("every type", per spec section 4.I).
var allEdgeTypes = []graphstore.EdgeType{
	graphstore.EdgeParentOf, graphstore.EdgeChildOf,
	graphstore.EdgeNextSibling, graphstore.EdgePrevSibling,
	graphstore.EdgeSameTopic, graphstore.EdgeRefersTo,
	graphstore.EdgeMentions, graphstore.EdgeDefines, graphstore.EdgeRelatedTo,
}

const conceptPrefix = "concept:"

// Exporter assembles graph snapshots from the Structured Store and Graph
// Store, per document index component 4.I.
type Exporter struct {
	Docs  docstore.Store
	Graph *graphstore.Store
}

// ExportGraph implements spec section 4.I's exportGraph(cfg): collect nodes
// by walking documents (filtered by DocIDs/IncludeDocumentNodes/
// IncludeSectionNodes), collect edges restricted to cfg.EdgeTypes, then
// apply the filtering order exactly as specified: degree filter first
// (drop nodes below MinDegree and their incident edges), then node cap
// (keep the MaxNodes highest-degree nodes and drop incident edges).
func (x *Exporter) ExportGraph(ctx context.Context, cfg Config) (Snapshot, error) {
	summaries, err := x.Docs.List()
	if err != nil {
		return Snapshot{}, amerrors.WrapKind(amerrors.KindStorage, "graphexport.ExportGraph", err)
	}

	docIDSet := toSet(cfg.DocIDs)
	nodes := make(map[string]*Node)
	for _, s := range summaries {
		if len(docIDSet) > 0 && !docIDSet[s.DocID] {
			continue
		}
		doc, err := x.Docs.Load(s.DocID)
		if err != nil {
			continue
		}
		if cfg.IncludeDocumentNodes {
			nodes[doc.DocID] = &Node{ID: doc.DocID, Label: doc.Title, Kind: "document", DocID: doc.DocID}
		}
		if cfg.IncludeSectionNodes {
			doc.Walk(func(n *document.SectionNode) {
				nodes[n.ID] = &Node{ID: n.ID, Label: n.Title, Kind: "section", DocID: doc.DocID, Level: n.Level}
			})
		}
	}

	types := cfg.EdgeTypes
	if len(types) == 0 {
		types = allEdgeTypes
	}
	var edges []Edge
	for _, t := range types {
		rows, err := x.Graph.GetEdgesByType(ctx, t)
		if err != nil {
			return Snapshot{}, amerrors.WrapKind(amerrors.KindStorage, "graphexport.ExportGraph", err)
		}
		for _, e := range rows {
			if _, ok := nodes[e.FromID]; !ok && strings.HasPrefix(e.FromID, conceptPrefix) {
				nodes[e.FromID] = &Node{ID: e.FromID, Label: strings.TrimPrefix(e.FromID, conceptPrefix), Kind: "concept"}
			}
			if _, ok := nodes[e.ToID]; !ok && strings.HasPrefix(e.ToID, conceptPrefix) {
				nodes[e.ToID] = &Node{ID: e.ToID, Label: strings.TrimPrefix(e.ToID, conceptPrefix), Kind: "concept"}
			}
			weight := 1.0
			if e.HasWeight {
				weight = e.Weight
			}
			edges = append(edges, Edge{From: e.FromID, To: e.ToID, Type: e.Type, Weight: weight})
		}
	}

	// Edges are only kept when both endpoints are known nodes; an edge to a
	// node the walk didn't surface (e.g. a section endpoint when
	// IncludeSectionNodes is false) is dropped rather than fabricating a node.
	edges = filterEdgesToKnownNodes(edges, nodes)

	degree := computeDegree(nodes, edges)
	if cfg.MinDegree > 0 {
		for id, d := range degree {
			if d < cfg.MinDegree {
				delete(nodes, id)
			}
		}
		edges = filterEdgesToKnownNodes(edges, nodes)
		degree = computeDegree(nodes, edges)
	}

	if cfg.MaxNodes > 0 && len(nodes) > cfg.MaxNodes {
		ids := make([]string, 0, len(nodes))
		for id := range nodes {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			if degree[ids[i]] != degree[ids[j]] {
				return degree[ids[i]] > degree[ids[j]]
			}
			return ids[i] < ids[j]
		})
		keep := make(map[string]bool, cfg.MaxNodes)
		for _, id := range ids[:cfg.MaxNodes] {
			keep[id] = true
		}
		for id := range nodes {
			if !keep[id] {
				delete(nodes, id)
			}
		}
		edges = filterEdgesToKnownNodes(edges, nodes)
	}

	for id, d := range degree {
		if n, ok := nodes[id]; ok {
			n.Degree = d
		}
	}

	out := Snapshot{Stats: Stats{NodeCount: len(nodes), EdgeCount: len(edges)}}
	out.Nodes = make([]Node, 0, len(nodes))
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Nodes = append(out.Nodes, *nodes[id])
	}
	out.Edges = edges
	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].From != out.Edges[j].From {
			return out.Edges[i].From < out.Edges[j].From
		}
		if out.Edges[i].To != out.Edges[j].To {
			return out.Edges[i].To < out.Edges[j].To
		}
		return out.Edges[i].Type < out.Edges[j].Type
	})
	return out, nil
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func filterEdgesToKnownNodes(edges []Edge, nodes map[string]*Node) []Edge {
	out := edges[:0:0]
	for _, e := range edges {
		if _, ok := nodes[e.From]; !ok {
			continue
		}
		if _, ok := nodes[e.To]; !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

func computeDegree(nodes map[string]*Node, edges []Edge) map[string]int {
	degree := make(map[string]int, len(nodes))
	for id := range nodes {
		degree[id] = 0
	}
	for _, e := range edges {
		degree[e.From]++
		degree[e.To]++
	}
	return degree
}
