package mcp

import (
	"context"
	"encoding/json"
	"encoding/xml"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docgraph/internal/document"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphbuild"
	"github.com/Aman-CERP/docgraph/internal/graphexport"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/retrieval"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

func (s *DocGraphServer) handleIndexDocument(ctx context.Context, _ *mcp.CallToolRequest, in IndexDocumentInput) (
	*mcp.CallToolResult, IndexDocumentOutput, error,
) {
	if in.DocID == "" || in.Title == "" {
		return nil, IndexDocumentOutput{}, NewInvalidParamsError("doc_id and title are required")
	}
	if s.Syncer == nil {
		return nil, IndexDocumentOutput{}, amerrors.NewKind(amerrors.KindValidation, "mcp.handleIndexDocument", "no syncer configured")
	}

	version := in.Version
	if version == 0 {
		version = 1
		if prev, err := s.Docs.Load(in.DocID); err == nil {
			version = prev.Version + 1
		}
	}
	doc := &document.Document{DocID: in.DocID, Title: in.Title, Version: version, Root: toSectionNode(in.Root, 0)}
	doc.BuildNodeIndex()

	res, err := s.Syncer.Sync(ctx, doc)
	if err != nil {
		return nil, IndexDocumentOutput{}, MapError(err)
	}
	return nil, IndexDocumentOutput{
		DocID:           res.DocID,
		SectionsTotal:   res.SectionsTotal,
		SectionsSynced:  res.SectionsSynced,
		SectionsSkipped: res.SectionsSkipped,
		SectionsDeleted: res.SectionsDeleted,
	}, nil
}

func (s *DocGraphServer) handleDeleteDocument(ctx context.Context, _ *mcp.CallToolRequest, in DeleteDocumentInput) (
	*mcp.CallToolResult, DeleteDocumentOutput, error,
) {
	if in.DocID == "" {
		return nil, DeleteDocumentOutput{}, NewInvalidParamsError("doc_id is required")
	}
	ids, err := s.Vectors.GetDocNodeIds(ctx, in.DocID)
	if err != nil {
		return nil, DeleteDocumentOutput{}, MapError(err)
	}
	for _, id := range ids {
		if err := s.Vectors.DeleteSection(ctx, id); err != nil {
			return nil, DeleteDocumentOutput{}, MapError(err)
		}
		if err := s.Graph.DeleteNodeEdges(ctx, id); err != nil {
			return nil, DeleteDocumentOutput{}, MapError(err)
		}
	}
	if err := s.Docs.Delete(in.DocID); err != nil {
		return nil, DeleteDocumentOutput{}, MapError(err)
	}
	return nil, DeleteDocumentOutput{DocID: in.DocID, Deleted: true}, nil
}

func (s *DocGraphServer) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (
	*mcp.CallToolResult, QueryOutput, error,
) {
	if in.Text == "" {
		return nil, QueryOutput{}, NewInvalidParamsError("text is required")
	}
	if s.Pipeline == nil {
		return nil, QueryOutput{}, amerrors.NewKind(amerrors.KindValidation, "mcp.handleQuery", "no retrieval pipeline configured")
	}

	opts := retrieval.DefaultQueryOptions()
	if in.K > 0 {
		opts.K = in.K
	}
	opts.ExpandGraph = in.ExpandGraph
	if in.MaxHops > 0 {
		opts.GraphConfig.MaxHops = in.MaxHops
	}
	if in.MaxNodes > 0 {
		opts.GraphConfig.MaxNodes = in.MaxNodes
	}
	opts.IncludeContext = in.IncludeContext
	opts.Rerank = in.Rerank
	opts.MaxPerDocument = in.MaxPerDocument

	res, err := s.Pipeline.Query(ctx, in.Text, opts)
	if err != nil {
		return nil, QueryOutput{}, MapError(err)
	}

	out := QueryOutput{GraphExpanded: res.GraphExpanded, SeedCount: res.SeedCount, CandidateCount: res.CandidateCount}
	for _, src := range res.Sources {
		out.Sources = append(out.Sources, SourceOutput{
			NodeID: src.NodeID, DocID: src.DocID, Title: src.Title, Score: src.Score,
			Hop: src.Hop, EdgeType: string(src.EdgeType), Path: src.Path, Context: src.Context,
		})
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleRawSearch(ctx context.Context, _ *mcp.CallToolRequest, in RawSearchInput) (
	*mcp.CallToolResult, RawSearchOutput, error,
) {
	if in.Text == "" {
		return nil, RawSearchOutput{}, NewInvalidParamsError("text is required")
	}
	if s.Pipeline == nil {
		return nil, RawSearchOutput{}, amerrors.NewKind(amerrors.KindValidation, "mcp.handleRawSearch", "no retrieval pipeline configured")
	}
	k := in.K
	if k <= 0 {
		k = 3
	}

	v, err := s.Pipeline.Embedder.Embed(ctx, in.Text)
	if err != nil {
		return nil, RawSearchOutput{}, MapError(amerrors.WrapKind(amerrors.KindEmbedding, "mcp.handleRawSearch", err))
	}

	filters := vectorindex.Filters{DocID: in.DocID, IsLeaf: in.IsLeaf}
	results, err := s.Vectors.SearchKNN(ctx, v, k, filters)
	if err != nil {
		return nil, RawSearchOutput{}, MapError(err)
	}

	out := RawSearchOutput{}
	for _, r := range results {
		out.Results = append(out.Results, RawSearchResult{
			NodeID: r.Meta.NodeID, DocID: r.Meta.DocID, Title: r.Meta.Title,
			Path: r.Meta.Path, Distance: r.Distance, Score: r.Score,
		})
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleListDocuments(_ context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult, ListDocumentsOutput, error,
) {
	summaries, err := s.Docs.List()
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}
	out := ListDocumentsOutput{}
	for _, sum := range summaries {
		out.Documents = append(out.Documents, DocumentSummary{DocID: sum.DocID, Title: sum.Title, Version: sum.Version})
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleGetDocument(_ context.Context, _ *mcp.CallToolRequest, in GetDocumentInput) (
	*mcp.CallToolResult, GetDocumentOutput, error,
) {
	if in.DocID == "" {
		return nil, GetDocumentOutput{}, NewInvalidParamsError("doc_id is required")
	}
	doc, err := s.Docs.Load(in.DocID)
	if err != nil {
		return nil, GetDocumentOutput{}, MapError(err)
	}
	return nil, GetDocumentOutput{
		DocID: doc.DocID, Title: doc.Title, Version: doc.Version,
		Root: toSectionOutput(doc.Root, true),
	}, nil
}

func (s *DocGraphServer) handleGetStructure(_ context.Context, _ *mcp.CallToolRequest, in GetStructureInput) (
	*mcp.CallToolResult, GetStructureOutput, error,
) {
	if in.DocID == "" {
		return nil, GetStructureOutput{}, NewInvalidParamsError("doc_id is required")
	}
	doc, err := s.Docs.Load(in.DocID)
	if err != nil {
		return nil, GetStructureOutput{}, MapError(err)
	}
	return nil, GetStructureOutput{DocID: doc.DocID, Title: doc.Title, Root: toSectionOutput(doc.Root, false)}, nil
}

func (s *DocGraphServer) handleGetSections(_ context.Context, _ *mcp.CallToolRequest, in GetSectionsInput) (
	*mcp.CallToolResult, GetSectionsOutput, error,
) {
	if in.DocID == "" || in.NodeID == "" {
		return nil, GetSectionsOutput{}, NewInvalidParamsError("doc_id and node_id are required")
	}
	node, err := s.Docs.GetNode(in.DocID, in.NodeID)
	if err != nil {
		return nil, GetSectionsOutput{}, MapError(err)
	}
	out := GetSectionsOutput{Node: toSectionOutput(node, true)}

	if parent, err := s.Docs.GetParent(in.DocID, in.NodeID); err == nil && parent != nil {
		po := toSectionOutput(parent, true)
		out.Parent = &po
	}
	if children, err := s.Docs.GetChildren(in.DocID, in.NodeID); err == nil {
		for _, c := range children {
			out.Children = append(out.Children, toSectionOutput(c, true))
		}
	}
	if siblings, err := s.Docs.GetSiblings(in.DocID, in.NodeID); err == nil {
		for _, sib := range siblings {
			out.Siblings = append(out.Siblings, toSectionOutput(sib, true))
		}
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleGraphStats(ctx context.Context, _ *mcp.CallToolRequest, _ GraphStatsInput) (
	*mcp.CallToolResult, GraphStatsOutput, error,
) {
	stats, err := s.Graph.Stats(ctx)
	if err != nil {
		return nil, GraphStatsOutput{}, MapError(err)
	}
	byType := make(map[string]int, len(stats.EdgesByType))
	for t, n := range stats.EdgesByType {
		byType[string(t)] = n
	}
	return nil, GraphStatsOutput{
		TotalEdges: stats.TotalEdges, EdgesByType: byType,
		DistinctNodes: stats.DistinctNodes, AverageDegree: stats.AverageDegree,
	}, nil
}

func (s *DocGraphServer) handleGetNeighbors(ctx context.Context, _ *mcp.CallToolRequest, in GetNeighborsInput) (
	*mcp.CallToolResult, GetNeighborsOutput, error,
) {
	if in.NodeID == "" {
		return nil, GetNeighborsOutput{}, NewInvalidParamsError("node_id is required")
	}
	neighbors, err := s.Graph.GetNeighbors(ctx, in.NodeID, toEdgeTypes(in.EdgeTypes))
	if err != nil {
		return nil, GetNeighborsOutput{}, MapError(err)
	}
	out := GetNeighborsOutput{}
	for _, n := range neighbors {
		out.Neighbors = append(out.Neighbors, NeighborOutput{
			NodeID: n.NodeID, EdgeType: string(n.EdgeType), Weight: n.Weight, Direction: string(n.Direction),
		})
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleGetEdges(ctx context.Context, _ *mcp.CallToolRequest, in GetEdgesInput) (
	*mcp.CallToolResult, GetEdgesOutput, error,
) {
	if in.NodeID == "" {
		return nil, GetEdgesOutput{}, NewInvalidParamsError("node_id is required")
	}
	var edgeType graphstore.EdgeType
	if in.EdgeType != "" {
		edgeType = graphstore.EdgeType(in.EdgeType)
	}

	var edges []graphstore.Edge
	wantOut := in.Direction == "" || in.Direction == "out" || in.Direction == "both"
	wantIn := in.Direction == "" || in.Direction == "in" || in.Direction == "both"
	if wantOut {
		rows, err := s.Graph.GetOutgoingEdges(ctx, in.NodeID, edgeType)
		if err != nil {
			return nil, GetEdgesOutput{}, MapError(err)
		}
		edges = append(edges, rows...)
	}
	if wantIn {
		rows, err := s.Graph.GetIncomingEdges(ctx, in.NodeID, edgeType)
		if err != nil {
			return nil, GetEdgesOutput{}, MapError(err)
		}
		edges = append(edges, rows...)
	}

	out := GetEdgesOutput{}
	for _, e := range edges {
		weight := 1.0
		if e.HasWeight {
			weight = e.Weight
		}
		out.Edges = append(out.Edges, EdgeOutput{FromID: e.FromID, ToID: e.ToID, Type: string(e.Type), Weight: weight})
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleExpandGraph(ctx context.Context, _ *mcp.CallToolRequest, in ExpandGraphInput) (
	*mcp.CallToolResult, ExpandGraphOutput, error,
) {
	if len(in.Seeds) == 0 {
		return nil, ExpandGraphOutput{}, NewInvalidParamsError("seeds must not be empty")
	}
	cfg := retrieval.DefaultGraphExpandConfig()
	if in.MaxHops > 0 {
		cfg.MaxHops = in.MaxHops
	}
	if in.MaxNodes > 0 {
		cfg.MaxNodes = in.MaxNodes
	}
	if len(in.EdgeTypes) > 0 {
		cfg.EdgeTypes = toEdgeTypes(in.EdgeTypes)
	}
	cfg.MinWeight = in.MinWeight

	results, err := s.Graph.ExpandGraph(ctx, in.Seeds, cfg)
	if err != nil {
		return nil, ExpandGraphOutput{}, MapError(err)
	}
	out := ExpandGraphOutput{}
	for _, r := range results {
		out.Results = append(out.Results, ExpandResultOutput{NodeID: r.NodeID, Hop: r.Hop, EdgeType: string(r.EdgeType), Path: r.Path})
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleBuildSameTopic(ctx context.Context, _ *mcp.CallToolRequest, in BuildSameTopicInput) (
	*mcp.CallToolResult, BuildReportOutput, error,
) {
	docIDs, err := s.resolveDocIDs(in.DocIDs)
	if err != nil {
		return nil, BuildReportOutput{}, MapError(err)
	}
	cfg := graphbuild.DefaultSameTopicConfig()
	if in.MinSimilarity > 0 {
		cfg.MinSimilarity = in.MinSimilarity
	}
	if in.MaxConnections > 0 {
		cfg.MaxConnections = in.MaxConnections
	}
	cfg.CrossDocOnly = in.CrossDocOnly

	report, err := s.SameTopic.Build(ctx, docIDs, cfg)
	if err != nil {
		return nil, BuildReportOutput{}, MapError(err)
	}
	return nil, toBuildReportOutput(report), nil
}

func (s *DocGraphServer) handleBuildRefersTo(ctx context.Context, _ *mcp.CallToolRequest, in BuildRefersToInput) (
	*mcp.CallToolResult, BuildReportOutput, error,
) {
	docIDs, err := s.resolveDocIDs(in.DocIDs)
	if err != nil {
		return nil, BuildReportOutput{}, MapError(err)
	}
	report, err := s.RefersTo.Build(ctx, docIDs, graphbuild.RefersToConfig{CrossDocumentOnly: false, EmitReverse: true})
	if err != nil {
		return nil, BuildReportOutput{}, MapError(err)
	}
	return nil, toBuildReportOutput(report), nil
}

func (s *DocGraphServer) handleBuildConcepts(ctx context.Context, _ *mcp.CallToolRequest, in BuildConceptsInput) (
	*mcp.CallToolResult, BuildReportOutput, error,
) {
	docIDs, err := s.resolveDocIDs(in.DocIDs)
	if err != nil {
		return nil, BuildReportOutput{}, MapError(err)
	}
	_, report, err := s.Concepts.Build(ctx, docIDs)
	if err != nil {
		return nil, BuildReportOutput{}, MapError(err)
	}
	return nil, toBuildReportOutput(report), nil
}

func (s *DocGraphServer) handleExportGraph(ctx context.Context, _ *mcp.CallToolRequest, in ExportGraphInput) (
	*mcp.CallToolResult, ExportGraphOutput, error,
) {
	cfg := exportConfigFromInput(in.DocIDs, in.IncludeDocumentNodes, in.IncludeSectionNodes, in.EdgeTypes, in.MinDegree, in.MaxNodes)
	snap, err := s.Exporter.ExportGraph(ctx, cfg)
	if err != nil {
		return nil, ExportGraphOutput{}, MapError(err)
	}
	out := toExportGraphOutput(snap)
	if in.Format != "" {
		formatted, err := formatSnapshot(ctx, s.Exporter, cfg, in.Format)
		if err != nil {
			return nil, ExportGraphOutput{}, MapError(err)
		}
		out.Formatted = formatted
	}
	return nil, out, nil
}

func (s *DocGraphServer) handleExportSubgraph(ctx context.Context, _ *mcp.CallToolRequest, in ExportSubgraphInput) (
	*mcp.CallToolResult, ExportGraphOutput, error,
) {
	if len(in.Seeds) == 0 {
		return nil, ExportGraphOutput{}, NewInvalidParamsError("seeds must not be empty")
	}
	expandCfg := retrieval.DefaultGraphExpandConfig()
	if in.MaxHops > 0 {
		expandCfg.MaxHops = in.MaxHops
	}
	if in.MaxNodes > 0 {
		expandCfg.MaxNodes = in.MaxNodes
	}
	if len(in.EdgeTypes) > 0 {
		expandCfg.EdgeTypes = toEdgeTypes(in.EdgeTypes)
	}
	reached, err := s.Graph.ExpandGraph(ctx, in.Seeds, expandCfg)
	if err != nil {
		return nil, ExportGraphOutput{}, MapError(err)
	}

	docIDSet := make(map[string]bool)
	for _, seed := range in.Seeds {
		if meta, err := s.Vectors.GetSectionMeta(ctx, seed); err == nil {
			docIDSet[meta.DocID] = true
		}
	}
	for _, r := range reached {
		if meta, err := s.Vectors.GetSectionMeta(ctx, r.NodeID); err == nil {
			docIDSet[meta.DocID] = true
		}
	}
	docIDs := make([]string, 0, len(docIDSet))
	for id := range docIDSet {
		docIDs = append(docIDs, id)
	}

	cfg := exportConfigFromInput(docIDs, false, true, in.EdgeTypes, 0, 0)
	snap, err := s.Exporter.ExportGraph(ctx, cfg)
	if err != nil {
		return nil, ExportGraphOutput{}, MapError(err)
	}
	out := toExportGraphOutput(snap)
	if in.Format != "" {
		formatted, err := formatSnapshot(ctx, s.Exporter, cfg, in.Format)
		if err != nil {
			return nil, ExportGraphOutput{}, MapError(err)
		}
		out.Formatted = formatted
	}
	return nil, out, nil
}

func formatSnapshot(ctx context.Context, exporter *graphexport.Exporter, cfg graphexport.Config, format string) (string, error) {
	doc, err := exporter.ExportGraphFormat(ctx, graphexport.Format(format), cfg)
	if err != nil {
		return "", err
	}
	if gml, ok := doc.(graphexport.GraphML); ok {
		b, err := xml.Marshal(gml)
		if err != nil {
			return "", amerrors.WrapKind(amerrors.KindValidation, "mcp.formatSnapshot", err)
		}
		return string(b), nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", amerrors.WrapKind(amerrors.KindValidation, "mcp.formatSnapshot", err)
	}
	return string(b), nil
}

func exportConfigFromInput(docIDs []string, includeDocNodes, includeSectionNodes bool, edgeTypes []string, minDegree, maxNodes int) graphexport.Config {
	// Neither flag set means the caller left both at their JSON zero value;
	// default to section nodes, the export granularity every spec example
	// shows (document-level nodes are opt-in).
	if !includeDocNodes && !includeSectionNodes {
		includeSectionNodes = true
	}
	return graphexport.Config{
		DocIDs:               docIDs,
		IncludeDocumentNodes: includeDocNodes,
		IncludeSectionNodes:  includeSectionNodes,
		EdgeTypes:            toEdgeTypes(edgeTypes),
		MinDegree:            minDegree,
		MaxNodes:             maxNodes,
	}
}

func toExportGraphOutput(snap graphexport.Snapshot) ExportGraphOutput {
	out := ExportGraphOutput{Stats: ExportStatsOutput{NodeCount: snap.Stats.NodeCount, EdgeCount: snap.Stats.EdgeCount}}
	for _, n := range snap.Nodes {
		out.Nodes = append(out.Nodes, ExportNodeOutput{ID: n.ID, Label: n.Label, Kind: n.Kind, DocID: n.DocID, Level: n.Level, Degree: n.Degree})
	}
	for _, e := range snap.Edges {
		out.Edges = append(out.Edges, ExportEdgeOutput{From: e.From, To: e.To, Type: string(e.Type), Weight: e.Weight})
	}
	return out
}
