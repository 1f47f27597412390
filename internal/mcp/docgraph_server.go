// Package mcp implements the Model Context Protocol (MCP) server for
// docgraph's document index and graph-aware retrieval tool set.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docgraph/internal/config"
	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/docsync"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphbuild"
	"github.com/Aman-CERP/docgraph/internal/graphexport"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/retrieval"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
	"github.com/Aman-CERP/docgraph/pkg/version"
)

// DocGraphServer is the MCP server for docgraph: it exposes the document
// index and graph-aware retrieval pipeline's 17 operations (spec section
// 4.J) over the same modelcontextprotocol/go-sdk transport the teacher's
// Server uses.
type DocGraphServer struct {
	mcp *mcp.Server

	Docs     docstore.Store
	Vectors  *vectorindex.Index
	Graph    *graphstore.Store
	Pipeline *retrieval.Pipeline
	Exporter *graphexport.Exporter
	Syncer   *docsync.Syncer

	SameTopic *graphbuild.SameTopicBuilder
	RefersTo  *graphbuild.RefersToBuilder
	Concepts  *graphbuild.ConceptBuilder

	cfg    *config.Config
	logger *slog.Logger
}

// NewDocGraphServer builds a DocGraphServer and registers its tools.
func NewDocGraphServer(docs docstore.Store, vectors *vectorindex.Index, graph *graphstore.Store, syncer *docsync.Syncer, cfg *config.Config) (*DocGraphServer, error) {
	if docs == nil {
		return nil, amerrors.NewKind(amerrors.KindValidation, "mcp.NewDocGraphServer", "docstore is required")
	}
	if vectors == nil {
		return nil, amerrors.NewKind(amerrors.KindValidation, "mcp.NewDocGraphServer", "vector index is required")
	}
	if graph == nil {
		return nil, amerrors.NewKind(amerrors.KindValidation, "mcp.NewDocGraphServer", "graph store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &DocGraphServer{
		Docs:      docs,
		Vectors:   vectors,
		Graph:     graph,
		Syncer:    syncer,
		Exporter:  &graphexport.Exporter{Docs: docs, Graph: graph},
		SameTopic: &graphbuild.SameTopicBuilder{Vectors: vectors, Graph: graph},
		RefersTo:  &graphbuild.RefersToBuilder{Docs: docs, Graph: graph},
		Concepts:  &graphbuild.ConceptBuilder{Docs: docs, Graph: graph},
		cfg:       cfg,
		logger:    slog.Default(),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "docgraph", Version: version.Version}, nil)
	s.registerDocGraphTools()
	return s, nil
}

// SetPipeline installs the retrieval pipeline; separated from the
// constructor because Pipeline needs an embedport.Embedder the caller may
// still be resolving (auto-detected provider, see cmd/docgraph).
func (s *DocGraphServer) SetPipeline(p *retrieval.Pipeline) {
	s.Pipeline = p
}

// MCPServer returns the underlying MCP server instance.
func (s *DocGraphServer) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve starts the server over stdio, mirroring Server.Serve's stdio path.
func (s *DocGraphServer) Serve(ctx context.Context) error {
	s.logger.Info("starting docgraph MCP server")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("docgraph MCP server stopped with error", slog.String("error", err.Error()))
	}
	return err
}

func (s *DocGraphServer) registerDocGraphTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_document",
		Description: "Index or re-index a document tree into the document index, embedding only sections whose content changed since the last call.",
	}, s.handleIndexDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and every section it owns from the document index, vector index and graph store.",
	}, s.handleDeleteDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query",
		Description: "Graph-aware retrieval: embed a query, seed from k-NN, optionally expand the graph, rerank with vector/edge/hop signals, and assemble hierarchical context per result.",
	}, s.handleQuery)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "raw_search",
		Description: "Plain k-NN vector search with no graph expansion or reranking. Use for debugging query quality in isolation from the graph.",
	}, s.handleRawSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every document currently in the document index.",
	}, s.handleListDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch a document's full tree, including section content.",
	}, s.handleGetDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_structure",
		Description: "Fetch a document's outline (titles and hierarchy) without paragraph content.",
	}, s.handleGetStructure)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_sections",
		Description: "Fetch a section along with its parent, children and siblings.",
	}, s.handleGetSections)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Summarize the graph store: total edges, edges by type, distinct nodes, average degree.",
	}, s.handleGraphStats)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_neighbors",
		Description: "List a node's neighbors across both edge directions, optionally restricted to specific edge types.",
	}, s.handleGetNeighbors)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_edges",
		Description: "List the raw edges incident to a node, optionally restricted by direction and type.",
	}, s.handleGetEdges)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "expand_graph",
		Description: "Bounded BFS expansion from a set of seed nodes, returning every reached node with its hop distance and discovery path.",
	}, s.handleExpandGraph)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "build_same_topic",
		Description: "(Re)build SAME_TOPIC edges between semantically similar sections across the indexed corpus.",
	}, s.handleBuildSameTopic)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "build_refers_to",
		Description: "(Re)build REFERS_TO edges from markdown and wiki-style links found in section content.",
	}, s.handleBuildRefersTo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "build_concepts",
		Description: "(Re)build the concept sub-graph: MENTIONS, DEFINES and RELATED_TO edges from entity extraction.",
	}, s.handleBuildConcepts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "export_graph",
		Description: "Export a filtered snapshot of the document/section/concept graph, optionally serialized as cytoscape, d3, vis or graphml.",
	}, s.handleExportGraph)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "export_subgraph",
		Description: "Export every section of the documents reached by a bounded BFS from a set of seed nodes, the same way export_graph does for the whole corpus.",
	}, s.handleExportSubgraph)

	s.logger.Info("docgraph MCP tools registered", slog.Int("count", 17))
}

// resolveDocIDs returns ids unchanged when non-empty, otherwise every
// document id currently in the store, the "empty means every document"
// convention every graph-build tool shares.
func (s *DocGraphServer) resolveDocIDs(ids []string) ([]string, error) {
	if len(ids) > 0 {
		return ids, nil
	}
	summaries, err := s.Docs.List()
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "mcp.resolveDocIDs", err)
	}
	out := make([]string, len(summaries))
	for i, sum := range summaries {
		out[i] = sum.DocID
	}
	return out, nil
}

func toSectionOutput(n *document.SectionNode, includeContent bool) SectionOutput {
	out := SectionOutput{ID: n.ID, Title: n.Title, Level: n.Level}
	if includeContent {
		out.Content = n.Content
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, toSectionOutput(c, includeContent))
	}
	return out
}

func toSectionNode(in SectionInput, level int) *document.SectionNode {
	id := in.ID
	if id == "" {
		id = document.DeriveNodeID(in.Title)
	}
	typ := document.TypeSection
	if level == 0 {
		typ = document.TypeDocument
	}
	n := &document.SectionNode{ID: id, Type: typ, Level: level, Title: in.Title, Content: in.Content}
	for _, c := range in.Children {
		n.Children = append(n.Children, toSectionNode(c, level+1))
	}
	return n
}

func toBuildReportOutput(r graphbuild.BuildReport) BuildReportOutput {
	out := BuildReportOutput{EdgesWritten: r.EdgesWritten}
	for _, f := range r.Failed {
		out.Failed = append(out.Failed, FailedDocOutput{DocID: f.DocID, Error: f.Err.Error()})
	}
	return out
}
