package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/docgraph/internal/config"
	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/docsync"
	"github.com/Aman-CERP/docgraph/internal/embedport"
	"github.com/Aman-CERP/docgraph/internal/graphbuild"
	"github.com/Aman-CERP/docgraph/internal/graphexport"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	amcp "github.com/Aman-CERP/docgraph/internal/mcp"
	"github.com/Aman-CERP/docgraph/internal/retrieval"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

// app bundles every store and the retrieval pipeline a CLI subcommand needs,
// opened against the project's .docgraph data directory.
type app struct {
	cfg   *config.Config
	docs  docstore.Store
	vecs  *vectorindex.Index
	graph *graphstore.Store

	embedder embedport.Embedder
	pipeline *retrieval.Pipeline
	syncer   *docsync.Syncer
	server   *amcp.DocGraphServer
}

// dataDir locates the project root the same way amanmcp does, then returns
// its .docgraph subdirectory.
func dataDir() (string, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(root, ".docgraph"), nil
}

// openApp opens every store under dir, builds the embedder the config
// selects, and wires docsync, the retrieval pipeline and the MCP server on
// top of them. Callers must call close() when done.
func openApp(dir string) (*app, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	cfg := config.NewConfig()
	if userCfg, err := config.LoadUserConfig(); err == nil && userCfg != nil {
		cfg = userCfg
	}

	docs, err := docstore.NewFileStore(filepath.Join(dir, "documents"))
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	vecs, err := vectorindex.NewIndex(filepath.Join(dir, "vectors.db"), vectorindex.Config{})
	if err != nil {
		_ = docs.Close()
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	graph, err := graphstore.NewStore(filepath.Join(dir, "graph.db"))
	if err != nil {
		_ = docs.Close()
		_ = vecs.Close()
		return nil, fmt.Errorf("open graph store: %w", err)
	}

	embedder, err := embedport.Factory(embedderConfig(cfg))
	if err != nil {
		_ = docs.Close()
		_ = vecs.Close()
		_ = graph.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	syncer := &docsync.Syncer{Docs: docs, Vectors: vecs, Graph: graph, Embedder: embedder, Workers: cfg.Performance.IndexWorkers}
	pipeline := &retrieval.Pipeline{Docs: docs, Vectors: vecs, Graph: graph, Embedder: embedder}

	server, err := amcp.NewDocGraphServer(docs, vecs, graph, syncer, cfg)
	if err != nil {
		_ = docs.Close()
		_ = vecs.Close()
		_ = graph.Close()
		return nil, fmt.Errorf("build MCP server: %w", err)
	}
	server.SetPipeline(pipeline)

	return &app{
		cfg: cfg, docs: docs, vecs: vecs, graph: graph,
		embedder: embedder, pipeline: pipeline, syncer: syncer, server: server,
	}, nil
}

func (a *app) close() {
	_ = a.embedder.Close()
	_ = a.vecs.Close()
	_ = a.graph.Close()
	_ = a.docs.Close()
}

// embedderConfig maps the shared config's embeddings section onto
// embedport.Config. docgraph's embedport only knows mock, openaiLike and
// ollamaLike (no MLX auto-detect); an empty or unrecognized provider name
// falls back to mock so a fresh checkout works offline with no setup.
func embedderConfig(cfg *config.Config) embedport.Config {
	dims := cfg.Embeddings.Dimensions
	if dims <= 0 {
		dims = 256
	}
	switch cfg.Embeddings.Provider {
	case "ollama", "ollamaLike":
		endpoint := cfg.Embeddings.OllamaHost
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		return embedport.Config{Provider: embedport.ProviderOllamaLike, Endpoint: endpoint, Model: cfg.Embeddings.Model, Dimensions: cfg.Embeddings.Dimensions}
	case "openai", "openaiLike":
		return embedport.Config{Provider: embedport.ProviderOpenAILike, Endpoint: cfg.Embeddings.MLXEndpoint, Model: cfg.Embeddings.Model, Dimensions: cfg.Embeddings.Dimensions}
	default:
		return embedport.Config{Provider: embedport.ProviderMock, Dimensions: dims}
	}
}

// graphBuilders is a convenience bundle for the "graph build" family of
// subcommands, constructed on top of an already-open app.
type graphBuilders struct {
	sameTopic *graphbuild.SameTopicBuilder
	refersTo  *graphbuild.RefersToBuilder
	concepts  *graphbuild.ConceptBuilder
	exporter  *graphexport.Exporter
}

func (a *app) builders() graphBuilders {
	return graphBuilders{
		sameTopic: &graphbuild.SameTopicBuilder{Vectors: a.vecs, Graph: a.graph},
		refersTo:  &graphbuild.RefersToBuilder{Docs: a.docs, Graph: a.graph},
		concepts:  &graphbuild.ConceptBuilder{Docs: a.docs, Graph: a.graph},
		exporter:  &graphexport.Exporter{Docs: a.docs, Graph: a.graph},
	}
}
