// Package docsync is the Indexer (Sync): it reconciles a Document into the
// Structured Store, Vector Index, and the Graph Store's structural edges via
// content hashing, so unchanged sections are never re-embedded (document
// index component 4.E). Grounded on internal/index/coordinator.go's
// event-driven reconcile loop and runner.go's bounded-concurrency batch
// embedding.
package docsync

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	"github.com/Aman-CERP/docgraph/internal/embedport"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
	"github.com/Aman-CERP/docgraph/internal/vectorindex"
)

// Result summarizes one Sync call: how many sections were actually embedded
// (content-hash misses) versus skipped (hits), and how many stale rows were
// deleted.
type Result struct {
	DocID          string
	SectionsTotal  int
	SectionsSynced int // embedded this call
	SectionsSkipped int // unchanged, no embedding call
	SectionsDeleted int
}

// Syncer reconciles documents into the Structured Store, Vector Index and
// Graph Store, per spec section 4.E steps 1-6.
type Syncer struct {
	Docs     docstore.Store
	Vectors  *vectorindex.Index
	Graph    *graphstore.Store
	Embedder embedport.Embedder

	// Workers bounds phase-3 embedding concurrency (spec section 5); 0 means
	// serial (Workers=1 equivalent).
	Workers int

	// docLocks gives per-docId single-writer serialization across B, C and D
	// (spec section 5), mirroring embed/lock.go's keyed advisory lock.
	docLocks sync.Map // docId -> *sync.Mutex
}

func (s *Syncer) lockFor(docID string) *sync.Mutex {
	v, _ := s.docLocks.LoadOrStore(docID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Sync reconciles doc into B, C and D. It never re-embeds a section whose
// content hash is unchanged (P1), and after a successful call the vector
// index's node-id set for doc.DocID exactly equals the tree's node-id set
// (P2, invariant I1-I3).
func (s *Syncer) Sync(ctx context.Context, doc *document.Document) (Result, error) {
	if doc == nil || doc.DocID == "" {
		return Result{}, amerrors.NewKind(amerrors.KindValidation, "docsync.Sync", "document must have a non-empty docId")
	}

	lock := s.lockFor(doc.DocID)
	lock.Lock()
	defer lock.Unlock()

	doc.BuildNodeIndex()

	existingIDs, err := s.Vectors.GetDocNodeIds(ctx, doc.DocID)
	if err != nil {
		return Result{}, amerrors.WrapKind(amerrors.KindStorage, "docsync.Sync", err)
	}
	existing := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	var nodes []*document.SectionNode
	doc.Walk(func(n *document.SectionNode) { nodes = append(nodes, n) })

	visited := make(map[string]bool, len(nodes))
	toEmbed := make([]*document.SectionNode, 0, len(nodes))
	skipped := 0
	for _, n := range nodes {
		visited[n.ID] = true
		h := document.ContentHash(n.Title, n.Content)
		meta, err := s.Vectors.GetSectionMeta(ctx, n.ID)
		if err == nil && meta != nil && meta.ContentHash == h {
			skipped++
			continue
		}
		toEmbed = append(toEmbed, n)
	}

	if err := s.embedAndUpsert(ctx, doc, toEmbed); err != nil {
		return Result{}, err
	}

	deleted := 0
	for id := range existing {
		if visited[id] {
			continue
		}
		if err := s.Vectors.DeleteSection(ctx, id); err != nil {
			return Result{}, amerrors.WrapKind(amerrors.KindStorage, "docsync.Sync", err)
		}
		deleted++
	}

	if err := s.rebuildStructuralEdges(ctx, doc, existing, visited); err != nil {
		return Result{}, err
	}

	if err := s.Docs.Save(doc); err != nil {
		return Result{}, err
	}

	return Result{
		DocID:           doc.DocID,
		SectionsTotal:   len(nodes),
		SectionsSynced:  len(toEmbed),
		SectionsSkipped: skipped,
		SectionsDeleted: deleted,
	}, nil
}

func (s *Syncer) embedAndUpsert(ctx context.Context, doc *document.Document, nodes []*document.SectionNode) error {
	if len(nodes) == 0 {
		return nil
	}
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, n := range nodes {
		n := n
		g.Go(func() error {
			v, err := s.Embedder.Embed(gctx, n.Text())
			if err != nil {
				logEmbedFailure(doc.DocID, n.ID, err)
				return amerrors.WrapKind(amerrors.KindEmbedding, "docsync.embedAndUpsert", err)
			}
			meta := vectorindex.SectionMeta{
				NodeID:      n.ID,
				DocID:       doc.DocID,
				Level:       n.Level,
				Title:       n.Title,
				IsLeaf:      n.IsLeaf(),
				Path:        document.Path(doc.Title, n),
				ContentHash: document.ContentHash(n.Title, n.Content),
				Dimensions:  len(v),
			}
			// Writes to C from concurrent embedding calls are serialized
			// by vectorindex's own locking (see upsertSerialized), so
			// invariant I3 holds, per spec section 5.
			return s.upsertSerialized(gctx, meta, v)
		})
	}
	return g.Wait()
}

// upsertSerialized commits one section's vector. vectorindex.Index already
// serializes UpsertSection internally, which is what makes invariant I3 hold
// under the concurrent embedding calls embedAndUpsert issues.
func (s *Syncer) upsertSerialized(ctx context.Context, meta vectorindex.SectionMeta, v []float32) error {
	if err := s.Vectors.UpsertSection(ctx, meta, v); err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "docsync.upsertSerialized", err)
	}
	return nil
}

// rebuildStructuralEdges implements spec section 4.E step 5: rebuild
// PARENT_OF/CHILD_OF/NEXT_SIBLING/PREV_SIBLING edges for the whole document
// tree and delete edges owned by removed nodes. Structural edges are always
// fully derived from the tree, never accumulated, so this is a delete+insert
// rather than a diff.
func (s *Syncer) rebuildStructuralEdges(ctx context.Context, doc *document.Document, existing, visited map[string]bool) error {
	for id := range existing {
		if !visited[id] {
			if err := s.Graph.DeleteNodeEdges(ctx, id); err != nil {
				return amerrors.WrapKind(amerrors.KindStorage, "docsync.rebuildStructuralEdges", err)
			}
		}
	}

	var edges []graphstore.Edge
	var walk func(n *document.SectionNode)
	walk = func(n *document.SectionNode) {
		for i, c := range n.Children {
			edges = append(edges,
				graphstore.Edge{FromID: n.ID, ToID: c.ID, Type: graphstore.EdgeParentOf},
				graphstore.Edge{FromID: c.ID, ToID: n.ID, Type: graphstore.EdgeChildOf},
			)
			if i+1 < len(n.Children) {
				edges = append(edges, graphstore.Edge{FromID: c.ID, ToID: n.Children[i+1].ID, Type: graphstore.EdgeNextSibling})
			}
			if i > 0 {
				edges = append(edges, graphstore.Edge{FromID: c.ID, ToID: n.Children[i-1].ID, Type: graphstore.EdgePrevSibling})
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if doc.Root != nil {
		walk(doc.Root)
	}

	if len(edges) == 0 {
		return nil
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromID != edges[j].FromID {
			return edges[i].FromID < edges[j].FromID
		}
		return edges[i].Type < edges[j].Type
	})
	if err := s.Graph.UpsertEdges(ctx, edges); err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "docsync.rebuildStructuralEdges", err)
	}
	return nil
}

// Consistency checks invariants I1-I3 across docstore+vectorindex+graphstore
// for one document, mirroring index/consistency.go's chunk/embedding/BM25
// three-way check, ported to the B/C/D triple.
type Consistency struct {
	DocID            string
	TreeNodeCount    int
	IndexedNodeCount int
	MissingFromIndex []string // in the tree but not in C (I1 violation)
	OrphanedInIndex  []string // in C but not reachable from the tree (I1 violation)
	Consistent       bool
}

// Check verifies invariant I1 for a document already persisted to Docs.
func (s *Syncer) Check(ctx context.Context, docID string) (Consistency, error) {
	doc, err := s.Docs.Load(docID)
	if err != nil {
		return Consistency{}, err
	}
	treeIDs := make(map[string]bool)
	doc.Walk(func(n *document.SectionNode) { treeIDs[n.ID] = true })

	indexedIDs, err := s.Vectors.GetDocNodeIds(ctx, docID)
	if err != nil {
		return Consistency{}, amerrors.WrapKind(amerrors.KindStorage, "docsync.Check", err)
	}
	indexed := make(map[string]bool, len(indexedIDs))
	for _, id := range indexedIDs {
		indexed[id] = true
	}

	res := Consistency{DocID: docID, TreeNodeCount: len(treeIDs), IndexedNodeCount: len(indexed)}
	for id := range treeIDs {
		if !indexed[id] {
			res.MissingFromIndex = append(res.MissingFromIndex, id)
		}
	}
	for id := range indexed {
		if !treeIDs[id] {
			res.OrphanedInIndex = append(res.OrphanedInIndex, id)
		}
	}
	sort.Strings(res.MissingFromIndex)
	sort.Strings(res.OrphanedInIndex)
	res.Consistent = len(res.MissingFromIndex) == 0 && len(res.OrphanedInIndex) == 0
	return res, nil
}

func logEmbedFailure(docID, nodeID string, err error) {
	slog.Warn("docsync: embedding failed for section, left unchanged",
		slog.String("docId", docID), slog.String("nodeId", nodeID), slog.String("error", err.Error()))
}
