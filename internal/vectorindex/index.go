package vectorindex

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/hnsw"
	_ "modernc.org/sqlite" // pure Go sqlite driver, no CGO

	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

// Config configures an Index, mirroring store.VectorStoreConfig's field set
// generalized to the document graph's fixed DMax padding.
type Config struct {
	Metric         string // "cos" (default) or "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

func (c Config) withDefaults() Config {
	if c.Metric == "" {
		c.Metric = "cos"
	}
	if c.M == 0 {
		c.M = 16
	}
	if c.EfSearch == 0 {
		c.EfSearch = 20
	}
	return c
}

// Index is the Vector Index: a SQLite metadata table keyed by rowId/nodeId
// (following store.SQLiteBM25Index's database/sql idiom) fronting an HNSW
// graph of DMax-padded vectors (following store.HNSWStore's lazy-deletion
// and cosine-normalization idiom). rowId doubles as the HNSW node key, which
// is what keeps invariant I3 (rowId<->nodeId one-to-one) trivially true:
// both sides share the same integer.
type Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	graph  *hnsw.Graph[uint64]
	config Config
	vecDir string
	closed bool

	// vectors mirrors what's in the HNSW graph, keyed the same way
	// (rowId), so GetVector and Save/Load don't depend on the graph
	// exposing a by-key lookup -- the teacher's coder/hnsw wrapper never
	// needed one, since HNSWStore only ever reads results back via Search.
	vectors map[uint64][]float32
}

// NewIndex opens (creating if necessary) a vector index backed by a SQLite
// metadata database at dbPath and an HNSW graph file alongside it.
func NewIndex(dbPath string, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.NewIndex", err)
	}

	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.NewIndex", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.NewIndex", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.NewIndex", err)
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	idx := &Index{db: db, graph: graph, config: cfg, vecDir: dir, vectors: make(map[uint64][]float32)}

	vecPath := dbPath + ".hnsw"
	if _, err := os.Stat(vecPath); err == nil {
		if err := idx.loadGraph(vecPath); err != nil {
			_ = db.Close()
			return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.NewIndex", err)
		}
	}

	return idx, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS section_meta (
	row_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id     TEXT UNIQUE NOT NULL,
	doc_id      TEXT NOT NULL,
	level       INTEGER NOT NULL,
	title       TEXT NOT NULL,
	is_leaf     INTEGER NOT NULL,
	path        TEXT NOT NULL,
	hash        TEXT NOT NULL,
	dimensions  INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_section_meta_doc_id ON section_meta(doc_id);
CREATE INDEX IF NOT EXISTS idx_section_meta_level ON section_meta(level);
`

// UpsertSection replaces-or-inserts meta/vector: the SQLite row commits
// first (so a crash never leaves an orphaned graph node without metadata),
// then the HNSW graph gets the vector. graph.Add returns no error, so a
// committed row is never rolled back.
func (idx *Index) UpsertSection(ctx context.Context, meta SectionMeta, vector []float32) error {
	if meta.NodeID == "" {
		return amerrors.NewKind(amerrors.KindValidation, "vectorindex.UpsertSection", "meta.NodeID must not be empty")
	}
	if len(vector) > DMax {
		return amerrors.WrapKind(amerrors.KindValidation, "vectorindex.UpsertSection", ErrDimensionMismatch{Expected: DMax, Got: len(vector)})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return amerrors.NewKind(amerrors.KindStorage, "vectorindex.UpsertSection", "index is closed")
	}

	padded := make([]float32, DMax)
	copy(padded, vector)
	if idx.config.Metric == "cos" {
		normalizeVectorInPlace(padded)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var rowID uint64
	existing, err := idx.queryRowID(meta.NodeID)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.UpsertSection", err)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.UpsertSection", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if existing != nil {
		rowID = *existing
		_, err = tx.ExecContext(ctx, `UPDATE section_meta SET doc_id=?, level=?, title=?, is_leaf=?, path=?, hash=?, dimensions=?, updated_at=? WHERE row_id=?`,
			meta.DocID, meta.Level, meta.Title, boolToInt(meta.IsLeaf), meta.Path, meta.ContentHash, meta.Dimensions, now, rowID)
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `INSERT INTO section_meta(node_id, doc_id, level, title, is_leaf, path, hash, dimensions, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			meta.NodeID, meta.DocID, meta.Level, meta.Title, boolToInt(meta.IsLeaf), meta.Path, meta.ContentHash, meta.Dimensions, now, now)
		if err == nil {
			var id int64
			id, err = res.LastInsertId()
			rowID = uint64(id)
		}
	}
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.UpsertSection", err)
	}
	if err := tx.Commit(); err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.UpsertSection", err)
	}
	committed = true

	// Lazy-replace, same pattern as store.HNSWStore.Add: never call
	// graph.Delete on the old key, just let it become orphaned.
	node := hnsw.MakeNode(rowID, padded)
	idx.graph.Add(node)
	idx.vectors[rowID] = padded

	return nil
}

// DeleteSection removes the metadata row for nodeID. The HNSW node and the
// in-memory vector stay in place and are lazily orphaned (same rationale as
// store.HNSWStore.Delete: deleting the last node in coder/hnsw can break
// the graph); SearchKNN and GetVector skip keys with no metadata row.
func (idx *Index) DeleteSection(ctx context.Context, nodeID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return amerrors.NewKind(amerrors.KindStorage, "vectorindex.DeleteSection", "index is closed")
	}

	_, err := idx.db.ExecContext(ctx, `DELETE FROM section_meta WHERE node_id = ?`, nodeID)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.DeleteSection", err)
	}
	return nil
}

// GetSectionMeta returns the metadata row for nodeID.
func (idx *Index) GetSectionMeta(ctx context.Context, nodeID string) (*SectionMeta, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	row := idx.db.QueryRowContext(ctx, `SELECT node_id, doc_id, level, title, is_leaf, path, hash, dimensions FROM section_meta WHERE node_id = ?`, nodeID)
	var m SectionMeta
	var isLeaf int
	if err := row.Scan(&m.NodeID, &m.DocID, &m.Level, &m.Title, &isLeaf, &m.Path, &m.ContentHash, &m.Dimensions); err != nil {
		if err == sql.ErrNoRows {
			return nil, amerrors.NewKind(amerrors.KindNotFound, "vectorindex.GetSectionMeta", fmt.Sprintf("node %q not found", nodeID))
		}
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.GetSectionMeta", err)
	}
	m.IsLeaf = isLeaf != 0
	return &m, nil
}

// GetDocNodeIds returns every node id belonging to docID.
func (idx *Index) GetDocNodeIds(ctx context.Context, docID string) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx, `SELECT node_id FROM section_meta WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.GetDocNodeIds", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.GetDocNodeIds", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetVector returns the DMax-padded stored vector for nodeID. Callers slice
// [:meta.Dimensions] to recover the original, un-padded vector.
func (idx *Index) GetVector(ctx context.Context, nodeID string) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rowID, err := idx.queryRowID(nodeID)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.GetVector", err)
	}
	if rowID == nil {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "vectorindex.GetVector", fmt.Sprintf("node %q not found", nodeID))
	}
	vec, ok := idx.vectors[*rowID]
	if !ok {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "vectorindex.GetVector", fmt.Sprintf("node %q has no vector", nodeID))
	}
	return vec, nil
}

// SearchKNN returns the k closest rows matching filters, ordered by
// ascending distance. Filters are respected exactly: when the HNSW graph
// offers no predicate pushdown the search over-fetches by overfetchFactor
// and filters down, repeating with a larger fetch if still short.
func (idx *Index) SearchKNN(ctx context.Context, query []float32, k int, filters Filters) ([]SearchResult, error) {
	if k <= 0 {
		return nil, amerrors.NewKind(amerrors.KindValidation, "vectorindex.SearchKNN", "k must be > 0")
	}
	if len(query) > DMax {
		return nil, amerrors.WrapKind(amerrors.KindValidation, "vectorindex.SearchKNN", ErrDimensionMismatch{Expected: DMax, Got: len(query)})
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, amerrors.NewKind(amerrors.KindStorage, "vectorindex.SearchKNN", "index is closed")
	}

	padded := make([]float32, DMax)
	copy(padded, query)
	if idx.config.Metric == "cos" {
		normalizeVectorInPlace(padded)
	}

	if idx.graph.Len() == 0 {
		return nil, nil
	}

	fetch := k
	if !filters.empty() {
		fetch = k * overfetchFactor
	}

	metaByRowID, err := idx.allMetaByRowID(ctx)
	if err != nil {
		return nil, err
	}

	for {
		nodes := idx.graph.Search(padded, fetch)
		results := make([]SearchResult, 0, k)
		for _, n := range nodes {
			m, ok := metaByRowID[n.Key]
			if !ok {
				continue // orphaned (lazily deleted) node
			}
			if !filters.matches(m) {
				continue
			}
			distance := idx.graph.Distance(padded, n.Value)
			results = append(results, SearchResult{
				Meta:     m,
				Distance: distance,
				Score:    distanceToScore(distance, idx.config.Metric),
			})
			if len(results) == k {
				return results, nil
			}
		}
		if len(nodes) < fetch || fetch >= idx.graph.Len() {
			return results, nil
		}
		fetch *= overfetchFactor
	}
}

func (idx *Index) allMetaByRowID(ctx context.Context) (map[uint64]SectionMeta, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT row_id, node_id, doc_id, level, title, is_leaf, path, hash, dimensions FROM section_meta`)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.allMetaByRowID", err)
	}
	defer rows.Close()

	out := make(map[uint64]SectionMeta)
	for rows.Next() {
		var rowID int64
		var m SectionMeta
		var isLeaf int
		if err := rows.Scan(&rowID, &m.NodeID, &m.DocID, &m.Level, &m.Title, &isLeaf, &m.Path, &m.ContentHash, &m.Dimensions); err != nil {
			return nil, amerrors.WrapKind(amerrors.KindStorage, "vectorindex.allMetaByRowID", err)
		}
		m.IsLeaf = isLeaf != 0
		out[uint64(rowID)] = m
	}
	return out, rows.Err()
}

func (idx *Index) queryRowID(nodeID string) (*uint64, error) {
	var rowID int64
	err := idx.db.QueryRow(`SELECT row_id FROM section_meta WHERE node_id = ?`, nodeID).Scan(&rowID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := uint64(rowID)
	return &u, nil
}

// Save persists the HNSW graph to path and the rowId->vector map to
// path+".vecs", both via the temp-file-then-rename pattern of
// store.HNSWStore.Save. Metadata is always durable in SQLite and needs no
// separate save step.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	if err := idx.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}

	vecPath := path + ".vecs"
	vecTmp := vecPath + ".tmp"
	vf, err := os.Create(vecTmp)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	if err := gob.NewEncoder(vf).Encode(idx.vectors); err != nil {
		vf.Close()
		os.Remove(vecTmp)
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	if err := vf.Close(); err != nil {
		os.Remove(vecTmp)
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	if err := os.Rename(vecTmp, vecPath); err != nil {
		os.Remove(vecTmp)
		return amerrors.WrapKind(amerrors.KindStorage, "vectorindex.Save", err)
	}
	return nil
}

func (idx *Index) loadGraph(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	reader := bufio.NewReader(f)
	if err := idx.graph.Import(reader); err != nil {
		return err
	}

	vecPath := path + ".vecs"
	vf, err := os.Open(vecPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("vectorindex: hnsw graph loaded without a matching vector sidecar; GetVector will fail until the next Save", slog.String("path", vecPath))
			return nil
		}
		return err
	}
	defer vf.Close()
	return gob.NewDecoder(vf).Decode(&idx.vectors)
}

// Close releases the underlying SQLite connection.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MarshalMeta is exposed for callers (e.g. graphexport) that want a JSON
// view of a metadata row without importing encoding/json themselves.
func MarshalMeta(m SectionMeta) ([]byte, error) {
	return json.Marshal(m)
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
