package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver, no CGO

	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

// Store persists the edge set in SQLite, following the same
// database/sql + prepared-statement idiom as store.SQLiteBM25Index: WAL
// mode, a single connection, and a CREATE TABLE IF NOT EXISTS migration
// block run at open.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS edges (
	from_id    TEXT NOT NULL,
	to_id      TEXT NOT NULL,
	type       TEXT NOT NULL,
	weight     REAL,
	has_weight INTEGER NOT NULL,
	metadata   TEXT,
	created_at TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id, type)
);
CREATE INDEX IF NOT EXISTS idx_edges_from_type ON edges(from_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_to_type ON edges(to_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
`

// NewStore opens (creating if necessary) a graph store backed by a SQLite
// database at path. An empty path opens an in-memory store, used by tests.
func NewStore(path string) (*Store, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.NewStore", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.NewStore", err)
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
			return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.NewStore", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.NewStore", err)
	}

	return &Store{db: db}, nil
}

// UpsertEdge inserts or replaces a single edge.
func (s *Store) UpsertEdge(ctx context.Context, e Edge) error {
	return s.UpsertEdges(ctx, []Edge{e})
}

// UpsertEdges inserts or replaces a batch of edges in a single transaction,
// per spec section 5's atomicity requirement for upsertEdges.
func (s *Store) UpsertEdges(ctx context.Context, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	for _, e := range edges {
		if !e.Type.IsValid() {
			return amerrors.NewKind(amerrors.KindValidation, "graphstore.UpsertEdges", fmt.Sprintf("unknown edge type %q", e.Type))
		}
		if e.FromID == "" || e.ToID == "" {
			return amerrors.NewKind(amerrors.KindValidation, "graphstore.UpsertEdges", "edge fromId/toId must not be empty")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return amerrors.NewKind(amerrors.KindStorage, "graphstore.UpsertEdges", "store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "graphstore.UpsertEdges", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges(from_id, to_id, type, weight, has_weight, metadata, created_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(from_id, to_id, type) DO UPDATE SET weight=excluded.weight, has_weight=excluded.has_weight, metadata=excluded.metadata, created_at=excluded.created_at`)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "graphstore.UpsertEdges", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range edges {
		createdAt := e.CreatedAt
		if createdAt == "" {
			createdAt = now
		}
		var metaJSON any
		if len(e.Metadata) > 0 {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return amerrors.WrapKind(amerrors.KindStorage, "graphstore.UpsertEdges", err)
			}
			metaJSON = string(b)
		}
		hasWeight := 0
		if e.HasWeight {
			hasWeight = 1
		}
		if _, err := stmt.ExecContext(ctx, e.FromID, e.ToID, string(e.Type), e.Weight, hasWeight, metaJSON, createdAt); err != nil {
			return amerrors.WrapKind(amerrors.KindStorage, "graphstore.UpsertEdges", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "graphstore.UpsertEdges", err)
	}
	committed = true
	return nil
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var e Edge
		var typeStr string
		var weight sql.NullFloat64
		var hasWeight int
		var metaStr sql.NullString
		if err := rows.Scan(&e.FromID, &e.ToID, &typeStr, &weight, &hasWeight, &metaStr, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EdgeType(typeStr)
		e.HasWeight = hasWeight != 0
		if weight.Valid {
			e.Weight = weight.Float64
		}
		if metaStr.Valid && metaStr.String != "" {
			if err := json.Unmarshal([]byte(metaStr.String), &e.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetOutgoingEdges returns edges originating at nodeID, optionally
// restricted to edgeType (pass "" for all types).
func (s *Store) GetOutgoingEdges(ctx context.Context, nodeID string, edgeType EdgeType) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if edgeType == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT from_id, to_id, type, weight, has_weight, metadata, created_at FROM edges WHERE from_id = ?`, nodeID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT from_id, to_id, type, weight, has_weight, metadata, created_at FROM edges WHERE from_id = ? AND type = ?`, nodeID, string(edgeType))
	}
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.GetOutgoingEdges", err)
	}
	out, err := scanEdges(rows)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.GetOutgoingEdges", err)
	}
	return out, nil
}

// GetIncomingEdges returns edges terminating at nodeID, optionally
// restricted to edgeType (pass "" for all types).
func (s *Store) GetIncomingEdges(ctx context.Context, nodeID string, edgeType EdgeType) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if edgeType == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT from_id, to_id, type, weight, has_weight, metadata, created_at FROM edges WHERE to_id = ?`, nodeID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT from_id, to_id, type, weight, has_weight, metadata, created_at FROM edges WHERE to_id = ? AND type = ?`, nodeID, string(edgeType))
	}
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.GetIncomingEdges", err)
	}
	out, err := scanEdges(rows)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.GetIncomingEdges", err)
	}
	return out, nil
}

// GetEdgesByType returns every edge of the given type.
func (s *Store) GetEdgesByType(ctx context.Context, edgeType EdgeType) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id, type, weight, has_weight, metadata, created_at FROM edges WHERE type = ?`, string(edgeType))
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.GetEdgesByType", err)
	}
	out, err := scanEdges(rows)
	if err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "graphstore.GetEdgesByType", err)
	}
	return out, nil
}

// GetNeighbors returns nodeID's neighbors in both directions, optionally
// restricted to types (empty means all types).
func (s *Store) GetNeighbors(ctx context.Context, nodeID string, types []EdgeType) ([]Neighbor, error) {
	allowed := edgeTypeSet(types)

	out, err := s.GetOutgoingEdges(ctx, nodeID, "")
	if err != nil {
		return nil, err
	}
	in, err := s.GetIncomingEdges(ctx, nodeID, "")
	if err != nil {
		return nil, err
	}

	var neighbors []Neighbor
	for _, e := range out {
		if allowed != nil {
			if _, ok := allowed[e.Type]; !ok {
				continue
			}
		}
		neighbors = append(neighbors, Neighbor{NodeID: e.ToID, EdgeType: e.Type, Weight: e.effectiveWeight(), Direction: DirectionOut})
	}
	for _, e := range in {
		if allowed != nil {
			if _, ok := allowed[e.Type]; !ok {
				continue
			}
		}
		neighbors = append(neighbors, Neighbor{NodeID: e.FromID, EdgeType: e.Type, Weight: e.effectiveWeight(), Direction: DirectionIn})
	}
	return neighbors, nil
}

// DeleteEdge removes a single edge by its primary key.
func (s *Store) DeleteEdge(ctx context.Context, fromID, toID string, edgeType EdgeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return amerrors.NewKind(amerrors.KindStorage, "graphstore.DeleteEdge", "store is closed")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? AND to_id = ? AND type = ?`, fromID, toID, string(edgeType))
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "graphstore.DeleteEdge", err)
	}
	return nil
}

// DeleteNodeEdges removes every edge touching nodeID, in either direction.
func (s *Store) DeleteNodeEdges(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return amerrors.NewKind(amerrors.KindStorage, "graphstore.DeleteNodeEdges", "store is closed")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, nodeID, nodeID)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "graphstore.DeleteNodeEdges", err)
	}
	return nil
}

// Stats returns the aggregate counters behind getGraphStats.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id, type FROM edges`)
	if err != nil {
		return Stats{}, amerrors.WrapKind(amerrors.KindStorage, "graphstore.Stats", err)
	}
	defer rows.Close()

	byType := make(map[EdgeType]int)
	nodes := make(map[string]struct{})
	degree := make(map[string]int)
	total := 0
	for rows.Next() {
		var from, to, typeStr string
		if err := rows.Scan(&from, &to, &typeStr); err != nil {
			return Stats{}, amerrors.WrapKind(amerrors.KindStorage, "graphstore.Stats", err)
		}
		total++
		byType[EdgeType(typeStr)]++
		nodes[from] = struct{}{}
		nodes[to] = struct{}{}
		degree[from]++
		degree[to]++
	}
	if err := rows.Err(); err != nil {
		return Stats{}, amerrors.WrapKind(amerrors.KindStorage, "graphstore.Stats", err)
	}

	var avg float64
	if len(nodes) > 0 {
		sum := 0
		for _, d := range degree {
			sum += d
		}
		avg = float64(sum) / float64(len(nodes))
	}

	return Stats{
		TotalEdges:    total,
		EdgesByType:   byType,
		DistinctNodes: len(nodes),
		AverageDegree: avg,
	}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ExpandGraph performs the breadth-first frontier walk of spec section 4.D:
// seeds start at hop 0, each subsequent hop enumerates neighbors restricted
// to cfg.EdgeTypes and cfg.MinWeight, skipping already-visited nodes, until
// cfg.MaxHops is exhausted or the result reaches cfg.MaxNodes. Result order
// is insertion order, which is BFS order; ties within a hop are broken by
// deterministicNeighbors' order (edge type, then target id).
func (s *Store) ExpandGraph(ctx context.Context, seeds []string, cfg ExpandConfig) ([]ExpandResult, error) {
	if len(seeds) == 0 {
		return nil, amerrors.NewKind(amerrors.KindValidation, "graphstore.ExpandGraph", "seeds must not be empty")
	}
	if cfg.MaxNodes < 1 {
		return nil, amerrors.NewKind(amerrors.KindValidation, "graphstore.ExpandGraph", "maxNodes must be >= 1")
	}

	visited := make(map[string]struct{}, len(seeds))
	var result []ExpandResult
	paths := make(map[string][]string, len(seeds))

	for _, seed := range seeds {
		if _, ok := visited[seed]; ok {
			continue
		}
		visited[seed] = struct{}{}
		paths[seed] = []string{seed}
		result = append(result, ExpandResult{NodeID: seed, Hop: 0, Path: []string{seed}})
	}

	frontier := append([]string(nil), seeds...)

	for hop := 0; hop < cfg.MaxHops && len(result) < cfg.MaxNodes; hop++ {
		var next []string
		for _, u := range frontier {
			if len(result) >= cfg.MaxNodes {
				break
			}
			neighbors, err := s.deterministicNeighbors(ctx, u, cfg.EdgeTypes)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if len(result) >= cfg.MaxNodes {
					break
				}
				if _, ok := visited[n.NodeID]; ok {
					continue
				}
				if n.Weight < cfg.MinWeight {
					continue
				}
				visited[n.NodeID] = struct{}{}
				path := append(append([]string(nil), paths[u]...), n.NodeID)
				paths[n.NodeID] = path
				result = append(result, ExpandResult{
					NodeID:   n.NodeID,
					Hop:      hop + 1,
					Path:     path,
					EdgeType: n.EdgeType,
					Weight:   n.Weight,
				})
				next = append(next, n.NodeID)
			}
		}
		frontier = next
	}

	return result, nil
}

// deterministicNeighbors enumerates the outgoing neighbors of u restricted
// to edgeTypes, in a stable order (by edge type, then target id) so BFS
// ties within a hop are reproducible.
func (s *Store) deterministicNeighbors(ctx context.Context, u string, edgeTypes []EdgeType) ([]Neighbor, error) {
	allowed := edgeTypeSet(edgeTypes)

	out, err := s.GetOutgoingEdges(ctx, u, "")
	if err != nil {
		return nil, err
	}
	var neighbors []Neighbor
	for _, e := range out {
		if allowed != nil {
			if _, ok := allowed[e.Type]; !ok {
				continue
			}
		}
		neighbors = append(neighbors, Neighbor{NodeID: e.ToID, EdgeType: e.Type, Weight: e.effectiveWeight(), Direction: DirectionOut})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].EdgeType != neighbors[j].EdgeType {
			return neighbors[i].EdgeType < neighbors[j].EdgeType
		}
		return neighbors[i].NodeID < neighbors[j].NodeID
	})
	return neighbors, nil
}
