package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := NewIndex(filepath.Join(dir, "vectors.db"), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func vec(vals ...float32) []float32 { return vals }

func TestUpsertAndGetSectionMeta(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	meta := SectionMeta{NodeID: "n1", DocID: "d1", Level: 1, Title: "Intro", IsLeaf: true, Path: "Doc / Intro", ContentHash: "h1", Dimensions: 3}
	require.NoError(t, idx.UpsertSection(ctx, meta, vec(1, 0, 0)))

	got, err := idx.GetSectionMeta(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, meta, *got)

	ids, err := idx.GetDocNodeIds(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, ids)
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	meta := SectionMeta{NodeID: "n1", DocID: "d1", Level: 0, Title: "A", ContentHash: "h1", Dimensions: 2}
	require.NoError(t, idx.UpsertSection(ctx, meta, vec(1, 0)))

	meta2 := meta
	meta2.Title = "B"
	meta2.ContentHash = "h2"
	require.NoError(t, idx.UpsertSection(ctx, meta2, vec(0, 1)))

	got, err := idx.GetSectionMeta(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, "B", got.Title)
	require.Equal(t, "h2", got.ContentHash)

	ids, err := idx.GetDocNodeIds(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, ids, 1, "replacing an existing node must not create a second row")
}

func TestDeleteSection(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	meta := SectionMeta{NodeID: "n1", DocID: "d1", ContentHash: "h1"}
	require.NoError(t, idx.UpsertSection(ctx, meta, vec(1, 0)))
	require.NoError(t, idx.DeleteSection(ctx, "n1"))

	_, err := idx.GetSectionMeta(ctx, "n1")
	require.Error(t, err)
	require.True(t, amerrors.IsKind(err, amerrors.KindNotFound))
}

func TestSearchKNNOrdersByDistance(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.UpsertSection(ctx, SectionMeta{NodeID: "close", DocID: "d1", ContentHash: "h"}, vec(1, 0, 0)))
	require.NoError(t, idx.UpsertSection(ctx, SectionMeta{NodeID: "far", DocID: "d1", ContentHash: "h"}, vec(0, 1, 0)))

	results, err := idx.SearchKNN(ctx, vec(1, 0, 0), 2, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "close", results[0].Meta.NodeID)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchKNNRespectsDocIDFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.UpsertSection(ctx, SectionMeta{NodeID: "a", DocID: "d1", ContentHash: "h"}, vec(1, 0)))
	require.NoError(t, idx.UpsertSection(ctx, SectionMeta{NodeID: "b", DocID: "d2", ContentHash: "h"}, vec(1, 0)))

	results, err := idx.SearchKNN(ctx, vec(1, 0), 5, Filters{DocID: "d2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "b", results[0].Meta.NodeID)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "vectors.db")
	hnswPath := dbPath + ".hnsw" // the file NewIndex loads the graph from

	idx, err := NewIndex(dbPath, Config{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.UpsertSection(ctx, SectionMeta{NodeID: "n1", DocID: "d1", ContentHash: "h1", Dimensions: 2}, vec(1, 0)))
	require.NoError(t, idx.Save(hnswPath))
	require.NoError(t, idx.Close())

	idx2, err := NewIndex(dbPath, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx2.Close() })

	got, err := idx2.GetSectionMeta(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, "n1", got.NodeID)

	vector, err := idx2.GetVector(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, vector, DMax)
}
