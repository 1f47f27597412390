package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docgraph/internal/document"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

func threeLevelDoc() *document.Document {
	child1 := &document.SectionNode{ID: "d#child1", Title: "Child 1", Content: []string{"first"}}
	child2 := &document.SectionNode{ID: "d#child2", Title: "Child 2", Content: []string{"second"},
		Children: []*document.SectionNode{
			{ID: "d#grandchild", Title: "Grandchild", Content: []string{"deep"}},
		},
	}
	root := &document.SectionNode{ID: "d#root", Title: "Root", Children: []*document.SectionNode{child1, child2}}
	doc := &document.Document{DocID: "d", Title: "Doc D", Version: 1, Root: root}
	doc.BuildNodeIndex()
	return doc
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	doc := threeLevelDoc()
	require.NoError(t, store.Save(doc))

	loaded, err := store.Load("d")
	require.NoError(t, err)
	assert.Equal(t, "Doc D", loaded.Title)
	assert.Equal(t, 1, loaded.Version)
}

func TestFileStoreLoadMissingReturnsNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load("missing")
	require.Error(t, err)
	assert.True(t, amerrors.IsKind(err, amerrors.KindNotFound))
}

func TestFileStoreSaveRejectsEmptyDocID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Save(&document.Document{Root: &document.SectionNode{ID: "x"}})
	require.Error(t, err)
	assert.True(t, amerrors.IsKind(err, amerrors.KindValidation))
}

func TestFileStoreSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	doc := threeLevelDoc()
	require.NoError(t, store.Save(doc))

	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStoreDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	doc := threeLevelDoc()
	require.NoError(t, store.Save(doc))
	require.NoError(t, store.Delete("d"))

	_, err = store.Load("d")
	require.Error(t, err)
	assert.True(t, amerrors.IsKind(err, amerrors.KindNotFound))
}

func TestFileStoreList(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(threeLevelDoc()))
	other := threeLevelDoc()
	other.DocID = "a"
	other.Title = "Doc A"
	require.NoError(t, store.Save(other))

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a", summaries[0].DocID, "List must be sorted by DocID")
	assert.Equal(t, "d", summaries[1].DocID)
}

func TestFileStoreGetNodeParentChildrenSiblings(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(threeLevelDoc()))

	node, err := store.GetNode("d", "d#grandchild")
	require.NoError(t, err)
	assert.Equal(t, "Grandchild", node.Title)

	parent, err := store.GetParent("d", "d#grandchild")
	require.NoError(t, err)
	assert.Equal(t, "d#child2", parent.ID)

	_, err = store.GetParent("d", "d#root")
	require.Error(t, err)
	assert.True(t, amerrors.IsKind(err, amerrors.KindNotFound))

	children, err := store.GetChildren("d", "d#root")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "d#child1", children[0].ID)
	assert.Equal(t, "d#child2", children[1].ID)

	siblings, err := store.GetSiblings("d", "d#child1")
	require.NoError(t, err)
	require.Len(t, siblings, 2)
}

func TestFileStoreReloadsFromDiskOnRestart(t *testing.T) {
	dir := t.TempDir()
	store1, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store1.Save(threeLevelDoc()))
	require.NoError(t, store1.Close())

	store2, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store2.Close()

	loaded, err := store2.Load("d")
	require.NoError(t, err)
	assert.Equal(t, "Doc D", loaded.Title)
}
