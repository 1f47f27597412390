// Package docstore is the Structured Store: a persistent docId -> Document
// mapping, file-backed with atomic replace-on-write so readers never observe
// a partially written document.
package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Aman-CERP/docgraph/internal/document"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

// Summary is the lightweight listing entry returned by List.
type Summary struct {
	DocID     string
	Title     string
	Version   int
	NodeCount int
}

// Store is the Structured Store contract (spec section 4.B).
type Store interface {
	Save(doc *document.Document) error
	Load(docID string) (*document.Document, error)
	Delete(docID string) error
	List() ([]Summary, error)

	GetNode(docID, nodeID string) (*document.SectionNode, error)
	GetParent(docID, nodeID string) (*document.SectionNode, error)
	GetChildren(docID, nodeID string) ([]*document.SectionNode, error)
	GetSiblings(docID, nodeID string) ([]*document.SectionNode, error)

	Close() error
}

// FileStore persists one JSON file per document under
// <dataDir>/documents/<docId>.json, written via temp-file-then-rename so a
// reader never sees a half-written file (the same pattern as
// config.BackupUserConfig and store.HNSWStore.Save).
type FileStore struct {
	dir string

	mu    sync.RWMutex // guards the in-memory cache and coordinates with on-disk state
	cache map[string]*document.Document

	// writeLocks serializes writers per docId, per spec section 5's
	// "single writer for a given docId" rule.
	writeLocks sync.Map // docId -> *sync.Mutex
}

// NewFileStore opens (creating if necessary) a file-backed structured store
// rooted at dataDir/documents.
func NewFileStore(dataDir string) (*FileStore, error) {
	dir := filepath.Join(dataDir, "documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, amerrors.WrapKind(amerrors.KindStorage, "docstore.NewFileStore", err)
	}
	s := &FileStore{dir: dir, cache: make(map[string]*document.Document)}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) path(docID string) string {
	return filepath.Join(s.dir, docID+".json")
}

func (s *FileStore) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "docstore.loadAll", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var doc document.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		doc.BuildNodeIndex()
		s.cache[doc.DocID] = &doc
	}
	return nil
}

func (s *FileStore) lockFor(docID string) *sync.Mutex {
	v, _ := s.writeLocks.LoadOrStore(docID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Save replaces or inserts doc by DocID, atomically.
func (s *FileStore) Save(doc *document.Document) error {
	if doc == nil || doc.DocID == "" {
		return amerrors.NewKind(amerrors.KindValidation, "docstore.Save", "document must have a non-empty docId")
	}
	lock := s.lockFor(doc.DocID)
	lock.Lock()
	defer lock.Unlock()

	doc.BuildNodeIndex()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "docstore.Save", err)
	}

	final := s.path(doc.DocID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return amerrors.WrapKind(amerrors.KindStorage, "docstore.Save", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return amerrors.WrapKind(amerrors.KindStorage, "docstore.Save", err)
	}

	s.mu.Lock()
	s.cache[doc.DocID] = doc
	s.mu.Unlock()
	return nil
}

// Load returns the document for docID, or a NotFound error.
func (s *FileStore) Load(docID string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.cache[docID]
	if !ok {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "docstore.Load", fmt.Sprintf("document %q not found", docID))
	}
	return doc, nil
}

// Delete removes a document from the store.
func (s *FileStore) Delete(docID string) error {
	lock := s.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.path(docID)); err != nil && !os.IsNotExist(err) {
		return amerrors.WrapKind(amerrors.KindStorage, "docstore.Delete", err)
	}
	s.mu.Lock()
	delete(s.cache, docID)
	s.mu.Unlock()
	return nil
}

// List returns a summary of every document, sorted by DocID for determinism.
func (s *FileStore) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.cache))
	for _, doc := range s.cache {
		out = append(out, Summary{DocID: doc.DocID, Title: doc.Title, Version: doc.Version, NodeCount: len(doc.Nodes)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out, nil
}

func (s *FileStore) findNode(doc *document.Document, nodeID string) *document.SectionNode {
	var found *document.SectionNode
	doc.Walk(func(n *document.SectionNode) {
		if found == nil && n.ID == nodeID {
			found = n
		}
	})
	return found
}

// GetNode returns a section by id by walking the document tree; the Nodes
// index is not consulted.
func (s *FileStore) GetNode(docID, nodeID string) (*document.SectionNode, error) {
	doc, err := s.Load(docID)
	if err != nil {
		return nil, err
	}
	n := s.findNode(doc, nodeID)
	if n == nil {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "docstore.GetNode", fmt.Sprintf("node %q not found in %q", nodeID, docID))
	}
	return n, nil
}

// GetParent returns the parent of nodeID, or NotFound if nodeID is the root
// or does not exist.
func (s *FileStore) GetParent(docID, nodeID string) (*document.SectionNode, error) {
	doc, err := s.Load(docID)
	if err != nil {
		return nil, err
	}
	info, ok := doc.Nodes[nodeID]
	if !ok || info.ParentID == "" {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "docstore.GetParent", fmt.Sprintf("node %q has no parent", nodeID))
	}
	return s.GetNode(docID, info.ParentID)
}

// GetChildren returns the ordered children of nodeID.
func (s *FileStore) GetChildren(docID, nodeID string) ([]*document.SectionNode, error) {
	doc, err := s.Load(docID)
	if err != nil {
		return nil, err
	}
	info, ok := doc.Nodes[nodeID]
	if !ok {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "docstore.GetChildren", fmt.Sprintf("node %q not found", nodeID))
	}
	children := make([]*document.SectionNode, 0, len(info.Children))
	for _, cid := range info.Children {
		c, err := s.GetNode(docID, cid)
		if err != nil {
			continue
		}
		children = append(children, c)
	}
	return children, nil
}

// GetSiblings returns the nodes sharing nodeID's parent, in tree order,
// including nodeID itself.
func (s *FileStore) GetSiblings(docID, nodeID string) ([]*document.SectionNode, error) {
	doc, err := s.Load(docID)
	if err != nil {
		return nil, err
	}
	info, ok := doc.Nodes[nodeID]
	if !ok {
		return nil, amerrors.NewKind(amerrors.KindNotFound, "docstore.GetSiblings", fmt.Sprintf("node %q not found", nodeID))
	}
	if info.ParentID == "" {
		return []*document.SectionNode{doc.Root}, nil
	}
	return s.GetChildren(docID, info.ParentID)
}

// Close is a no-op for FileStore; present for interface symmetry with the
// other stores, which do hold OS resources.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
