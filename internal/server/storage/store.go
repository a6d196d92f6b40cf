package storage

import (
	"sort"
	"sync"

	"assettree/internal/asset"
)

// TreeStore holds one immutable tree snapshot per registered root.
// Snapshots are never modified in place; a reload builds a fresh tree and
// swaps it in, so readers always see a complete tree.
type TreeStore interface {
	Load(name, path string, depth int) *asset.Tree
	Reload(name string) (*asset.Tree, bool)
	Get(name string) (*asset.Tree, bool)
	Delete(name string)
	Names() []string
}

type entry struct {
	path  string
	depth int
	tree  *asset.Tree
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryStore creates an empty snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

// Snapshot constructs the tree for a root. Depth zero keeps a bare root with
// no attached children.
func Snapshot(path string, depth int) *asset.Tree {
	if depth == 0 {
		return asset.NewTree(path)
	}
	return asset.Build(path, depth)
}

// Load builds a snapshot for path and stores it under name, replacing any
// previous snapshot.
func (s *MemoryStore) Load(name, path string, depth int) *asset.Tree {
	tree := Snapshot(path, depth)

	s.mu.Lock()
	s.entries[name] = &entry{path: path, depth: depth, tree: tree}
	s.mu.Unlock()

	return tree
}

// Reload rebuilds the snapshot for name from its stored path and depth.
func (s *MemoryStore) Reload(name string) (*asset.Tree, bool) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	tree := Snapshot(e.path, e.depth)

	s.mu.Lock()
	defer s.mu.Unlock()
	// the root may have been deleted, re-registered or reloaded while building
	cur, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	if cur != e {
		return cur.tree, true
	}
	s.entries[name] = &entry{path: e.path, depth: e.depth, tree: tree}
	return tree, true
}

func (s *MemoryStore) Get(name string) (*asset.Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.tree, true
}

func (s *MemoryStore) Delete(name string) {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
}

// Names returns the stored root names in sorted order.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}
