package asset

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	_ Asset = (*Branch)(nil)
	_ Asset = (*Tree)(nil)
)

// Tree is a branch plus the child trees attached beneath it. Each tree owns
// its children exclusively and is never mutated after construction.
type Tree struct {
	root     *Branch
	children []*Tree
}

// NewTree constructs a tree rooted at path with the given children attached.
// Children are conventionally subdirectories of path; this is not checked.
func NewTree(path string, children ...*Tree) *Tree {
	t := &Tree{
		root:     NewBranch(path),
		children: make([]*Tree, 0, len(children)),
	}
	for _, child := range children {
		if child != nil {
			t.children = append(t.children, child)
		}
	}
	return t
}

// Build constructs a tree rooted at path and attaches a child for every real
// subdirectory, descending at most depth levels. A negative depth walks the
// whole subtree. Children are ordered by name. Symlinked directories are not
// descended into, and subdirectories that cannot be listed become leaves.
func Build(path string, depth int) *Tree {
	t := &Tree{
		root:     NewBranch(path),
		children: []*Tree{},
	}
	if depth == 0 || !t.root.IsDir() {
		return t
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return t
	}

	// os.ReadDir returns entries sorted by filename
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t.children = append(t.children, Build(filepath.Join(path, entry.Name()), depth-1))
	}

	return t
}

// GetLocal looks rel up directly under the tree's own directory.
func (t *Tree) GetLocal(rel string) (string, error) {
	return t.root.Get(rel)
}

// GetGlobal looks rel up under every node of the tree, in pre-order, and
// returns each match. A node whose lookup fails with NotFound or NotAlive is
// skipped; any other failure aborts the walk.
func (t *Tree) GetGlobal(rel string) ([]string, error) {
	matches := []string{}
	if err := t.collect(rel, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (t *Tree) collect(rel string, matches *[]string) error {
	found, err := t.root.Get(rel)
	switch {
	case err == nil:
		*matches = append(*matches, found)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotAlive):
		// no match at this node
	default:
		return err
	}

	for _, child := range t.children {
		if err := child.collect(rel, matches); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) Path() string {
	return t.root.Path()
}

func (t *Tree) IsAlive() bool {
	return t.root.IsAlive()
}

// Branch returns the tree's own branch.
func (t *Tree) Branch() *Branch {
	return t.root
}

// Children returns a copy of the attached child trees.
func (t *Tree) Children() []*Tree {
	out := make([]*Tree, len(t.children))
	copy(out, t.children)
	return out
}

// Walk calls fn for every node in pre-order. It stops at the first error.
func (t *Tree) Walk(fn func(*Tree) error) error {
	if err := fn(t); err != nil {
		return err
	}
	for _, child := range t.children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	n := 1
	for _, child := range t.children {
		n += child.Len()
	}
	return n
}
