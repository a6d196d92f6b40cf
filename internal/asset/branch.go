package asset

import (
	"os"
	"path/filepath"
)

// Branch is a single directory node. Its liveness is captured once, at
// construction, while child lookups hit the filesystem on every call.
type Branch struct {
	path  string
	alive bool
	dir   bool
}

// NewBranch checks that path exists and tries to open it as a directory.
// Neither failure is fatal: a missing path yields a dead branch, an
// unopenable one a branch without a listing.
func NewBranch(path string) *Branch {
	b := &Branch{path: path}

	if _, err := os.Stat(path); err == nil {
		b.alive = true
	}

	if f, err := os.Open(path); err == nil {
		if info, err := f.Stat(); err == nil && info.IsDir() {
			b.dir = true
		}
		f.Close()
	}

	return b
}

// Get joins rel onto the branch path and returns it if it exists now.
// An absolute rel replaces the branch path instead of being appended to it.
// A branch that was dead at construction fails with a NotAlive error no
// matter what is on disk today.
//
// Any stat failure counts as NotFound, with the stat error kept as the cause.
func (b *Branch) Get(rel string) (string, error) {
	if !b.alive {
		return "", notAlive(b.path)
	}

	candidate := b.join(rel)
	if _, err := os.Stat(candidate); err != nil {
		return "", notFound(candidate, err)
	}

	return candidate, nil
}

func (b *Branch) join(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(b.path, rel)
}

// Path returns the path the branch was constructed with.
func (b *Branch) Path() string {
	return b.path
}

// IsAlive reports whether the path existed at construction.
func (b *Branch) IsAlive() bool {
	return b.alive
}

// IsDir reports whether the path could be opened as a directory listing at
// construction.
func (b *Branch) IsDir() bool {
	return b.dir
}
