package core

import (
	"fmt"
	"os"
	"path/filepath"

	"assettree/internal/asset"
)

// Check is one assertion of the bundled example.
type Check struct {
	Description string
	Expected    bool
	Got         bool
}

func (c Check) Passed() bool {
	return c.Expected == c.Got
}

// RunExample lays out parent/child/childchild in a fresh temporary directory
// under dir (the system temp dir when dir is empty), runs the example lookups
// against it and removes that directory again. Nothing already in dir is
// touched.
//
// The grandchild is only reachable globally when child nodes are attached, so
// the built tree finds it while the bare root does not.
func RunExample(dir string) ([]Check, error) {
	work, err := os.MkdirTemp(dir, "assettree-example-")
	if err != nil {
		return nil, fmt.Errorf("failed to create example directory: %w", err)
	}
	defer os.RemoveAll(work)

	parent := filepath.Join(work, "parent")
	if err := os.MkdirAll(filepath.Join(parent, "child", "childchild"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create example layout: %w", err)
	}

	bare := asset.NewTree(parent)
	built := asset.Build(parent, -1)

	resolves := func(t *asset.Tree, name string, global bool) bool {
		if !global {
			_, err := t.GetLocal(name)
			return err == nil
		}
		matches, err := t.GetGlobal(name)
		return err == nil && len(matches) > 0
	}

	return []Check{
		{"local child", true, resolves(built, "child", false)},
		{"global child", true, resolves(built, "child", true)},
		{"local childchild", false, resolves(built, "childchild", false)},
		{"global childchild (built tree)", true, resolves(built, "childchild", true)},
		{"global childchild (bare root)", false, resolves(bare, "childchild", true)},
	}, nil
}
