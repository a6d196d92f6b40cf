package asset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Helpers

func setupNestedTestDir(t *testing.T, structure map[string]interface{}) string {
	t.Helper()
	rootDir := t.TempDir()
	createStructure(t, rootDir, structure)
	return rootDir
}

func createStructure(t *testing.T, basePath string, structure map[string]interface{}) {
	t.Helper()
	for name, content := range structure {
		path := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			// file
			if err := os.WriteFile(path, []byte(v), 0644); err != nil {
				t.Fatalf("failed to create file %s: %v", path, err)
			}

		case map[string]interface{}:
			// dir
			if err := os.Mkdir(path, 0755); err != nil {
				t.Fatalf("failed to create directory %s: %v", path, err)
			}
			createStructure(t, path, v)
		default:
			t.Fatalf("unsupported structure type for %s", name)
		}
	}
}

func assertKind(t *testing.T, err error, expected Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", expected)
	}
	kind, ok := KindOf(err)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if kind != expected {
		t.Errorf("expected kind %s, got %s", expected, kind)
	}
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
}

// Tests

func TestNewBranch(t *testing.T) {
	t.Run("existing directory is alive", func(t *testing.T) {
		dir := t.TempDir()
		b := NewBranch(dir)

		if !b.IsAlive() {
			t.Error("expected branch to be alive")
		}
		if !b.IsDir() {
			t.Error("expected branch to have a directory listing")
		}
	})

	t.Run("missing path is not alive", func(t *testing.T) {
		b := NewBranch(filepath.Join(t.TempDir(), "missing"))

		if b.IsAlive() {
			t.Error("expected branch to be dead")
		}
		if b.IsDir() {
			t.Error("expected no directory listing for missing path")
		}
	})

	t.Run("regular file is alive without listing", func(t *testing.T) {
		root := setupNestedTestDir(t, map[string]interface{}{
			"notes.txt": "hello",
		})
		b := NewBranch(filepath.Join(root, "notes.txt"))

		if !b.IsAlive() {
			t.Error("expected file branch to be alive")
		}
		if b.IsDir() {
			t.Error("expected file branch to have no directory listing")
		}
	})

	t.Run("path round-trips", func(t *testing.T) {
		dir := t.TempDir()
		b := NewBranch(dir)

		if b.Path() != dir {
			t.Errorf("expected path %s, got %s", dir, b.Path())
		}
	})

	t.Run("relative path is kept verbatim", func(t *testing.T) {
		b := NewBranch("./does/not/exist/..")

		if b.Path() != "./does/not/exist/.." {
			t.Errorf("expected verbatim path, got %s", b.Path())
		}
	})
}

func TestBranch_Get(t *testing.T) {
	t.Run("returns joined path for existing child", func(t *testing.T) {
		root := setupNestedTestDir(t, map[string]interface{}{
			"child": map[string]interface{}{},
		})
		b := NewBranch(root)

		got, err := b.Get("child")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != filepath.Join(root, "child") {
			t.Errorf("expected %s, got %s", filepath.Join(root, "child"), got)
		}
	})

	t.Run("resolves nested relative paths", func(t *testing.T) {
		root := setupNestedTestDir(t, map[string]interface{}{
			"a": map[string]interface{}{
				"b.txt": "content",
			},
		})
		b := NewBranch(root)

		got, err := b.Get("a/b.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != filepath.Join(root, "a", "b.txt") {
			t.Errorf("unexpected path %s", got)
		}
	})

	t.Run("missing child is not found", func(t *testing.T) {
		root := t.TempDir()
		b := NewBranch(root)

		_, err := b.Get("ghost")
		assertKind(t, err, KindNotFound)
		if !errors.Is(err, ErrNotFound) {
			t.Error("expected errors.Is to match ErrNotFound")
		}
	})

	t.Run("dead branch is not alive even after creation", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "late")
		b := NewBranch(root)

		if err := os.MkdirAll(filepath.Join(root, "child"), 0755); err != nil {
			t.Fatal(err)
		}

		_, err := b.Get("child")
		assertKind(t, err, KindNotAlive)
		if b.IsAlive() {
			t.Error("expected liveness to stay frozen")
		}
	})

	t.Run("child created after construction is found", func(t *testing.T) {
		root := t.TempDir()
		b := NewBranch(root)

		if err := os.Mkdir(filepath.Join(root, "fresh"), 0755); err != nil {
			t.Fatal(err)
		}

		if _, err := b.Get("fresh"); err != nil {
			t.Errorf("expected fresh child to be found, got %v", err)
		}
	})

	t.Run("root removed after construction stays alive", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "gone")
		if err := os.Mkdir(root, 0755); err != nil {
			t.Fatal(err)
		}
		b := NewBranch(root)
		if err := os.RemoveAll(root); err != nil {
			t.Fatal(err)
		}

		if !b.IsAlive() {
			t.Error("expected liveness to stay frozen")
		}
		_, err := b.Get("anything")
		assertKind(t, err, KindNotFound)
	})

	t.Run("path through a regular file is not found", func(t *testing.T) {
		root := setupNestedTestDir(t, map[string]interface{}{
			"notes.txt": "hello",
		})
		b := NewBranch(root)

		_, err := b.Get("notes.txt/inner")
		assertKind(t, err, KindNotFound)
	})

	t.Run("permission failure is not found", func(t *testing.T) {
		skipIfRoot(t)
		root := setupNestedTestDir(t, map[string]interface{}{
			"locked": map[string]interface{}{
				"secret": "x",
			},
		})
		locked := filepath.Join(root, "locked")
		if err := os.Chmod(locked, 0); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Chmod(locked, 0755) })

		b := NewBranch(root)
		_, err := b.Get("locked/secret")
		assertKind(t, err, KindNotFound)
		if !errors.Is(err, fs.ErrPermission) {
			t.Errorf("expected the stat cause to be kept, got %v", err)
		}
	})

	t.Run("unusable names are not found", func(t *testing.T) {
		root := t.TempDir()
		b := NewBranch(root)

		tests := []struct {
			name string
			rel  string
		}{
			{"name too long", strings.Repeat("a", 300)},
			{"nul byte", "bad\x00name"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := b.Get(tt.rel)
				assertKind(t, err, KindNotFound)
			})
		}
	})

	t.Run("absolute rel replaces the branch path", func(t *testing.T) {
		root := t.TempDir()
		other := setupNestedTestDir(t, map[string]interface{}{
			"target": "x",
		})
		b := NewBranch(root)

		target := filepath.Join(other, "target")
		got, err := b.Get(target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != target {
			t.Errorf("expected %s, got %s", target, got)
		}

		_, err = b.Get(filepath.Join(other, "ghost"))
		assertKind(t, err, KindNotFound)
	})
}

func TestError(t *testing.T) {
	t.Run("message embeds path", func(t *testing.T) {
		err := notFound("/srv/assets/logo.png", nil)

		expected := "branch was not found: /srv/assets/logo.png"
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("kinds do not cross-match", func(t *testing.T) {
		err := notAlive("/srv/assets")

		if errors.Is(err, ErrNotFound) {
			t.Error("NotAlive should not match ErrNotFound")
		}
		if !errors.Is(err, ErrNotAlive) {
			t.Error("NotAlive should match ErrNotAlive")
		}
	})

	t.Run("kind survives wrapping", func(t *testing.T) {
		err := errors.Join(errors.New("context"), notAlive("/srv"))

		kind, ok := KindOf(err)
		if !ok || kind != KindNotAlive {
			t.Errorf("expected NotAlive, got %v (ok=%v)", kind, ok)
		}
	})

	t.Run("kind strings", func(t *testing.T) {
		if KindNotFound.String() != "not_found" {
			t.Errorf("unexpected %q", KindNotFound.String())
		}
		if KindNotAlive.String() != "not_alive" {
			t.Errorf("unexpected %q", KindNotAlive.String())
		}
	})
}
