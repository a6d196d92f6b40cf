package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"assettree/internal/asset"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long a root must be quiet before its snapshot is
// rebuilt after a filesystem event.
const DefaultReloadDelay = 200 * time.Millisecond

// Watcher rebuilds a root's snapshot when a directory inside it gains or loses
// an entry. Every directory node of every snapshot is watched. Bursts of events
// for one root are coalesced into a single rebuild once the root has been
// quiet for ReloadDelay.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   TreeStore

	ReloadDelay time.Duration

	mu      sync.Mutex
	watched map[string]map[string]bool // dir -> root names
	owned   map[string]map[string]bool // root name -> dirs

	pendingMu sync.Mutex
	pending   map[string]*time.Timer // root name -> scheduled rebuild
	stopped   bool

	done chan struct{}
}

// NewWatcher creates a watcher over the snapshots in store.
func NewWatcher(store TreeStore) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: fw,
		store:   store,
		ReloadDelay: DefaultReloadDelay,
		watched:     make(map[string]map[string]bool),
		owned:       make(map[string]map[string]bool),
		pending:     make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}, nil
}

// Sync aligns the watched directories for name with its current snapshot.
// A name without a snapshot has all of its watches released.
func (w *Watcher) Sync(name string) {
	want := make(map[string]bool)
	if tree, ok := w.store.Get(name); ok {
		_ = tree.Walk(func(n *asset.Tree) error {
			if n.Branch().IsDir() {
				want[filepath.Clean(n.Path())] = true
			}
			return nil
		})
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	have := w.owned[name]
	for dir := range have {
		if !want[dir] {
			w.release(name, dir)
		}
	}
	for dir := range want {
		if !have[dir] {
			w.acquire(name, dir)
		}
	}
	if len(want) == 0 {
		delete(w.owned, name)
	}
}

func (w *Watcher) acquire(name, dir string) {
	owners, ok := w.watched[dir]
	if !ok {
		if err := w.watcher.Add(dir); err != nil {
			slog.Debug("failed to watch directory", "root", name, "dir", dir, "error", err)
			return
		}
		owners = make(map[string]bool)
		w.watched[dir] = owners
	}
	owners[name] = true

	if w.owned[name] == nil {
		w.owned[name] = make(map[string]bool)
	}
	w.owned[name][dir] = true
}

func (w *Watcher) release(name, dir string) {
	delete(w.owned[name], dir)

	owners := w.watched[dir]
	delete(owners, name)
	if len(owners) == 0 {
		delete(w.watched, dir)
		// the directory may already be gone, which drops the watch by itself
		w.watcher.Remove(dir)
	}
}

// Start begins processing filesystem events in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	slog.Info("watcher started")

	go func() {
		defer close(w.done)
		defer w.watcher.Close()
		defer w.stopPending()

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				slog.Error("watcher error", "error", err)
			case <-ctx.Done():
				slog.Info("watcher stopping")
				return
			}
		}
	}()
}

// Wait blocks until the watcher has fully stopped.
func (w *Watcher) Wait() {
	<-w.done
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// writes and permission changes do not change what exists
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	for _, name := range w.owners(event.Name) {
		slog.Debug("snapshot rebuild scheduled", "root", name, "event", event.Op.String(), "path", event.Name)
		w.schedule(name)
	}
}

// schedule arranges a rebuild of name, pushing back one that is already
// pending.
func (w *Watcher) schedule(name string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.stopped {
		return
	}
	if timer, ok := w.pending[name]; ok {
		timer.Reset(w.ReloadDelay)
		return
	}
	w.pending[name] = time.AfterFunc(w.ReloadDelay, func() { w.reload(name) })
}

func (w *Watcher) reload(name string) {
	w.pendingMu.Lock()
	delete(w.pending, name)
	stopped := w.stopped
	w.pendingMu.Unlock()

	if stopped {
		return
	}
	if _, ok := w.store.Reload(name); !ok {
		return
	}
	w.Sync(name)
	slog.Debug("snapshot rebuilt", "root", name)
}

func (w *Watcher) stopPending() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.stopped = true
	for name, timer := range w.pending {
		timer.Stop()
		delete(w.pending, name)
	}
}

// owners returns the roots watching the directory that contains path, or path
// itself when a watched directory was removed.
func (w *Watcher) owners(path string) []string {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	for _, dir := range []string{filepath.Dir(path), path} {
		for name := range w.watched[dir] {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
