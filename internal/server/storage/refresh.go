package storage

import (
	"context"
	"log/slog"
	"time"

	"assettree/internal/server/database"
)

// RootSource is the persistence the refresh loop needs.
type RootSource interface {
	ListRoots(ctx context.Context) ([]*database.Root, error)
	PruneLookups(ctx context.Context, before time.Time) (int64, error)
}

// RefreshService periodically rebuilds every root's snapshot from disk and
// prunes old lookup records.
type RefreshService struct {
	repo      RootSource
	store     TreeStore
	interval  time.Duration
	retention time.Duration

	// OnChange, if set, is called after a root's snapshot was rebuilt or
	// dropped.
	OnChange func(name string)
	done     chan struct{}
}

// NewRefreshService creates a new refresh service.
func NewRefreshService(repo RootSource, store TreeStore, interval, retention time.Duration) *RefreshService {
	return &RefreshService{
		repo:      repo,
		store:     store,
		interval:  interval,
		retention: retention,
		done:      make(chan struct{}),
	}
}

// Start begins the refresh loop in a background goroutine.
func (rs *RefreshService) Start(ctx context.Context) {
	slog.Info("refresh service started", "interval", rs.interval, "retention", rs.retention)

	go func() {
		ticker := time.NewTicker(rs.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rs.RunOnce(ctx)
			case <-ctx.Done():
				slog.Info("refresh service stopping")
				close(rs.done)
				return
			}
		}
	}()
}

// Wait blocks until the refresh service has fully stopped.
func (rs *RefreshService) Wait() {
	<-rs.done
}

// RunOnce performs a single refresh cycle.
func (rs *RefreshService) RunOnce(ctx context.Context) {
	roots, err := rs.repo.ListRoots(ctx)
	if err != nil {
		slog.Error("failed to list roots", "error", err)
		return
	}

	known := make(map[string]bool, len(roots))
	var dead int
	for _, root := range roots {
		known[root.Name] = true

		tree := rs.store.Load(root.Name, root.Path, root.Depth)
		if !tree.IsAlive() {
			dead++
			slog.Warn("root is not alive", "root", root.Name, "path", root.Path)
		}
		if rs.OnChange != nil {
			rs.OnChange(root.Name)
		}
	}

	// drop snapshots for roots deleted by another instance
	var dropped int
	for _, name := range rs.store.Names() {
		if !known[name] {
			rs.store.Delete(name)
			dropped++
			if rs.OnChange != nil {
				rs.OnChange(name)
			}
		}
	}

	var pruned int64
	if rs.retention > 0 {
		pruned, err = rs.repo.PruneLookups(ctx, time.Now().Add(-rs.retention))
		if err != nil {
			slog.Error("failed to prune lookups", "error", err)
		}
	}

	slog.Info("refresh cycle complete",
		"roots", len(roots),
		"dead", dead,
		"dropped", dropped,
		"pruned_lookups", pruned,
	)
}
