package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"assettree/internal/asset"
	"assettree/internal/core"
	"assettree/internal/server/config"
	"assettree/internal/server/database"
	"assettree/internal/server/storage"

	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound       = errors.New("root not found")
	ErrRootExists     = errors.New("root already exists")
	ErrRootNotAlive   = errors.New("root directory does not exist")
	ErrNotDirectory   = errors.New("root is not a directory")
	ErrKeyRequired    = errors.New("key required")
	ErrInvalidKey     = errors.New("invalid key")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidDepth   = errors.New("depth must be -1 or greater")
	ErrPathNotFound   = errors.New("path not found")
	ErrBranchNotAlive = errors.New("branch is not alive")
)

const (
	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

var rootNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// Repository is the persistence the lookup service needs.
type Repository interface {
	CreateRoot(ctx context.Context, root *database.Root) error
	GetRoot(ctx context.Context, name string) (*database.Root, error)
	ListRoots(ctx context.Context) ([]*database.Root, error)
	DeleteRoot(ctx context.Context, name string) error
	RecordLookup(ctx context.Context, lookup *database.Lookup) error
	GetStats(ctx context.Context) (*database.Stats, error)
}

// Syncer is notified whenever a root's snapshot changes or goes away.
type Syncer interface {
	Sync(name string)
}

// RootInfo describes a registered root and its current snapshot.
type RootInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Depth     int       `json:"depth"`
	Alive     bool      `json:"alive"`
	Nodes     int       `json:"nodes"`
	HasKey    bool      `json:"has_key"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the input for RegisterRoot. A nil Depth uses the
// configured default.
type RegisterRequest struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Depth *int   `json:"depth,omitempty"`
	Key   string `json:"key,omitempty"`
}

// LookupService resolves names against registered roots.
type LookupService struct {
	repo   Repository
	store  storage.TreeStore
	syncer Syncer
	cfg    *config.Config
}

// NewLookupService creates a new lookup service. syncer may be nil.
func NewLookupService(repo Repository, store storage.TreeStore, syncer Syncer, cfg *config.Config) *LookupService {
	return &LookupService{
		repo:   repo,
		store:  store,
		syncer: syncer,
		cfg:    cfg,
	}
}

// RegisterRoot validates and persists a new root and loads its snapshot.
func (s *LookupService) RegisterRoot(ctx context.Context, req RegisterRequest) (*RootInfo, error) {
	if !rootNamePattern.MatchString(req.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, req.Name)
	}
	if req.Path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrRootNotAlive)
	}

	depth := s.cfg.DefaultDepth
	if req.Depth != nil {
		depth = *req.Depth
	}
	if depth < -1 {
		return nil, ErrInvalidDepth
	}

	path := filepath.Clean(req.Path)
	tree := storage.Snapshot(path, 0)
	if !tree.IsAlive() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotAlive, path)
	}
	if !tree.Branch().IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	var keyHash *string
	if req.Key != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Key), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash key: %w", err)
		}
		h := string(hash)
		keyHash = &h
	}

	root := &database.Root{
		Name:      req.Name,
		Path:      path,
		Depth:     depth,
		KeyHash:   keyHash,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateRoot(ctx, root); err != nil {
		if errors.Is(err, database.ErrRootExists) {
			return nil, ErrRootExists
		}
		return nil, fmt.Errorf("failed to create root record: %w", err)
	}

	info := s.load(root)

	slog.Info("root registered",
		"root", root.Name,
		"path", root.Path,
		"depth", root.Depth,
		"nodes", info.Nodes,
		"has_key", info.HasKey,
	)

	return info, nil
}

// LoadAll builds snapshots for every persisted root. Used on startup.
func (s *LookupService) LoadAll(ctx context.Context) error {
	roots, err := s.repo.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list roots: %w", err)
	}

	for _, root := range roots {
		info := s.load(root)
		if !info.Alive {
			slog.Warn("root is not alive", "root", root.Name, "path", root.Path)
		}
	}

	slog.Info("roots loaded", "count", len(roots))
	return nil
}

// ListRoots returns every registered root with its snapshot state.
func (s *LookupService) ListRoots(ctx context.Context) ([]*RootInfo, error) {
	roots, err := s.repo.ListRoots(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*RootInfo, 0, len(roots))
	for _, root := range roots {
		tree, ok := s.store.Get(root.Name)
		if !ok {
			infos = append(infos, s.load(root))
			continue
		}
		infos = append(infos, newRootInfo(root, tree))
	}
	return infos, nil
}

// Local resolves rel directly under the root's own directory.
func (s *LookupService) Local(ctx context.Context, name, rel, key string) (string, error) {
	tree, err := s.authorize(ctx, name, key, rel)
	if err != nil {
		return "", err
	}

	path, err := tree.GetLocal(rel)
	matches := 0
	if err == nil {
		matches = 1
	}
	s.record(ctx, name, rel, ScopeLocal, matches, err)

	if err != nil {
		return "", mapLookupError(err)
	}
	return path, nil
}

// Global resolves rel under every node of the root's snapshot, in pre-order.
func (s *LookupService) Global(ctx context.Context, name, rel, key string) ([]string, error) {
	tree, err := s.authorize(ctx, name, key, rel)
	if err != nil {
		return nil, err
	}

	matches, err := tree.GetGlobal(rel)
	s.record(ctx, name, rel, ScopeGlobal, len(matches), err)

	if err != nil {
		return nil, mapLookupError(err)
	}
	return matches, nil
}

// Refresh rebuilds the snapshot for a root from disk.
func (s *LookupService) Refresh(ctx context.Context, name, key string) (*RootInfo, error) {
	root, err := s.getRoot(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := checkKey(root, key); err != nil {
		return nil, err
	}

	info := s.load(root)
	slog.Info("root refreshed", "root", name, "alive", info.Alive, "nodes", info.Nodes)
	return info, nil
}

// DeleteRoot removes a root and its snapshot.
func (s *LookupService) DeleteRoot(ctx context.Context, name, key string) error {
	root, err := s.getRoot(ctx, name)
	if err != nil {
		return err
	}
	if err := checkKey(root, key); err != nil {
		return err
	}

	if err := s.repo.DeleteRoot(ctx, name); err != nil {
		if errors.Is(err, database.ErrRootNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete root record: %w", err)
	}

	s.store.Delete(name)
	if s.syncer != nil {
		s.syncer.Sync(name)
	}

	slog.Info("root deleted", "root", name)
	return nil
}

// GetStats returns aggregate server statistics.
func (s *LookupService) GetStats(ctx context.Context) (*database.Stats, error) {
	return s.repo.GetStats(ctx)
}

// --- Helpers ---

func (s *LookupService) getRoot(ctx context.Context, name string) (*database.Root, error) {
	root, err := s.repo.GetRoot(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrRootNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return root, nil
}

// authorize validates the name, checks the key and returns the snapshot to
// query, loading it if this instance has not seen the root yet.
func (s *LookupService) authorize(ctx context.Context, name, key, rel string) (*asset.Tree, error) {
	if err := core.ValidateName(rel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	root, err := s.getRoot(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := checkKey(root, key); err != nil {
		return nil, err
	}

	if tree, ok := s.store.Get(name); ok {
		return tree, nil
	}
	return s.loadTree(root), nil
}

func (s *LookupService) load(root *database.Root) *RootInfo {
	return newRootInfo(root, s.loadTree(root))
}

func (s *LookupService) loadTree(root *database.Root) *asset.Tree {
	tree := s.store.Load(root.Name, root.Path, root.Depth)
	if s.syncer != nil {
		s.syncer.Sync(root.Name)
	}
	return tree
}

// record stores the lookup outcome. Failures are logged, not returned.
func (s *LookupService) record(ctx context.Context, name, rel, scope string, matches int, lookupErr error) {
	lookup := &database.Lookup{
		RootName:  name,
		Query:     rel,
		Scope:     scope,
		Matches:   matches,
		CreatedAt: time.Now().UTC(),
	}
	if lookupErr != nil {
		kind := "error"
		if k, ok := asset.KindOf(lookupErr); ok {
			kind = k.String()
		}
		lookup.ErrorKind = &kind
	}

	if err := s.repo.RecordLookup(ctx, lookup); err != nil {
		slog.Error("failed to record lookup", "root", name, "query", rel, "error", err)
	}
}

func checkKey(root *database.Root, key string) error {
	if root.KeyHash == nil {
		return nil
	}
	if key == "" {
		return ErrKeyRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*root.KeyHash), []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}

// mapLookupError translates asset errors into service errors, keeping the
// asset error's message.
func mapLookupError(err error) error {
	switch {
	case errors.Is(err, asset.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrPathNotFound, err)
	case errors.Is(err, asset.ErrNotAlive):
		return fmt.Errorf("%w: %v", ErrBranchNotAlive, err)
	default:
		return fmt.Errorf("lookup failed: %w", err)
	}
}

func newRootInfo(root *database.Root, tree *asset.Tree) *RootInfo {
	return &RootInfo{
		Name:      root.Name,
		Path:      root.Path,
		Depth:     root.Depth,
		Alive:     tree.IsAlive(),
		Nodes:     tree.Len(),
		HasKey:    root.KeyHash != nil,
		CreatedAt: root.CreatedAt,
	}
}
