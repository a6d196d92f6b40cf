package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrRootNotFound = errors.New("root not found")
	ErrRootExists   = errors.New("root already exists")
)

const uniqueViolation = "23505"

// Repository provides persistence for roots and lookup records.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateRoot inserts a new root record.
func (r *Repository) CreateRoot(ctx context.Context, root *Root) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO roots (name, path, depth, key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		root.Name,
		root.Path,
		root.Depth,
		root.KeyHash,
		root.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrRootExists
		}
		return fmt.Errorf("failed to create root: %w", err)
	}
	return nil
}

// GetRoot retrieves a root by name.
func (r *Repository) GetRoot(ctx context.Context, name string) (*Root, error) {
	root := &Root{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT name, path, depth, key_hash, created_at
		FROM roots WHERE name = $1
	`, name).Scan(
		&root.Name,
		&root.Path,
		&root.Depth,
		&root.KeyHash,
		&root.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRootNotFound
		}
		return nil, fmt.Errorf("failed to get root: %w", err)
	}
	return root, nil
}

// ListRoots returns every registered root ordered by name.
func (r *Repository) ListRoots(ctx context.Context) ([]*Root, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT name, path, depth, key_hash, created_at
		FROM roots ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roots: %w", err)
	}
	defer rows.Close()

	var roots []*Root
	for rows.Next() {
		root := &Root{}
		if err := rows.Scan(
			&root.Name,
			&root.Path,
			&root.Depth,
			&root.KeyHash,
			&root.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// DeleteRoot removes a root and, by cascade, its lookup records.
func (r *Repository) DeleteRoot(ctx context.Context, name string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM roots WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete root: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRootNotFound
	}
	return nil
}

// RecordLookup stores the outcome of a lookup.
func (r *Repository) RecordLookup(ctx context.Context, lookup *Lookup) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO lookups (root_name, query, scope, matches, error_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		lookup.RootName,
		lookup.Query,
		lookup.Scope,
		lookup.Matches,
		lookup.ErrorKind,
		lookup.CreatedAt,
	).Scan(&lookup.ID)
	if err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// PruneLookups deletes lookup records created before the cutoff and returns
// how many were removed.
func (r *Repository) PruneLookups(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM lookups WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune lookups: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetStats returns aggregate server statistics.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM roots),
			COUNT(*),
			COUNT(*) FILTER (WHERE error_kind IS NOT NULL),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '1 day')
		FROM lookups
	`).Scan(
		&stats.TotalRoots,
		&stats.TotalLookups,
		&stats.FailedLookups,
		&stats.LookupsToday,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
