// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements the transactional category hierarchy store.
// Single-item writes each run inside one database transaction; bulk
// writes commit independent chunks (see bulk.go). Readers observe only
// committed data but may see a snapshot that is stale relative to a
// concurrent write.
//
// The store trusts that the parent sets it is given are acyclic. Parent
// ids are validated for existence, but cycle-freedom is an input
// invariant, not something the store verifies.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"catalog/internal/cache"
	"catalog/internal/models"
)

// CategoryStore manages the category collection in the database.
type CategoryStore struct {
	db    *sql.DB
	trees *cache.TreeCache
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// UseTreeCache attaches a Valkey-backed forest cache. The store
// invalidates it after every successful write. Optional; without it,
// Tree builds from the database on every call.
func (s *CategoryStore) UseTreeCache(tc *cache.TreeCache) {
	s.trees = tc
}

const categoryColumns = `id, name, slug, description, image, icon, seo,
	parent_ids, parent_slugs, child_ids, paths, min_level, max_level,
	is_leaf, is_active, featured, sort_order,
	product_count, in_stock_count, out_of_stock_count, low_stock_count,
	created_at, updated_at, created_by, updated_by, version`

// querier is satisfied by both *sql.DB and *sql.Tx so lookups can run
// inside or outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanCategory scans a row into a Category, decoding the jsonb lineage
// columns.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	var image, icon, seo []byte
	var parentIDs, parentSlugs, childIDs, paths []byte

	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &image, &icon, &seo,
		&parentIDs, &parentSlugs, &childIDs, &paths, &c.MinLevel, &c.MaxLevel,
		&c.IsLeaf, &c.IsActive, &c.Featured, &c.SortOrder,
		&c.ProductCount, &c.InStockCount, &c.OutOfStockCount, &c.LowStockCount,
		&c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy, &c.Version,
	)
	if err != nil {
		return nil, err
	}

	c.Image = rawCopy(image)
	c.Icon = rawCopy(icon)
	c.SEO = rawCopy(seo)

	if err := decodeList(parentIDs, &c.ParentIDs); err != nil {
		return nil, fmt.Errorf("decode parent_ids: %w", err)
	}
	if err := decodeList(parentSlugs, &c.ParentSlugs); err != nil {
		return nil, fmt.Errorf("decode parent_slugs: %w", err)
	}
	if err := decodeList(childIDs, &c.ChildIDs); err != nil {
		return nil, fmt.Errorf("decode child_ids: %w", err)
	}
	if err := decodeList(paths, &c.Paths); err != nil {
		return nil, fmt.Errorf("decode paths: %w", err)
	}
	return &c, nil
}

// rawCopy detaches a driver-owned byte slice. Nil stays nil.
func rawCopy(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

func decodeList(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// encodeList marshals a slice for a jsonb column, mapping nil to the
// empty array the schema defaults to.
func encodeList(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

// jsonArg prepares an opaque blob column value. Nil maps to SQL NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// findByID retrieves a category through the given querier. Returns nil
// if not found. Transactional callers pass their *sql.Tx so the read is
// isolated with their writes; forUpdate locks the row for the remainder
// of the transaction.
func (s *CategoryStore) findByID(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// lockSlug serializes writers of one slug for the rest of the caller's
// transaction via an advisory lock keyed on the slug text. The slug index
// is not unique, so uniqueness rests on slugTaken running under this
// lock: a second writer blocks here until the first commits, then sees
// the committed row.
func lockSlug(ctx context.Context, q querier, slug string) error {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slug); err != nil {
		return fmt.Errorf("lock slug %q: %w", slug, err)
	}
	return nil
}

// slugTaken reports whether a category other than excludeID already holds
// the slug. Runs on the caller's transaction, under lockSlug, so the
// check and the write that depends on it are atomic.
func (s *CategoryStore) slugTaken(ctx context.Context, q querier, slug string, excludeID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := q.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE slug = $1 AND id <> $2 LIMIT 1`,
		slug, excludeID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return true, nil
}

// invalidateTrees drops cached forest snapshots after a successful write.
func (s *CategoryStore) invalidateTrees(ctx context.Context) {
	if s.trees != nil {
		s.trees.Invalidate(ctx)
	}
}
