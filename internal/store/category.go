// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalog/internal/models"
	"catalog/internal/slug"
)

// Create inserts a new category inside one transaction: the slug is
// derived from the name when absent, checked for uniqueness against the
// whole collection, lineage is resolved from the supplied parents, and
// each parent's child links are repaired. New categories start active,
// as leaves, with zeroed counters and version 1.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category, actor string) (*models.Category, error) {
	name := strings.TrimSpace(c.Name)
	sl := strings.TrimSpace(c.Slug)
	if sl == "" {
		sl = slug.Generate(name)
	}
	if sl == "" {
		return nil, &ValidationError{Reason: "category name or slug is required"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	if err := lockSlug(ctx, tx, sl); err != nil {
		return nil, err
	}
	taken, err := s.slugTaken(ctx, tx, sl, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ConflictError{Reason: fmt.Sprintf("slug %q already exists", sl)}
	}

	id := uuid.New()
	lin, err := s.resolveLineage(ctx, tx, c.ParentIDs, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := *c
	out.ID = id
	out.Name = name
	out.Slug = sl
	out.ParentIDs = lin.parentIDs
	out.ParentSlugs = lin.parentSlugs
	out.Paths = lin.paths
	out.MinLevel = lin.minLevel
	out.MaxLevel = lin.maxLevel
	out.ChildIDs = []uuid.UUID{}
	out.IsLeaf = true
	out.IsActive = true
	out.ProductCount = 0
	out.InStockCount = 0
	out.OutOfStockCount = 0
	out.LowStockCount = 0
	out.CreatedAt = now
	out.UpdatedAt = now
	out.CreatedBy = actor
	out.UpdatedBy = actor
	out.Version = 1

	if err := insertCategory(ctx, tx, &out); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	for _, pid := range out.ParentIDs {
		if err := linkChild(ctx, tx, pid, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	s.invalidateTrees(ctx)
	return &out, nil
}

// insertCategory writes a fully populated category row.
func insertCategory(ctx context.Context, q querier, c *models.Category) error {
	parentIDs, err := encodeList(c.ParentIDs)
	if err != nil {
		return err
	}
	parentSlugs, err := encodeList(c.ParentSlugs)
	if err != nil {
		return err
	}
	childIDs, err := encodeList(c.ChildIDs)
	if err != nil {
		return err
	}
	paths, err := encodeList(c.Paths)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`,
		c.ID, c.Name, c.Slug, c.Description,
		jsonArg(c.Image), jsonArg(c.Icon), jsonArg(c.SEO),
		parentIDs, parentSlugs, childIDs, paths, c.MinLevel, c.MaxLevel,
		c.IsLeaf, c.IsActive, c.Featured, c.SortOrder,
		c.ProductCount, c.InStockCount, c.OutOfStockCount, c.LowStockCount,
		c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy, c.Version,
	)
	return err
}

// FindByID retrieves a category by id. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.findByID(ctx, s.db, id, false)
}

// FindBySlug retrieves a category by slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, sl string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, sl))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// sortColumns whitelists the ORDER BY targets for List.
var sortColumns = map[models.SortField]string{
	models.SortByName:         "name",
	models.SortBySortOrder:    "sort_order",
	models.SortByCreatedAt:    "created_at",
	models.SortByProductCount: "product_count",
}

// List returns categories matching the filter. Equality filters, sort,
// and pagination run in SQL; parent membership and free-text search are
// applied afterwards in memory because the row layout cannot express
// them (parents live inside a jsonb column).
func (s *CategoryStore) List(ctx context.Context, f models.Filter) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var where []string
	var args []any

	addBool := func(col string, v *bool) {
		if v != nil {
			args = append(args, *v)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	addBool("is_active", f.IsActive)
	addBool("featured", f.Featured)
	addBool("is_leaf", f.IsLeaf)

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "sort_order"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return filterInMemory(items, f), nil
}

// filterInMemory applies the parent-membership and search filters the
// SQL query cannot express.
func filterInMemory(items []models.Category, f models.Filter) []models.Category {
	if f.ParentID == nil && f.Search == "" {
		return items
	}
	needle := strings.ToLower(f.Search)
	out := items[:0]
	for _, c := range items {
		if f.ParentID != nil {
			if *f.ParentID == uuid.Nil {
				if len(c.ParentIDs) > 0 {
					continue
				}
			} else if !containsID(c.ParentIDs, *f.ParentID) {
				continue
			}
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Slug), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Count returns the number of categories matching the filter.
func (s *CategoryStore) Count(ctx context.Context, f models.Filter) (int, error) {
	items, err := s.List(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Leaves returns all leaf categories, optionally restricted to active ones.
func (s *CategoryStore) Leaves(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	leaf := true
	f := models.Filter{IsLeaf: &leaf}
	if activeOnly {
		active := true
		f.IsActive = &active
	}
	return s.List(ctx, f)
}

// Update merges the supplied fields over the stored category inside one
// transaction. When the caller supplies an expected version it must match
// the stored one; a slug change is checked for uniqueness and propagated
// to the children's parent slugs; a parent set change re-resolves lineage
// and repairs child links on both sides. The stored version is bumped by
// exactly one.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, upd models.Update, actor string) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	cur, err := s.findByID(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, &NotFoundError{ID: id.String()}
	}

	if upd.Version != nil {
		if err := CheckVersion(*upd.Version, cur.Version); err != nil {
			return nil, err
		}
	}

	if upd.Slug != nil && *upd.Slug != cur.Slug {
		if err := lockSlug(ctx, tx, *upd.Slug); err != nil {
			return nil, err
		}
		taken, err := s.slugTaken(ctx, tx, *upd.Slug, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &ConflictError{Reason: fmt.Sprintf("slug %q already exists", *upd.Slug)}
		}
		if err := refreshParentSlugs(ctx, tx, id, *upd.Slug, cur.ChildIDs); err != nil {
			return nil, err
		}
	}

	merged := applyUpdate(cur, upd)

	if upd.ParentIDs != nil {
		lin, err := s.resolveLineage(ctx, tx, *upd.ParentIDs, id)
		if err != nil {
			return nil, err
		}
		if err := s.repairEdges(ctx, tx, id, cur.ParentIDs, lin.parentIDs); err != nil {
			return nil, err
		}
		merged.ParentIDs = lin.parentIDs
		merged.ParentSlugs = lin.parentSlugs
		merged.Paths = lin.paths
		merged.MinLevel = lin.minLevel
		merged.MaxLevel = lin.maxLevel
	}

	merged.UpdatedAt = time.Now()
	merged.UpdatedBy = actor
	merged.Version = cur.Version + 1

	if err := writeCategory(ctx, tx, merged); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}

	s.invalidateTrees(ctx)
	return merged, nil
}

// applyUpdate merges the supplied fields over a copy of the stored
// category. Lineage, stamps, and version are handled by the caller.
func applyUpdate(cur *models.Category, upd models.Update) *models.Category {
	merged := *cur
	if upd.Name != nil {
		merged.Name = *upd.Name
	}
	if upd.Slug != nil {
		merged.Slug = *upd.Slug
	}
	if upd.Description != nil {
		merged.Description = *upd.Description
	}
	if upd.Image != nil {
		merged.Image = upd.Image
	}
	if upd.Icon != nil {
		merged.Icon = upd.Icon
	}
	if upd.SEO != nil {
		merged.SEO = upd.SEO
	}
	if upd.Featured != nil {
		merged.Featured = *upd.Featured
	}
	if upd.SortOrder != nil {
		merged.SortOrder = *upd.SortOrder
	}
	if upd.IsActive != nil {
		merged.IsActive = *upd.IsActive
	}
	return &merged
}

// writeCategory persists every mutable column of an existing row.
func writeCategory(ctx context.Context, q querier, c *models.Category) error {
	parentIDs, err := encodeList(c.ParentIDs)
	if err != nil {
		return err
	}
	parentSlugs, err := encodeList(c.ParentSlugs)
	if err != nil {
		return err
	}
	childIDs, err := encodeList(c.ChildIDs)
	if err != nil {
		return err
	}
	paths, err := encodeList(c.Paths)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, description = $3,
			image = $4, icon = $5, seo = $6,
			parent_ids = $7, parent_slugs = $8, child_ids = $9, paths = $10,
			min_level = $11, max_level = $12,
			is_leaf = $13, is_active = $14, featured = $15, sort_order = $16,
			updated_at = $17, updated_by = $18, version = $19
		WHERE id = $20
	`,
		c.Name, c.Slug, c.Description,
		jsonArg(c.Image), jsonArg(c.Icon), jsonArg(c.SEO),
		parentIDs, parentSlugs, childIDs, paths,
		c.MinLevel, c.MaxLevel,
		c.IsLeaf, c.IsActive, c.Featured, c.SortOrder,
		c.UpdatedAt, c.UpdatedBy, c.Version,
		c.ID,
	)
	return err
}

// Delete soft-deletes a category inside one transaction. A category that
// still has children or products cannot be deleted; the row is never
// removed, only marked inactive, and the version is bumped like any
// other mutating write.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	cur, err := s.findByID(ctx, tx, id, true)
	if err != nil {
		return err
	}
	if cur == nil {
		return &NotFoundError{ID: id.String()}
	}
	if err := deleteGuard(cur); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE categories SET
			is_active = FALSE, version = version + 1,
			updated_at = $1, updated_by = $2
		WHERE id = $3
	`, time.Now(), actor, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	s.invalidateTrees(ctx)
	return nil
}

// deleteGuard rejects deletion of categories that still have children or
// products.
func deleteGuard(c *models.Category) error {
	if len(c.ChildIDs) > 0 {
		return &ValidationError{Reason: "cannot delete a category that has child categories"}
	}
	if c.ProductCount > 0 {
		return &ValidationError{Reason: "cannot delete a category that has products"}
	}
	return nil
}

// UpdateProductCounts writes the four inventory counters in a single
// narrow UPDATE. This is the fast path for the inventory sync job: no
// transaction and no version bump, so it never conflicts with optimistic
// updates of the descriptive fields.
func (s *CategoryStore) UpdateProductCounts(ctx context.Context, id uuid.UUID, counts models.Counts) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			product_count = $1, in_stock_count = $2,
			out_of_stock_count = $3, low_stock_count = $4,
			updated_at = $5
		WHERE id = $6
	`, counts.Products, counts.InStock, counts.OutOfStock, counts.LowStock, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update product counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product counts: %w", err)
	}
	if n == 0 {
		return &NotFoundError{ID: id.String()}
	}

	s.invalidateTrees(ctx)
	return nil
}

// sortIDs returns a sorted copy, used to make returned id sets stable
// for callers and tests.
func sortIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
