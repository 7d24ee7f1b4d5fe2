// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// bulk.go implements bulk mutation in chunks. Each chunk commits as one
// transaction of at most BulkChunkLimit operations; items that fail
// their pre-commit checks are reported individually without being
// staged, and a chunk whose commit fails turns all of its staged items
// into failures. Committed chunks are never rolled back, so a bulk call
// can partially succeed at both granularities.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalog/internal/models"
	"catalog/internal/slug"
)

// BulkChunkLimit is the most operations committed in a single
// transaction, the backing database's hard atomic-batch ceiling.
const BulkChunkLimit = 500

// stageItem runs one item's write under a savepoint so a database error
// fails only that item instead of aborting the rest of the chunk's
// transaction.
func stageItem(ctx context.Context, tx *sql.Tx, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT bulk_item"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT bulk_item"); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT bulk_item"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// chunkBounds splits total items into [start, end) ranges of at most
// BulkChunkLimit.
func chunkBounds(total int) [][2]int {
	var bounds [][2]int
	for start := 0; start < total; start += BulkChunkLimit {
		end := start + BulkChunkLimit
		if end > total {
			end = total
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}

// BulkUpdate merges fields into many categories. Per-item version checks
// apply when supplied; re-parenting is not supported here and must go
// through Update, which repairs edges. The call returns a result rather
// than an error for item and chunk failures; only malformed input raises.
func (s *CategoryStore) BulkUpdate(ctx context.Context, items []models.BulkUpdateItem, actor string) (*models.BulkResult, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Reason: "no updates supplied"}
	}
	for _, it := range items {
		if it.ID == uuid.Nil {
			return nil, &ValidationError{Reason: "bulk update item missing id"}
		}
	}

	res := &models.BulkResult{}
	for _, b := range chunkBounds(len(items)) {
		s.bulkUpdateChunk(ctx, items[b[0]:b[1]], actor, res)
	}

	s.invalidateTrees(ctx)
	return res, nil
}

func (s *CategoryStore) bulkUpdateChunk(ctx context.Context, chunk []models.BulkUpdateItem, actor string, res *models.BulkResult) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		res.Failed += len(chunk)
		res.BatchFailed(0, fmt.Sprintf("begin batch: %v", err))
		return
	}
	defer tx.Rollback()

	staged := 0
	now := time.Now()
	for _, it := range chunk {
		cur, err := s.findByID(ctx, tx, it.ID, false)
		if err != nil {
			res.Fail(it.ID.String(), err.Error())
			continue
		}
		if cur == nil {
			res.Fail(it.ID.String(), "not found")
			continue
		}
		if it.Data.ParentIDs != nil {
			res.Fail(it.ID.String(), "re-parenting is not supported in bulk updates")
			continue
		}
		if it.Data.Version != nil {
			if err := CheckVersion(*it.Data.Version, cur.Version); err != nil {
				res.Fail(it.ID.String(), err.Error())
				continue
			}
		}

		merged := applyUpdate(cur, it.Data)
		merged.UpdatedAt = now
		merged.UpdatedBy = actor
		merged.Version = cur.Version + 1

		err = stageItem(ctx, tx, func() error { return writeCategory(ctx, tx, merged) })
		if err != nil {
			res.Fail(it.ID.String(), err.Error())
			continue
		}
		staged++
		res.Success++
	}

	if err := tx.Commit(); err != nil {
		res.BatchFailed(staged, fmt.Sprintf("batch commit: %v", err))
	}
}

// BulkDelete soft-deletes many categories. The same guard as Delete
// applies per item: a category with children or products is reported as
// failed and left untouched.
func (s *CategoryStore) BulkDelete(ctx context.Context, ids []uuid.UUID, actor string) (*models.BulkResult, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Reason: "no ids supplied"}
	}
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, &ValidationError{Reason: "bulk delete item missing id"}
		}
	}

	res := &models.BulkResult{}
	for _, b := range chunkBounds(len(ids)) {
		s.bulkDeleteChunk(ctx, ids[b[0]:b[1]], actor, res)
	}

	s.invalidateTrees(ctx)
	return res, nil
}

func (s *CategoryStore) bulkDeleteChunk(ctx context.Context, chunk []uuid.UUID, actor string, res *models.BulkResult) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		res.Failed += len(chunk)
		res.BatchFailed(0, fmt.Sprintf("begin batch: %v", err))
		return
	}
	defer tx.Rollback()

	staged := 0
	now := time.Now()
	for _, id := range chunk {
		cur, err := s.findByID(ctx, tx, id, false)
		if err != nil {
			res.Fail(id.String(), err.Error())
			continue
		}
		if cur == nil {
			res.Fail(id.String(), "not found")
			continue
		}
		if err := deleteGuard(cur); err != nil {
			res.Fail(id.String(), err.Error())
			continue
		}

		err = stageItem(ctx, tx, func() error {
			_, execErr := tx.ExecContext(ctx, `
				UPDATE categories SET
					is_active = FALSE, version = version + 1,
					updated_at = $1, updated_by = $2
				WHERE id = $3
			`, now, actor, id)
			return execErr
		})
		if err != nil {
			res.Fail(id.String(), err.Error())
			continue
		}
		staged++
		res.Success++
	}

	if err := tx.Commit(); err != nil {
		res.BatchFailed(staged, fmt.Sprintf("batch commit: %v", err))
	}
}

// Import upserts raw category records, treating each as a complete
// snapshot (an export/import round trip). Records without an id are
// inserted under a fresh one; records whose id already exists are merged
// over the stored row when updateExisting is true, or replace it (keeping
// id, creation stamps, and counters) when false. Supplied paths are
// trusted as-is; records without paths are seeded as roots.
func (s *CategoryStore) Import(ctx context.Context, records []models.Category, updateExisting bool, actor string) (*models.BulkResult, error) {
	if len(records) == 0 {
		return nil, &ValidationError{Reason: "no records supplied"}
	}

	res := &models.BulkResult{}
	for _, b := range chunkBounds(len(records)) {
		s.importChunk(ctx, records[b[0]:b[1]], updateExisting, actor, res)
	}

	s.invalidateTrees(ctx)
	return res, nil
}

func (s *CategoryStore) importChunk(ctx context.Context, chunk []models.Category, updateExisting bool, actor string, res *models.BulkResult) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		res.Failed += len(chunk)
		res.BatchFailed(0, fmt.Sprintf("begin batch: %v", err))
		return
	}
	defer tx.Rollback()

	staged := 0
	now := time.Now()
	for i := range chunk {
		rec := chunk[i]
		ident := importIdent(&rec)

		rec.Name = strings.TrimSpace(rec.Name)
		rec.Slug = strings.TrimSpace(rec.Slug)
		if rec.Slug == "" {
			rec.Slug = slug.Generate(rec.Name)
		}
		if rec.Slug == "" {
			res.Fail(ident, "category name or slug is required")
			continue
		}

		var cur *models.Category
		if rec.ID != uuid.Nil {
			cur, err = s.findByID(ctx, tx, rec.ID, false)
			if err != nil {
				res.Fail(ident, err.Error())
				continue
			}
		}

		if cur == nil {
			err = stageItem(ctx, tx, func() error { return s.importInsert(ctx, tx, &rec, actor, now) })
		} else {
			err = stageItem(ctx, tx, func() error {
				return s.importExisting(ctx, tx, cur, &rec, updateExisting, actor, now)
			})
		}
		if err != nil {
			res.Fail(ident, err.Error())
			continue
		}
		staged++
		res.Success++
	}

	if err := tx.Commit(); err != nil {
		res.BatchFailed(staged, fmt.Sprintf("batch commit: %v", err))
	}
}

// importIdent labels a record in the error list before an id may have
// been generated for it.
func importIdent(rec *models.Category) string {
	if rec.ID != uuid.Nil {
		return rec.ID.String()
	}
	if rec.Slug != "" {
		return rec.Slug
	}
	return rec.Name
}

func (s *CategoryStore) importInsert(ctx context.Context, q querier, rec *models.Category, actor string, now time.Time) error {
	if err := lockSlug(ctx, q, rec.Slug); err != nil {
		return err
	}
	taken, err := s.slugTaken(ctx, q, rec.Slug, rec.ID)
	if err != nil {
		return err
	}
	if taken {
		return &ConflictError{Reason: fmt.Sprintf("slug %q already exists", rec.Slug)}
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.ChildIDs == nil {
		rec.ChildIDs = []uuid.UUID{}
	}
	if rec.ParentIDs == nil {
		rec.ParentIDs = []uuid.UUID{}
	}
	if rec.ParentSlugs == nil {
		rec.ParentSlugs = []string{}
	}
	if len(rec.Paths) == 0 {
		rec.Paths = [][]uuid.UUID{{rec.ID}}
	}
	rec.MinLevel, rec.MaxLevel = levelBounds(rec.Paths)
	rec.IsLeaf = len(rec.ChildIDs) == 0
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.CreatedBy == "" {
		rec.CreatedBy = actor
	}
	rec.UpdatedBy = actor
	if rec.Version < 1 {
		rec.Version = 1
	}
	return insertCategory(ctx, q, rec)
}

func (s *CategoryStore) importExisting(ctx context.Context, q querier, cur, rec *models.Category, updateExisting bool, actor string, now time.Time) error {
	if rec.Slug != cur.Slug {
		if err := lockSlug(ctx, q, rec.Slug); err != nil {
			return err
		}
		taken, err := s.slugTaken(ctx, q, rec.Slug, cur.ID)
		if err != nil {
			return err
		}
		if taken {
			return &ConflictError{Reason: fmt.Sprintf("slug %q already exists", rec.Slug)}
		}
	}

	var next models.Category
	if updateExisting {
		next = mergeImport(cur, rec)
	} else {
		next = *rec
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		next.CreatedBy = cur.CreatedBy
		if next.ChildIDs == nil {
			next.ChildIDs = cur.ChildIDs
		}
		if len(next.Paths) == 0 {
			next.Paths = cur.Paths
		}
		next.MinLevel, next.MaxLevel = levelBounds(next.Paths)
		next.IsLeaf = len(next.ChildIDs) == 0
	}
	next.UpdatedAt = now
	next.UpdatedBy = actor
	next.Version = cur.Version + 1

	return writeCategory(ctx, q, &next)
}

// mergeImport lays non-empty record fields over the stored category.
func mergeImport(cur, rec *models.Category) models.Category {
	merged := *cur
	if rec.Name != "" {
		merged.Name = rec.Name
	}
	if rec.Slug != "" {
		merged.Slug = rec.Slug
	}
	if rec.Description != "" {
		merged.Description = rec.Description
	}
	if rec.Image != nil {
		merged.Image = rec.Image
	}
	if rec.Icon != nil {
		merged.Icon = rec.Icon
	}
	if rec.SEO != nil {
		merged.SEO = rec.SEO
	}
	if len(rec.ParentIDs) > 0 {
		merged.ParentIDs = rec.ParentIDs
		merged.ParentSlugs = rec.ParentSlugs
	}
	if len(rec.Paths) > 0 {
		merged.Paths = rec.Paths
		merged.MinLevel, merged.MaxLevel = levelBounds(rec.Paths)
	}
	if rec.SortOrder != 0 {
		merged.SortOrder = rec.SortOrder
	}
	merged.Featured = rec.Featured
	merged.IsActive = rec.IsActive
	return merged
}

// levelBounds returns the shortest and longest path lengths.
func levelBounds(paths [][]uuid.UUID) (min, max int) {
	for _, p := range paths {
		if min == 0 || len(p) < min {
			min = len(p)
		}
		if len(p) > max {
			max = len(p)
		}
	}
	return min, max
}
