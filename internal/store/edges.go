// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// edges.go owns the denormalized graph bookkeeping: resolving a node's
// materialized paths from its parents and keeping parents' child_ids and
// is_leaf in step with edge changes. All functions run on the caller's
// transaction so lineage and the write that depends on it commit
// together.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// lineage is the derived ancestry of one category.
type lineage struct {
	parentIDs   []uuid.UUID
	parentSlugs []string
	paths       [][]uuid.UUID
	minLevel    int
	maxLevel    int
}

// resolveLineage computes paths, parent slugs, and depth bounds for a
// category from its parents' stored paths. Every referenced parent must
// exist. A category without parents is a root with the single path
// [self]. The parent set is assumed acyclic.
func (s *CategoryStore) resolveLineage(ctx context.Context, q querier, parentIDs []uuid.UUID, self uuid.UUID) (*lineage, error) {
	parents := dedupeIDs(parentIDs)

	if len(parents) == 0 {
		return &lineage{
			parentIDs:   []uuid.UUID{},
			parentSlugs: []string{},
			paths:       [][]uuid.UUID{{self}},
			minLevel:    1,
			maxLevel:    1,
		}, nil
	}

	lin := &lineage{
		parentIDs:   parents,
		parentSlugs: make([]string, 0, len(parents)),
	}
	for _, pid := range parents {
		if pid == self {
			return nil, &ValidationError{Reason: "category cannot be its own parent"}
		}
		parent, err := s.findByID(ctx, q, pid, false)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, &NotFoundError{ID: pid.String()}
		}
		lin.parentSlugs = append(lin.parentSlugs, parent.Slug)

		ppaths := parent.Paths
		if len(ppaths) == 0 {
			// Legacy rows imported without lineage still anchor a walk.
			ppaths = [][]uuid.UUID{{pid}}
		}
		for _, p := range ppaths {
			path := make([]uuid.UUID, 0, len(p)+1)
			path = append(path, p...)
			path = append(path, self)
			lin.paths = append(lin.paths, path)
		}
	}

	lin.minLevel = len(lin.paths[0])
	lin.maxLevel = len(lin.paths[0])
	for _, p := range lin.paths[1:] {
		if len(p) < lin.minLevel {
			lin.minLevel = len(p)
		}
		if len(p) > lin.maxLevel {
			lin.maxLevel = len(p)
		}
	}
	return lin, nil
}

// repairEdges removes the child from parents no longer listed and adds it
// to newly listed ones.
func (s *CategoryStore) repairEdges(ctx context.Context, q querier, child uuid.UUID, oldParents, newParents []uuid.UUID) error {
	for _, pid := range oldParents {
		if !containsID(newParents, pid) {
			if err := unlinkChild(ctx, q, pid, child); err != nil {
				return err
			}
		}
	}
	for _, pid := range newParents {
		if !containsID(oldParents, pid) {
			if err := linkChild(ctx, q, pid, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkChild adds child to the parent's child_ids and clears is_leaf.
// Idempotent: a child already present is left alone.
func linkChild(ctx context.Context, q querier, parent, child uuid.UUID) error {
	ids, err := childIDsForUpdate(ctx, q, parent)
	if err != nil {
		return err
	}
	if containsID(ids, child) {
		return nil
	}
	return writeChildIDs(ctx, q, parent, append(ids, child))
}

// unlinkChild removes child from the parent's child_ids, restoring
// is_leaf when the last child goes.
func unlinkChild(ctx context.Context, q querier, parent, child uuid.UUID) error {
	ids, err := childIDsForUpdate(ctx, q, parent)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != child {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	return writeChildIDs(ctx, q, parent, kept)
}

// refreshParentSlugs rewrites a renamed parent's slug in each child's
// parent_slugs. The slug's position in a child's parent_slugs mirrors the
// parent's position in its parent_ids.
func refreshParentSlugs(ctx context.Context, q querier, parent uuid.UUID, newSlug string, children []uuid.UUID) error {
	for _, cid := range children {
		var rawIDs, rawSlugs []byte
		err := q.QueryRowContext(ctx,
			`SELECT parent_ids, parent_slugs FROM categories WHERE id = $1 FOR UPDATE`, cid,
		).Scan(&rawIDs, &rawSlugs)
		if err != nil {
			return fmt.Errorf("read parent slugs of %s: %w", cid, err)
		}
		var ids []uuid.UUID
		var slugs []string
		if err := decodeList(rawIDs, &ids); err != nil {
			return fmt.Errorf("decode parent ids of %s: %w", cid, err)
		}
		if err := decodeList(rawSlugs, &slugs); err != nil {
			return fmt.Errorf("decode parent slugs of %s: %w", cid, err)
		}

		changed := false
		for i, pid := range ids {
			if pid == parent && i < len(slugs) && slugs[i] != newSlug {
				slugs[i] = newSlug
				changed = true
			}
		}
		if !changed {
			continue
		}

		encoded, err := encodeList(slugs)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`UPDATE categories SET parent_slugs = $1 WHERE id = $2`, encoded, cid)
		if err != nil {
			return fmt.Errorf("write parent slugs of %s: %w", cid, err)
		}
	}
	return nil
}

// childIDsForUpdate reads and locks a parent's child list.
func childIDsForUpdate(ctx context.Context, q querier, parent uuid.UUID) ([]uuid.UUID, error) {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT child_ids FROM categories WHERE id = $1 FOR UPDATE`, parent,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("read child ids of %s: %w", parent, err)
	}
	var ids []uuid.UUID
	if err := decodeList(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode child ids of %s: %w", parent, err)
	}
	return ids, nil
}

// writeChildIDs persists a parent's child list and the leaf flag derived
// from it, keeping is_leaf == (len(child_ids) == 0).
func writeChildIDs(ctx context.Context, q querier, parent uuid.UUID, ids []uuid.UUID) error {
	encoded, err := encodeList(ids)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE categories SET child_ids = $1, is_leaf = $2 WHERE id = $3`,
		encoded, len(ids) == 0, parent,
	)
	if err != nil {
		return fmt.Errorf("write child ids of %s: %w", parent, err)
	}
	return nil
}

// dedupeIDs returns a copy with duplicates removed, preserving order.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
