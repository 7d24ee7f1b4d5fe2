// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// lineage.go answers ancestor and descendant queries from the stored
// materialized paths. Both are pure reads: paths are never rewritten
// here, only interpreted.
package store

import (
	"context"

	"github.com/google/uuid"

	"catalog/internal/models"
)

// Ancestors returns the ids of every category appearing on any of the
// node's paths, excluding the node itself. Order is not significant; the
// result is sorted only to be stable.
func (s *CategoryStore) Ancestors(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{ID: id.String()}
	}
	return sortIDs(ancestorsFromPaths(c.Paths, id)), nil
}

// Descendants returns the ids of every category whose paths pass through
// the given id. This scans the whole collection; category counts are
// small next to products and orders, so the linear pass is acceptable.
// Callers that need per-request lookups at volume should cache.
func (s *CategoryStore) Descendants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	all, err := s.List(ctx, models.Filter{})
	if err != nil {
		return nil, err
	}

	var out []uuid.UUID
	for i := range all {
		d := &all[i]
		if d.ID == id {
			continue
		}
		if pathsContain(d.Paths, id) {
			out = append(out, d.ID)
		}
	}
	return sortIDs(out), nil
}

// ancestorsFromPaths unions every id on the paths except self.
func ancestorsFromPaths(paths [][]uuid.UUID, self uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, path := range paths {
		for _, id := range path {
			if id == self {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// pathsContain reports whether any path passes through id.
func pathsContain(paths [][]uuid.UUID, id uuid.UUID) bool {
	for _, path := range paths {
		for _, v := range path {
			if v == id {
				return true
			}
		}
	}
	return false
}
