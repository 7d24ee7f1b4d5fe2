// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"sort"

	"catalog/internal/models"
)

// Tree returns the category forest, optionally restricted to active
// categories. The forest is rebuilt from a committed snapshot of the
// collection; when a tree cache is attached, a cached snapshot may be
// returned instead and is dropped on the next write.
func (s *CategoryStore) Tree(ctx context.Context, activeOnly bool) ([]*models.Node, error) {
	key := treeKey(activeOnly)
	if s.trees != nil {
		if forest, ok := s.trees.Get(ctx, key); ok {
			return forest, nil
		}
	}

	var f models.Filter
	if activeOnly {
		active := true
		f.IsActive = &active
	}
	flat, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}

	forest := BuildForest(flat)
	if s.trees != nil {
		s.trees.Set(ctx, key, forest)
	}
	return forest, nil
}

func treeKey(activeOnly bool) string {
	if activeOnly {
		return "active"
	}
	return "all"
}

// BuildForest reconstructs the multi-parent forest from a flat category
// snapshot. Roots are the categories with no parents. A category with
// several parents is attached to each of them as the same *Node, so
// edits to it are visible under every parent. A node is attached only to
// parents present in the snapshot; with activeOnly filtering, children
// of inactive parents simply drop out of the forest.
//
// Children (and roots) are ordered by sort_order, depth first. The input
// order is preserved as the tie-break, so two builds over the same
// snapshot yield structurally identical forests.
func BuildForest(flat []models.Category) []*models.Node {
	nodes := make(map[string]*models.Node, len(flat))
	order := make([]*models.Node, 0, len(flat))
	for i := range flat {
		n := &models.Node{
			Category:    flat[i],
			HasChildren: len(flat[i].ChildIDs) > 0,
			Children:    []*models.Node{},
		}
		nodes[n.ID.String()] = n
		order = append(order, n)
	}

	roots := []*models.Node{}
	for _, n := range order {
		if len(n.ParentIDs) == 0 {
			roots = append(roots, n)
			continue
		}
		for _, pid := range n.ParentIDs {
			if parent, ok := nodes[pid.String()]; ok {
				parent.Children = append(parent.Children, n)
			}
		}
	}

	sortForest(roots, make(map[*models.Node]bool, len(order)))
	return roots
}

// sortForest orders every children list by sort_order, depth first. The
// seen map keeps shared multi-parent subtrees from being walked more
// than once.
func sortForest(children []*models.Node, seen map[*models.Node]bool) {
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].SortOrder < children[j].SortOrder
	})
	for _, c := range children {
		if seen[c] {
			continue
		}
		seen[c] = true
		sortForest(c.Children, seen)
	}
}
