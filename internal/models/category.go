// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category represents one node of the product category hierarchy.
// The hierarchy is a DAG, not a tree: a category may list several parents,
// and Paths holds one root-to-node id sequence per distinct walk implied
// by ParentIDs. Each sequence ends with the category's own id.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`

	// Opaque presentation blobs, stored and returned as-is.
	Image json.RawMessage `json:"image,omitempty"`
	Icon  json.RawMessage `json:"icon,omitempty"`
	SEO   json.RawMessage `json:"seo,omitempty"`

	ParentIDs   []uuid.UUID `json:"parent_ids"`
	ParentSlugs []string    `json:"parent_slugs"`
	ChildIDs    []uuid.UUID `json:"child_ids"`

	// Paths is the materialized lineage. MinLevel/MaxLevel are the
	// shortest and longest sequence lengths across all entries.
	Paths    [][]uuid.UUID `json:"paths"`
	MinLevel int           `json:"min_level"`
	MaxLevel int           `json:"max_level"`

	IsLeaf    bool `json:"is_leaf"`
	IsActive  bool `json:"is_active"`
	Featured  bool `json:"featured"`
	SortOrder int  `json:"sort_order"`

	// Denormalized inventory counters, written only through
	// CategoryStore.UpdateProductCounts.
	ProductCount    int `json:"product_count"`
	InStockCount    int `json:"in_stock_count"`
	OutOfStockCount int `json:"out_of_stock_count"`
	LowStockCount   int `json:"low_stock_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`

	// Version starts at 1 and is incremented by exactly one on every
	// successful mutating write. Used for optimistic concurrency.
	Version int64 `json:"version"`
}

// Node is a Category placed in a rendered forest. A category with several
// parents appears under each of them as the same *Node, not as copies.
type Node struct {
	Category
	HasChildren bool    `json:"has_children"`
	Children    []*Node `json:"children"`
}

// Update is the closed set of caller-mutable category fields. A nil
// pointer leaves the stored value untouched. Derived fields (child ids,
// paths, levels, leaf flag, counters, version bookkeeping) are owned by
// the store and cannot be set here; Version is the caller's expected
// version for optimistic locking, not a value to write.
type Update struct {
	Name        *string
	Slug        *string
	Description *string

	Image json.RawMessage
	Icon  json.RawMessage
	SEO   json.RawMessage

	// ParentIDs re-parents the category. The store recomputes lineage
	// and repairs child links on both the old and new parents.
	ParentIDs *[]uuid.UUID

	Featured  *bool
	SortOrder *int
	IsActive  *bool

	Version *int64
}

// Counts carries the denormalized inventory counters synced by the
// external inventory collaborator.
type Counts struct {
	Products   int `json:"products"`
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
	LowStock   int `json:"low_stock"`
}

// SortField names a column the category list can be ordered by.
type SortField string

const (
	SortByName         SortField = "name"
	SortBySortOrder    SortField = "sort_order"
	SortByCreatedAt    SortField = "created_at"
	SortByProductCount SortField = "product_count"
)

// Filter narrows and orders a category listing. The boolean pointers are
// tri-state: nil means "no filter". ParentID set to uuid.Nil selects root
// categories (no parent); any other value selects direct children of that
// parent. Search matches name, slug, and description case-insensitively
// and, like the parent filter, is applied after pagination because the
// backing query cannot express it.
type Filter struct {
	IsActive *bool
	Featured *bool
	IsLeaf   *bool

	ParentID *uuid.UUID
	Search   string

	SortBy   SortField
	SortDesc bool

	Offset int
	Limit  int
}
