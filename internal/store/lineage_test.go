package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"catalog/internal/models"
)

func TestAncestorsFromPaths(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	self := uuid.New()

	t.Run("single path", func(t *testing.T) {
		got := ancestorsFromPaths([][]uuid.UUID{{a, b, self}}, self)
		if len(got) != 2 || !containsID(got, a) || !containsID(got, b) {
			t.Errorf("ancestors: got %v, want {%s, %s}", got, a, b)
		}
	})

	t.Run("multiple paths deduplicate", func(t *testing.T) {
		paths := [][]uuid.UUID{
			{a, b, self},
			{c, b, self},
		}
		got := ancestorsFromPaths(paths, self)
		if len(got) != 3 {
			t.Errorf("expected 3 distinct ancestors, got %v", got)
		}
	})

	t.Run("root has no ancestors", func(t *testing.T) {
		got := ancestorsFromPaths([][]uuid.UUID{{self}}, self)
		if len(got) != 0 {
			t.Errorf("root ancestors: got %v, want none", got)
		}
	})
}

func TestPathsContain(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	other := uuid.New()

	paths := [][]uuid.UUID{{a, b}}
	if !pathsContain(paths, a) {
		t.Error("expected paths to contain a")
	}
	if pathsContain(paths, other) {
		t.Error("did not expect paths to contain other")
	}
	if pathsContain(nil, a) {
		t.Error("empty paths contain nothing")
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	base := uuid.NewString()[:8]
	topSlug := "lin-top-" + base
	midSlug := "lin-mid-" + base
	leafSlug := "lin-leaf-" + base
	t.Cleanup(func() { cleanCategories(t, db, topSlug, midSlug, leafSlug) })

	top := mustCreate(t, s, &models.Category{Name: "Lin Top " + base, Slug: topSlug})
	mid := mustCreate(t, s, &models.Category{
		Name: "Lin Mid " + base, Slug: midSlug,
		ParentIDs: []uuid.UUID{top.ID},
	})
	leaf := mustCreate(t, s, &models.Category{
		Name: "Lin Leaf " + base, Slug: leafSlug,
		ParentIDs: []uuid.UUID{mid.ID},
	})

	ancestors, err := s.Ancestors(ctx, leaf.ID)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(ancestors) != 2 || !containsID(ancestors, top.ID) || !containsID(ancestors, mid.ID) {
		t.Errorf("leaf ancestors: got %v, want {top, mid}", ancestors)
	}

	descendants, err := s.Descendants(ctx, top.ID)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	if !containsID(descendants, mid.ID) || !containsID(descendants, leaf.ID) {
		t.Errorf("top descendants: got %v, want mid and leaf", descendants)
	}
	if containsID(descendants, top.ID) {
		t.Error("a category is not its own descendant")
	}

	// Duality: every ancestor of leaf counts leaf among its descendants.
	for _, anc := range ancestors {
		down, err := s.Descendants(ctx, anc)
		if err != nil {
			t.Fatalf("Descendants(%s): %v", anc, err)
		}
		if !containsID(down, leaf.ID) {
			t.Errorf("ancestor %s does not list leaf as descendant", anc)
		}
	}

	var nferr *NotFoundError
	if _, err := s.Ancestors(ctx, uuid.New()); !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestMultiParentLineage(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	base := uuid.NewString()[:8]
	leftSlug := "mp-left-" + base
	rightSlug := "mp-right-" + base
	bothSlug := "mp-both-" + base
	t.Cleanup(func() { cleanCategories(t, db, leftSlug, rightSlug, bothSlug) })

	left := mustCreate(t, s, &models.Category{Name: "MP Left " + base, Slug: leftSlug})
	right := mustCreate(t, s, &models.Category{Name: "MP Right " + base, Slug: rightSlug})
	both := mustCreate(t, s, &models.Category{
		Name: "MP Both " + base, Slug: bothSlug,
		ParentIDs: []uuid.UUID{left.ID, right.ID},
	})

	// Two parents, two paths.
	if len(both.Paths) != 2 {
		t.Fatalf("paths: got %d, want 2", len(both.Paths))
	}
	if both.MinLevel != 2 || both.MaxLevel != 2 {
		t.Errorf("levels: got %d/%d, want 2/2", both.MinLevel, both.MaxLevel)
	}

	ancestors, err := s.Ancestors(ctx, both.ID)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if !containsID(ancestors, left.ID) || !containsID(ancestors, right.ID) {
		t.Errorf("ancestors: got %v, want both parents", ancestors)
	}

	// Both parents count the shared child among their descendants.
	for _, pid := range []uuid.UUID{left.ID, right.ID} {
		down, err := s.Descendants(ctx, pid)
		if err != nil {
			t.Fatalf("Descendants: %v", err)
		}
		if !containsID(down, both.ID) {
			t.Errorf("parent %s missing shared child in descendants", pid)
		}
	}
}
