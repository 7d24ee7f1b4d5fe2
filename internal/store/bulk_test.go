package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"catalog/internal/models"
)

func TestChunkBounds(t *testing.T) {
	tests := []struct {
		name  string
		total int
		want  [][2]int
	}{
		{name: "single short chunk", total: 3, want: [][2]int{{0, 3}}},
		{name: "exactly one chunk", total: 500, want: [][2]int{{0, 500}}},
		{name: "one over the limit", total: 501, want: [][2]int{{0, 500}, {500, 501}}},
		{name: "three chunks", total: 1001, want: [][2]int{{0, 500}, {500, 1000}, {1000, 1001}}},
		{name: "two full chunks", total: 1000, want: [][2]int{{0, 500}, {500, 1000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkBounds(tt.total)
			if len(got) != len(tt.want) {
				t.Fatalf("chunks: got %d, want %d", len(got), len(tt.want))
			}
			covered := 0
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d: got %v, want %v", i, got[i], tt.want[i])
				}
				if got[i][1]-got[i][0] > BulkChunkLimit {
					t.Errorf("chunk %d exceeds limit: %v", i, got[i])
				}
				covered += got[i][1] - got[i][0]
			}
			if covered != tt.total {
				t.Errorf("chunks cover %d items, want %d", covered, tt.total)
			}
		})
	}
}

func TestBulkResultErrorCap(t *testing.T) {
	var res models.BulkResult
	for i := 0; i < models.MaxBulkErrors+50; i++ {
		res.Fail(uuid.NewString(), "boom")
	}
	if len(res.Errors) != models.MaxBulkErrors {
		t.Errorf("errors retained: got %d, want %d", len(res.Errors), models.MaxBulkErrors)
	}
	// The failure count is never capped.
	if res.Failed != models.MaxBulkErrors+50 {
		t.Errorf("failed count: got %d, want %d", res.Failed, models.MaxBulkErrors+50)
	}
}

func TestBulkResultBatchFailed(t *testing.T) {
	res := models.BulkResult{Success: 10}
	res.BatchFailed(10, "batch commit: broken pipe")
	if res.Success != 0 || res.Failed != 10 {
		t.Errorf("after batch failure: success=%d failed=%d, want 0/10", res.Success, res.Failed)
	}
	if len(res.Errors) != 1 || res.Errors[0].ItemID != "" {
		t.Errorf("expected one batch-level error entry, got %v", res.Errors)
	}
}

func TestBulkUpdateValidatesInput(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	var verr *ValidationError
	if _, err := s.BulkUpdate(ctx, nil, "tester"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty input, got %v", err)
	}
	items := []models.BulkUpdateItem{{ID: uuid.Nil}}
	if _, err := s.BulkUpdate(ctx, items, "tester"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for nil id, got %v", err)
	}
	if _, err := s.BulkDelete(ctx, nil, "tester"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty delete, got %v", err)
	}
	if _, err := s.Import(ctx, nil, false, "tester"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty import, got %v", err)
	}
}

func TestBulkUpdatePartialFailure(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	slugA := uniqueSlug("bulk-a")
	slugB := uniqueSlug("bulk-b")
	t.Cleanup(func() { cleanCategories(t, db, slugA, slugB) })

	a := mustCreate(t, s, &models.Category{Name: "Bulk A", Slug: slugA})
	b := mustCreate(t, s, &models.Category{Name: "Bulk B", Slug: slugB})

	order := 7
	stale := int64(99)
	items := []models.BulkUpdateItem{
		{ID: a.ID, Data: models.Update{SortOrder: &order}},
		{ID: uuid.New(), Data: models.Update{SortOrder: &order}}, // unknown id
		{ID: b.ID, Data: models.Update{SortOrder: &order, Version: &stale}},
	}

	res, err := s.BulkUpdate(ctx, items, "bulker")
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if res.Success != 1 || res.Failed != 2 {
		t.Errorf("result: success=%d failed=%d, want 1/2", res.Success, res.Failed)
	}
	if res.Success+res.Failed != len(items) {
		t.Errorf("success+failed=%d, want %d", res.Success+res.Failed, len(items))
	}
	if len(res.Errors) != 2 {
		t.Errorf("errors: got %d, want 2", len(res.Errors))
	}

	// The valid item committed with a bumped version and actor stamp.
	reA, _ := s.FindByID(ctx, a.ID)
	if reA.SortOrder != 7 || reA.Version != 2 || reA.UpdatedBy != "bulker" {
		t.Errorf("committed item: sort=%d version=%d by=%q", reA.SortOrder, reA.Version, reA.UpdatedBy)
	}
	// The stale-version item stayed untouched.
	reB, _ := s.FindByID(ctx, b.ID)
	if reB.SortOrder == 7 || reB.Version != 1 {
		t.Errorf("stale item mutated: sort=%d version=%d", reB.SortOrder, reB.Version)
	}
}

func TestBulkUpdateItemFailureDoesNotPoisonChunk(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	slugA := uniqueSlug("sp-a")
	slugB := uniqueSlug("sp-b")
	slugC := uniqueSlug("sp-c")
	t.Cleanup(func() { cleanCategories(t, db, slugA, slugB, slugC) })

	a := mustCreate(t, s, &models.Category{Name: "SP A", Slug: slugA})
	b := mustCreate(t, s, &models.Category{Name: "SP B", Slug: slugB})
	c := mustCreate(t, s, &models.Category{Name: "SP C", Slug: slugC})

	// The middle item's image is not valid JSON, so its write errors in
	// the database. The items around it must still commit.
	order := 5
	items := []models.BulkUpdateItem{
		{ID: a.ID, Data: models.Update{SortOrder: &order}},
		{ID: b.ID, Data: models.Update{Image: json.RawMessage(`{broken`)}},
		{ID: c.ID, Data: models.Update{SortOrder: &order}},
	}

	res, err := s.BulkUpdate(ctx, items, "tester")
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if res.Success != 2 || res.Failed != 1 {
		t.Errorf("result: success=%d failed=%d, want 2/1", res.Success, res.Failed)
	}

	reA, _ := s.FindByID(ctx, a.ID)
	reC, _ := s.FindByID(ctx, c.ID)
	if reA.SortOrder != 5 || reA.Version != 2 {
		t.Errorf("item before the failure lost: sort=%d version=%d", reA.SortOrder, reA.Version)
	}
	if reC.SortOrder != 5 || reC.Version != 2 {
		t.Errorf("item after the failure lost: sort=%d version=%d", reC.SortOrder, reC.Version)
	}
	reB, _ := s.FindByID(ctx, b.ID)
	if reB.Version != 1 {
		t.Errorf("failed item mutated: version=%d", reB.Version)
	}
}

func TestBulkUpdateRejectsReparenting(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	sl := uniqueSlug("bulk-rp")
	t.Cleanup(func() { cleanCategories(t, db, sl) })

	c := mustCreate(t, s, &models.Category{Name: "Bulk RP", Slug: sl})

	parents := []uuid.UUID{uuid.New()}
	res, err := s.BulkUpdate(ctx, []models.BulkUpdateItem{
		{ID: c.ID, Data: models.Update{ParentIDs: &parents}},
	}, "tester")
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if res.Failed != 1 || res.Success != 0 {
		t.Errorf("result: success=%d failed=%d, want 0/1", res.Success, res.Failed)
	}
}

func TestBulkDelete(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	goneSlug := uniqueSlug("bd-gone")
	parentSlug := uniqueSlug("bd-parent")
	kidSlug := uniqueSlug("bd-kid")
	t.Cleanup(func() { cleanCategories(t, db, goneSlug, parentSlug, kidSlug) })

	gone := mustCreate(t, s, &models.Category{Name: "BD Gone", Slug: goneSlug})
	parent := mustCreate(t, s, &models.Category{Name: "BD Parent", Slug: parentSlug})
	mustCreate(t, s, &models.Category{
		Name: "BD Kid", Slug: kidSlug,
		ParentIDs: []uuid.UUID{parent.ID},
	})

	res, err := s.BulkDelete(ctx, []uuid.UUID{gone.ID, parent.ID, uuid.New()}, "tester")
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	// The parent (has a child) and the unknown id fail; the leaf goes.
	if res.Success != 1 || res.Failed != 2 {
		t.Errorf("result: success=%d failed=%d, want 1/2", res.Success, res.Failed)
	}

	reGone, _ := s.FindByID(ctx, gone.ID)
	if reGone.IsActive {
		t.Error("expected soft-deleted category to be inactive")
	}
	reParent, _ := s.FindByID(ctx, parent.ID)
	if !reParent.IsActive {
		t.Error("guarded category must remain active")
	}
}

func TestImportInsertsAndUpdates(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	freshSlug := uniqueSlug("imp-fresh")
	existingSlug := uniqueSlug("imp-exist")
	t.Cleanup(func() { cleanCategories(t, db, freshSlug, existingSlug) })

	existing := mustCreate(t, s, &models.Category{Name: "Imp Exist", Slug: existingSlug})

	records := []models.Category{
		{Name: "Imp Fresh", Slug: freshSlug, IsActive: true},
		{ID: existing.ID, Name: "Imp Exist Renamed", Slug: existingSlug, IsActive: true},
		{}, // no name, no slug
	}

	res, err := s.Import(ctx, records, true, "importer")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Success != 2 || res.Failed != 1 {
		t.Errorf("result: success=%d failed=%d, want 2/1", res.Success, res.Failed)
	}

	fresh, err := s.FindBySlug(ctx, freshSlug)
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if fresh == nil {
		t.Fatal("imported record missing")
	}
	if fresh.ID == uuid.Nil || fresh.Version != 1 {
		t.Errorf("fresh import: id=%s version=%d", fresh.ID, fresh.Version)
	}
	if fresh.CreatedAt.IsZero() {
		t.Error("created_at should be defaulted")
	}
	// A record without paths is seeded as a root.
	if len(fresh.Paths) != 1 || fresh.Paths[0][0] != fresh.ID {
		t.Errorf("fresh paths: got %v", fresh.Paths)
	}

	renamed, _ := s.FindByID(ctx, existing.ID)
	if renamed.Name != "Imp Exist Renamed" {
		t.Errorf("merge did not apply: name=%q", renamed.Name)
	}
	if renamed.Version != 2 {
		t.Errorf("merge version: got %d, want 2", renamed.Version)
	}
}

func TestImportMergeAppliesBooleans(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	sl := uniqueSlug("imp-bool")
	t.Cleanup(func() { cleanCategories(t, db, sl) })

	existing := mustCreate(t, s, &models.Category{
		Name: "Imp Bool", Slug: sl, Featured: true,
	})

	// Import records are complete snapshots, so the booleans follow the
	// record even in merge mode: a record carrying featured=false is a
	// statement, not an omission.
	res, err := s.Import(ctx, []models.Category{
		{ID: existing.ID, Name: "Imp Bool", Slug: sl, IsActive: true},
	}, true, "importer")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Success != 1 || res.Failed != 0 {
		t.Fatalf("result: success=%d failed=%d", res.Success, res.Failed)
	}

	merged, _ := s.FindByID(ctx, existing.ID)
	if merged.Featured {
		t.Error("featured=false in the record must apply in merge mode")
	}
	if !merged.IsActive {
		t.Error("is_active=true in the record must apply in merge mode")
	}
}

func TestImportWithoutUpdateExistingReplaces(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	sl := uniqueSlug("imp-repl")
	t.Cleanup(func() { cleanCategories(t, db, sl) })

	existing := mustCreate(t, s, &models.Category{
		Name: "Imp Replace", Slug: sl,
		Description: "old description",
	})

	res, err := s.Import(ctx, []models.Category{
		{ID: existing.ID, Name: "Replaced", Slug: sl, IsActive: true},
	}, false, "importer")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Success != 1 || res.Failed != 0 {
		t.Fatalf("result: success=%d failed=%d", res.Success, res.Failed)
	}

	replaced, _ := s.FindByID(ctx, existing.ID)
	if replaced.Name != "Replaced" {
		t.Errorf("name: got %q", replaced.Name)
	}
	// Replacement is wholesale: fields absent from the record reset.
	if replaced.Description != "" {
		t.Errorf("description should be replaced away, got %q", replaced.Description)
	}
	// Identity and creation stamps survive.
	if replaced.CreatedBy != "tester" {
		t.Errorf("created_by: got %q, want tester", replaced.CreatedBy)
	}
	if replaced.Version != 2 {
		t.Errorf("version: got %d, want 2", replaced.Version)
	}
}

func TestImportSlugConflict(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	sl := uniqueSlug("imp-dup")
	t.Cleanup(func() { cleanCategories(t, db, sl) })

	mustCreate(t, s, &models.Category{Name: "Imp Dup", Slug: sl})

	res, err := s.Import(ctx, []models.Category{
		{Name: "Imp Dup Clone", Slug: sl, IsActive: true},
	}, false, "importer")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Success != 0 || res.Failed != 1 {
		t.Errorf("result: success=%d failed=%d, want 0/1", res.Success, res.Failed)
	}
}
