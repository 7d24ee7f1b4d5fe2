package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Seed populates the database with a small demo taxonomy used in
// development: one featured root with three children and a second root.
// Lineage columns are written the same shape the store writes them.
// No-op if any categories exist already.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	battleGear := uuid.New()
	tops := uuid.New()
	launchers := uuid.New()
	stadiums := uuid.New()
	accessories := uuid.New()

	type row struct {
		id          uuid.UUID
		name        string
		slug        string
		description string
		parentIDs   []uuid.UUID
		parentSlugs []string
		childIDs    []uuid.UUID
		paths       [][]uuid.UUID
		level       int
		featured    bool
		sortOrder   int
	}

	rows := []row{
		{
			id: battleGear, name: "Battle Gear", slug: "battle-gear",
			description: "Competitive spinning top equipment",
			childIDs:    []uuid.UUID{tops, launchers, stadiums},
			paths:       [][]uuid.UUID{{battleGear}},
			level:       1, featured: true,
		},
		{
			id: tops, name: "Spinning Tops", slug: "spinning-tops",
			parentIDs: []uuid.UUID{battleGear}, parentSlugs: []string{"battle-gear"},
			paths: [][]uuid.UUID{{battleGear, tops}},
			level: 2, sortOrder: 1,
		},
		{
			id: launchers, name: "Launchers", slug: "launchers",
			parentIDs: []uuid.UUID{battleGear}, parentSlugs: []string{"battle-gear"},
			paths: [][]uuid.UUID{{battleGear, launchers}},
			level: 2, sortOrder: 2,
		},
		{
			id: stadiums, name: "Stadiums", slug: "stadiums",
			parentIDs: []uuid.UUID{battleGear}, parentSlugs: []string{"battle-gear"},
			paths: [][]uuid.UUID{{battleGear, stadiums}},
			level: 2, sortOrder: 3,
		},
		{
			id: accessories, name: "Accessories", slug: "accessories",
			description: "Cases, grips and spare parts",
			paths:       [][]uuid.UUID{{accessories}},
			level:       1, sortOrder: 4,
		},
	}

	for _, r := range rows {
		parentIDs, err := jsonList(r.parentIDs)
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.slug, err)
		}
		parentSlugs, err := jsonList(r.parentSlugs)
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.slug, err)
		}
		childIDs, err := jsonList(r.childIDs)
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.slug, err)
		}
		paths, err := jsonList(r.paths)
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.slug, err)
		}

		_, err = db.Exec(`
			INSERT INTO categories (
				id, name, slug, description,
				parent_ids, parent_slugs, child_ids, paths,
				min_level, max_level, is_leaf, featured, sort_order,
				created_by, updated_by
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			r.id, r.name, r.slug, r.description,
			parentIDs, parentSlugs, childIDs, paths,
			r.level, r.level, len(r.childIDs) == 0, r.featured, r.sortOrder,
			"seed", "seed",
		)
		if err != nil {
			return fmt.Errorf("seed insert %s: %w", r.slug, err)
		}
	}

	slog.Info("database seeded with demo categories", "count", len(rows))
	return nil
}

// jsonList marshals a slice for a jsonb column, mapping nil to the empty
// array.
func jsonList(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}
