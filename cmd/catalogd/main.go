// Package main is the provisioning entry point for the catalog service.
// It loads configuration, connects to PostgreSQL and Valkey, applies
// migrations, seeds development data, and reports the resulting category
// forest. The HTTP layer consuming the store lives in a separate service.
package main

import (
	"context"
	"log/slog"
	"os"

	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/models"
	"catalog/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", "env", cfg.Env)

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	categories := store.NewCategoryStore(db)

	// Valkey is optional here: without it the store just rebuilds the
	// forest on every read.
	if valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword); err != nil {
		slog.Warn("valkey unavailable, tree caching disabled", "error", err)
	} else {
		defer valkeyClient.Close()
		categories.UseTreeCache(cache.NewTreeCache(valkeyClient, 0))
	}

	ctx := context.Background()
	forest, err := categories.Tree(ctx, true)
	if err != nil {
		slog.Error("failed to build category tree", "error", err)
		os.Exit(1)
	}

	total, err := categories.Count(ctx, models.Filter{})
	if err != nil {
		slog.Error("failed to count categories", "error", err)
		os.Exit(1)
	}

	slog.Info("catalog ready", "roots", len(forest), "categories", total)
}
