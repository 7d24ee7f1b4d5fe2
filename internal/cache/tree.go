// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go provides a Valkey-backed cache for rendered category forests.
// Building the forest means listing the whole collection and linking
// nodes, so read-heavy callers get a short-TTL snapshot here; the store
// drops it after every write. A cached forest is a JSON round trip, so a
// multi-parent node comes back as equal copies rather than one shared
// pointer.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog/internal/models"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached forests.
	treeKeyPrefix = "cattree:"

	// DefaultTreeTTL is how long a forest snapshot stays cached. Writes
	// invalidate earlier; the TTL only bounds staleness when an
	// invalidation is lost.
	DefaultTreeTTL = 2 * time.Minute
)

// TreeCache manages category forest snapshots in Valkey.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a forest cache backed by the given Valkey client.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// Get retrieves a cached forest. Returns false on miss or decode failure.
func (tc *TreeCache) Get(ctx context.Context, key string) ([]*models.Node, bool) {
	val, err := tc.client.Get(ctx, treeKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("tree cache get error", "key", key, "error", err)
		return nil, false
	}

	var forest []*models.Node
	if err := json.Unmarshal(val, &forest); err != nil {
		slog.Warn("tree cache decode error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("tree cache hit", "key", key)
	return forest, true
}

// Set stores a forest snapshot with the configured TTL. Failures are
// logged and swallowed; the cache is best-effort.
func (tc *TreeCache) Set(ctx context.Context, key string, forest []*models.Node) {
	data, err := json.Marshal(forest)
	if err != nil {
		slog.Warn("tree cache encode error", "key", key, "error", err)
		return
	}
	if err := tc.client.Set(ctx, treeKeyPrefix+key, data, tc.ttl).Err(); err != nil {
		slog.Warn("tree cache set error", "key", key, "error", err)
	}
}

// Invalidate removes every cached forest snapshot by scanning the prefix.
// Any write can reshape the tree, so all variants go at once.
func (tc *TreeCache) Invalidate(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := tc.client.Scan(ctx, cursor, treeKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("tree cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := tc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("tree cache delete error", "error", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("tree cache invalidated")
}
