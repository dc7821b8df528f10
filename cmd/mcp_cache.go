package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/mj1618/a11y-tree/internal/traverse"
)

// mcpCacheKey identifies a unique snapshot scope.
type mcpCacheKey struct {
	App         string
	Strategy    traverse.Strategy
	MaxChildren int
	CallTimeout time.Duration
}

// mcpCacheEntry holds a cached snapshot with its timestamp.
type mcpCacheEntry struct {
	tree      model.Node
	timestamp time.Time
}

// mcpTreeCache provides a TTL-based cache for built snapshots.
type mcpTreeCache struct {
	mu      sync.Mutex
	entries map[mcpCacheKey]mcpCacheEntry
	ttl     time.Duration
}

// newMCPTreeCache creates a new cache. A ttl of 0 disables caching.
func newMCPTreeCache(ttl time.Duration) *mcpTreeCache {
	return &mcpTreeCache{
		entries: make(map[mcpCacheKey]mcpCacheEntry),
		ttl:     ttl,
	}
}

// buildTree returns a cached snapshot if within TTL, otherwise builds fresh.
func (c *mcpTreeCache) buildTree(ctx context.Context, client atspi.Client, root model.Handle, app string, cfg traverse.Config) (model.Node, error) {
	if c.ttl == 0 {
		return traverse.BuildTree(ctx, client, root, cfg)
	}

	key := mcpCacheKey{
		App:         app,
		Strategy:    cfg.Strategy,
		MaxChildren: cfg.MaxChildren,
		CallTimeout: cfg.CallTimeout,
	}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Since(entry.timestamp) < c.ttl {
		tree := entry.tree
		c.mu.Unlock()
		return tree, nil
	}
	c.mu.Unlock()

	tree, err := traverse.BuildTree(ctx, client, root, cfg)
	if err != nil {
		return model.Node{}, err
	}

	c.mu.Lock()
	c.entries[key] = mcpCacheEntry{tree: tree, timestamp: time.Now()}
	c.mu.Unlock()

	return tree, nil
}

// invalidateAll clears the entire cache.
func (c *mcpTreeCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[mcpCacheKey]mcpCacheEntry)
}
