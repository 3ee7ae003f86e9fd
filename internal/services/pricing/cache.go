// Package pricing caches the item catalog. The cache is an injected
// component with its own TTL, not a process-wide singleton; every stake
// valuation goes through it instead of hitting the items table.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/callzzzz333/mm2-arena/internal/repos/items"
)

type Cache struct {
	repo items.Items
	ttl  time.Duration

	mu        sync.Mutex
	byID      map[int64]items.Item
	catalog   []items.Item
	fetchedAt time.Time
}

func NewCache(repo items.Items, ttl time.Duration) *Cache {
	return &Cache{repo: repo, ttl: ttl}
}

// Item returns one catalog entry, refreshing the cache when stale.
func (c *Cache) Item(ctx context.Context, itemID int64) (*items.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.refreshLocked(ctx)
	if err != nil {
		return nil, err
	}

	it, ok := c.byID[itemID]
	if !ok {
		return nil, items.ErrItemNotFound
	}

	return &it, nil
}

// Catalog returns the full item list, refreshing when stale. The returned
// slice is shared; callers must not mutate it.
func (c *Cache) Catalog(ctx context.Context) ([]items.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.refreshLocked(ctx)
	if err != nil {
		return nil, err
	}

	return c.catalog, nil
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	if c.byID != nil && time.Since(c.fetchedAt) < c.ttl {
		return nil
	}

	all, err := c.repo.ListAll(ctx)
	if err != nil {
		// Serve the stale copy if there is one rather than failing the
		// settlement for a catalog hiccup.
		if c.byID != nil {
			return nil
		}

		return fmt.Errorf("refresh price cache: %w", err)
	}

	byID := make(map[int64]items.Item, len(all))
	for _, it := range all {
		byID[it.ID] = it
	}

	c.byID = byID
	c.catalog = all
	c.fetchedAt = time.Now()

	return nil
}
