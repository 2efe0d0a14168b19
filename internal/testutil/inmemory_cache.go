package testutil

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryCache is a plain map-backed cache.Cache for tests. It is always
// enabled and ignores expirations; entries live until deleted or flushed.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]interface{}
}

// NewInMemoryCache creates a new in-memory test cache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{items: make(map[string]interface{})}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.items[key]
	return value, ok
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]interface{})
}
