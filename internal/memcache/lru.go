// Package memcache implements the in-memory image tiers.
package memcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"imagehub/pkg/metrics"
	"imagehub/pkg/models"
)

// Cache is a count-bounded, least-recently-used map from cache key to
// decoded image. It is safe for concurrent use.
type Cache struct {
	name  string
	cache *lru.Cache[string, *models.CachedImage]
}

// New returns a cache holding at most capacity entries. The name labels
// its eviction metric, which counts capacity evictions only.
func New(name string, capacity int) (*Cache, error) {
	c, err := lru.New[string, *models.CachedImage](capacity)
	if err != nil {
		return nil, fmt.Errorf("create %s memory cache of size %d: %w", name, capacity, err)
	}
	return &Cache{name: name, cache: c}, nil
}

func (c *Cache) Get(key string) (*models.CachedImage, bool) {
	return c.cache.Get(key)
}

// Put stores value, evicting the least recently used entry when full.
func (c *Cache) Put(key string, value *models.CachedImage) {
	if value == nil {
		return
	}
	if evicted := c.cache.Add(key, value); evicted {
		metrics.CacheEvictions.WithLabelValues(c.name).Inc()
	}
}

func (c *Cache) Clear() {
	c.cache.Purge()
}

func (c *Cache) Len() int {
	return c.cache.Len()
}
