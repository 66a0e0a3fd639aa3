package district

import (
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/patrickmn/go-cache"
)

var _ parkwatch.DistrictCache = (*Cache)(nil)

// CacheConfig bounds the district cache. A zero TTL keeps entries for the
// life of the process; a zero Capacity never refuses an entry.
type CacheConfig struct {
	TTL      time.Duration
	Capacity int
}

// Cache is an in-memory DistrictCache safe for concurrent use.
type Cache struct {
	items    *cache.Cache
	capacity int
}

func NewCache(cfg CacheConfig) *Cache {
	ttl, cleanup := cache.NoExpiration, time.Duration(0)
	if cfg.TTL > 0 {
		ttl, cleanup = cfg.TTL, cfg.TTL
	}
	return &Cache{
		items:    cache.New(ttl, cleanup),
		capacity: cfg.Capacity,
	}
}

func (c *Cache) Get(key string) (parkwatch.DistrictLookup, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return parkwatch.DistrictLookup{}, false
	}
	return v.(parkwatch.DistrictLookup), true
}

// Set stores lookup under key. When the cache is full, expired entries are
// purged first; if it is still full the new entry is dropped and existing
// keys are only overwritten.
func (c *Cache) Set(key string, lookup parkwatch.DistrictLookup) {
	if c.capacity > 0 && c.items.ItemCount() >= c.capacity {
		if _, exists := c.items.Get(key); !exists {
			c.items.DeleteExpired()
			if c.items.ItemCount() >= c.capacity {
				return
			}
		}
	}
	c.items.SetDefault(key, lookup)
}

// Len returns the number of cached keys, expired ones included until the
// next cleanup.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

func (c *Cache) Flush() {
	c.items.Flush()
}
