package district

import (
	"testing"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/stretchr/testify/assert"
)

func TestCache_Capacity(t *testing.T) {
	c := NewCache(CacheConfig{Capacity: 2})

	c.Set("a", parkwatch.DistrictLookup{District: "Cetate", Found: true})
	c.Set("b", parkwatch.DistrictLookup{})
	c.Set("c", parkwatch.DistrictLookup{District: "Fabric", Found: true})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("c")
	assert.False(t, ok)

	// Existing keys can still be refreshed when full.
	c.Set("b", parkwatch.DistrictLookup{District: "Mehala", Found: true})
	got, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "Mehala", got.District)
}

func TestCache_TTL(t *testing.T) {
	c := NewCache(CacheConfig{TTL: 20 * time.Millisecond, Capacity: 1})

	c.Set("a", parkwatch.DistrictLookup{District: "Cetate", Found: true})
	_, ok := c.Get("a")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)

	// The expired entry no longer counts against capacity.
	c.Set("b", parkwatch.DistrictLookup{District: "Fabric", Found: true})
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCache_NotFoundIsAHit(t *testing.T) {
	c := NewCache(CacheConfig{})
	c.Set("k", parkwatch.DistrictLookup{})

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.False(t, got.Found)
}
