package options

import (
	"time"

	"github.com/coocood/freecache"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// DefaultCacheSize is the freecache ring buffer size in bytes.
const DefaultCacheSize = 1 << 20

// DefaultTTL bounds how long a resolved option list is reused.
const DefaultTTL = 5 * time.Minute

// Cache stores resolved option lists by cache key.
type Cache interface {
	Get(key string) ([]schema.Option, bool)
	Set(key string, options []schema.Option) error
	Del(key string)
}

// FreeCache keeps msgpack-encoded option lists in a freecache ring buffer.
type FreeCache struct {
	cache *freecache.Cache
	ttl   time.Duration
}

// NewFreeCache allocates a cache of size bytes. freecache raises sizes below
// 512KiB to that minimum. A zero ttl keeps entries until evicted.
func NewFreeCache(size int, ttl time.Duration) *FreeCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &FreeCache{cache: freecache.NewCache(size), ttl: ttl}
}

// Get implements Cache. Entries that fail to decode count as misses.
func (c *FreeCache) Get(key string) ([]schema.Option, bool) {
	raw, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	var options []schema.Option
	if err := msgpack.Unmarshal(raw, &options); err != nil {
		c.cache.Del([]byte(key))
		return nil, false
	}
	return options, true
}

// Set implements Cache.
func (c *FreeCache) Set(key string, options []schema.Option) error {
	raw, err := msgpack.Marshal(options)
	if err != nil {
		return err
	}
	return c.cache.Set([]byte(key), raw, int(c.ttl.Seconds()))
}

// Del implements Cache.
func (c *FreeCache) Del(key string) {
	c.cache.Del([]byte(key))
}

// Len reports the number of live entries.
func (c *FreeCache) Len() int64 {
	return c.cache.EntryCount()
}
