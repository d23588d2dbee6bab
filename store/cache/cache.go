package cache

import (
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Config holds the in-process cache settings.
type Config struct {
	// DefaultTTL is applied to every entry. Zero means entries never expire.
	DefaultTTL time.Duration
	// MaxItems bounds the number of cached entries.
	MaxItems int64
}

// Cache is a bounded TTL cache keyed by string.
// Writes are visible to the next Get on return.
type Cache struct {
	config Config
	cache  *ristretto.Cache
}

// New creates a new cache. It never fails: a ristretto setup error leaves the
// cache disabled and every lookup misses.
func New(config Config) *Cache {
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.MaxItems * 10,
		MaxCost:     config.MaxItems,
		BufferItems: 64,
	})
	if err != nil {
		slog.Warn("cache disabled", slog.String("error", err.Error()))
		return &Cache{config: config}
	}
	return &Cache{config: config, cache: c}
}

func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	c.cache.SetWithTTL(key, value, 1, ttl)
	c.cache.Wait()
}

func (c *Cache) Get(key string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Cache) Delete(key string) {
	if c.cache == nil {
		return
	}
	c.cache.Del(key)
}

func (c *Cache) Clear() {
	if c.cache == nil {
		return
	}
	c.cache.Clear()
}

func (c *Cache) Close() {
	if c.cache == nil {
		return
	}
	c.cache.Close()
}
