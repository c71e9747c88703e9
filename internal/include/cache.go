package include

import (
	"bytes"
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheEntries = 256

// MemoryCache memoises hits of an inner Fetcher in process. Misses and
// errors are not cached, so a header published later is picked up by the
// next build.
type MemoryCache struct {
	inner Fetcher
	cache *lru.Cache[string, []byte]
}

// NewMemoryCache wraps inner with an LRU of at most entries items.
func NewMemoryCache(inner Fetcher, entries int) (*MemoryCache, error) {
	if entries <= 0 {
		entries = defaultCacheEntries
	}
	cache, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{inner: inner, cache: cache}, nil
}

func (c *MemoryCache) Fetch(ctx context.Context, name string) ([]byte, error) {
	if data, ok := c.cache.Get(name); ok {
		return bytes.Clone(data), nil
	}
	data, err := c.inner.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, bytes.Clone(data))
	return data, nil
}

// Len returns the number of cached names.
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}
