package tool

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 5 * time.Minute
)

// cacheEntry holds a cached result along with the time it was stored.
type cacheEntry struct {
	value    any
	storedAt time.Time
}

// cachedTool decorates an idempotent tool with an LRU result cache keyed by
// the canonical JSON encoding of its arguments. Errors are never cached.
type cachedTool struct {
	Tool
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

// Cached wraps t with a result cache holding up to size entries for ttl.
// Non-positive values fall back to 256 entries and five minutes.
func Cached(t Tool, size int, ttl time.Duration) Tool {
	if size <= 0 {
		size = defaultCacheMaxSize
	}

	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return t
	}

	return &cachedTool{Tool: t, cache: cache, ttl: ttl, now: time.Now}
}

// Call implements Tool.
func (c *cachedTool) Call(ctx context.Context, args map[string]any) (any, error) {
	// encoding/json sorts map keys, which makes the key canonical
	raw, err := json.Marshal(args)
	if err != nil {
		return c.Tool.Call(ctx, args)
	}

	key := string(raw)

	if e, ok := c.cache.Get(key); ok {
		if c.now().Sub(e.storedAt) < c.ttl {
			return e.value, nil
		}

		c.cache.Remove(key)
	}

	out, err := c.Tool.Call(ctx, args)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, cacheEntry{value: out, storedAt: c.now()})

	return out, nil
}

// Cacheable reports whether the named built-in tool is idempotent.
func Cacheable(name string) bool {
	switch name {
	case NameWebSearch, NameSearchWikipedia, NameLookupDocs, NameLookupPackage:
		return true
	default:
		return false
	}
}

// WithCache wraps every cacheable tool of tools.
func WithCache(tools []Tool, size int, ttl time.Duration) []Tool {
	out := make([]Tool, len(tools))

	for i, t := range tools {
		if Cacheable(t.Name()) {
			out[i] = Cached(t, size, ttl)
			continue
		}

		out[i] = t
	}

	return out
}
