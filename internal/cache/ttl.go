package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// entry is a single cached value with its expiry
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a size-bounded cache whose entries expire after a fixed duration.
// When the cache grows past maxSize the entries closest to expiry go first.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]entry[V]
	now     func() time.Time

	// Statistics
	hits      int64
	misses    int64
	evictions int64
}

// NewTTL creates a cache with the given ttl and capacity
func NewTTL[V any](ttl time.Duration, maxSize int) *TTL[V] {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &TTL[V]{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the value for key if present and not expired
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if e.expiresAt.Before(c.now()) {
		delete(c.items, key)
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key, replacing any previous entry
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	c.trim(now)
}

// Len returns the number of stored entries, expired ones included
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// trim drops expired entries, then the soonest-expiring ones over capacity.
// Caller holds mu.
func (c *TTL[V]) trim(now time.Time) {
	for k, e := range c.items {
		if e.expiresAt.Before(now) {
			delete(c.items, k)
		}
	}

	over := len(c.items) - c.maxSize
	if over <= 0 {
		return
	}

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.items[keys[i]].expiresAt.Before(c.items[keys[j]].expiresAt)
	})
	for _, k := range keys[:over] {
		delete(c.items, k)
		c.evictions++
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
	Capacity  int
}

// Stats returns current cache statistics
func (c *TTL[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Items:     len(c.items),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Capacity:  c.maxSize,
	}
}

// NormQuery lowercases q, trims it and collapses inner whitespace
func NormQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
