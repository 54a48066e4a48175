// Package cache provides a bounded, time-expiring cache used to memoise
// upstream search responses.
package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultTTL        = 12 * time.Hour
	defaultMaxEntries = 1024
)

// TTL is a string-keyed cache whose entries expire after a fixed duration and
// whose size never exceeds maxEntries. Safe for concurrent use.
type TTL[V any] struct {
	mu         sync.Mutex
	items      *gocache.Cache
	ttl        time.Duration
	maxEntries int
}

// New builds a cache. Non-positive arguments fall back to 12h and 1024 entries.
func New[V any](ttl time.Duration, maxEntries int) *TTL[V] {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &TTL[V]{
		items:      gocache.New(ttl, ttl/2),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the live value stored under key.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	raw, ok := c.items.Get(normalizeKey(key))
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	return value, ok
}

// Set stores value under key. When the cache is full, expired entries are
// purged first and then the entry closest to expiry is evicted.
func (c *TTL[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	key = normalizeKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.maxEntries {
		c.items.DeleteExpired()
		if c.items.ItemCount() >= c.maxEntries {
			c.evictOldest()
		}
	}
	c.items.Set(key, value, c.ttl)
}

func (c *TTL[V]) evictOldest() {
	var (
		oldestKey string
		oldestAt  int64
	)
	for key, item := range c.items.Items() {
		if oldestKey == "" || item.Expiration < oldestAt {
			oldestKey = key
			oldestAt = item.Expiration
		}
	}
	if oldestKey != "" {
		c.items.Delete(oldestKey)
	}
}

// Delete removes key if present.
func (c *TTL[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.items.Delete(normalizeKey(key))
}

// Len counts live entries.
func (c *TTL[V]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items.Items())
}

// Flush drops every entry.
func (c *TTL[V]) Flush() {
	if c == nil {
		return
	}
	c.items.Flush()
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
