package utils

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// TTLCache is a bounded LRU whose entries also expire after a fixed TTL.
// Purge bumps a generation so values loaded before it can be refused.
type TTLCache[V any] struct {
	lru *lru.Cache[string, cacheItem[V]]
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	gen uint64
}

// NewTTLCache panics only when size is not positive.
func NewTTLCache[V any](size int, ttl time.Duration) *TTLCache[V] {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		panic(err)
	}
	return &TTLCache[V]{lru: l, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

func (c *TTLCache[V]) Set(key string, data V) {
	c.lru.Add(key, cacheItem[V]{data: data, expiresAt: c.now().Add(c.ttl)})
}

// Get returns the cached value unless it is missing or expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	item, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return item.data, true
}

func (c *TTLCache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *TTLCache[V]) Purge() {
	c.mu.Lock()
	c.gen++
	c.lru.Purge()
	c.mu.Unlock()
}

// Generation is read before loading a value for SetIfCurrent.
func (c *TTLCache[V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfCurrent stores data only if no Purge happened since gen was read.
func (c *TTLCache[V]) SetIfCurrent(key string, data V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.Set(key, data)
	return true
}
