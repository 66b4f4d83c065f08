package cache

import (
	"sync"
	"time"
)

// Cache is a small in-process TTL map. Expired entries are purged by the
// write path at most once per TTL, so keys that are never read again do not
// accumulate.
type Cache[V any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	m         map[string]entry[V]
	now       func() time.Time
	nextSweep time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache[V]{
		ttl: ttl,
		m:   make(map[string]entry[V]),
		now: time.Now,
	}
}

// Update applies fn to the current value (zero if missing or expired) and
// stores the result with a fresh TTL, atomically.
func (c *Cache[V]) Update(key string, fn func(cur V) V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	var cur V
	if e, ok := c.m[key]; ok && !now.After(e.exp) {
		cur = e.val
	}
	c.m[key] = entry[V]{val: fn(cur), exp: now.Add(c.ttl)}
}

// Take returns the live value for key and removes it.
func (c *Cache[V]) Take(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.m[key]
	if !ok {
		return zero, false
	}
	delete(c.m, key)

	if c.now().After(e.exp) {
		return zero, false
	}
	return e.val, true
}

func (c *Cache[V]) sweepLocked(now time.Time) {
	if now.Before(c.nextSweep) {
		return
	}

	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
		}
	}
	c.nextSweep = now.Add(c.ttl)
}
