// Package cache is a keyed, TTL-based read-through memo for the bulk
// collection fetches.
//
// Two callers missing the same key at once may both run the producer; the
// last to finish wins the slot. Re-reading the source is idempotent, so the
// race costs a duplicate fetch and nothing else.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long a stored value stays fresh.
const DefaultTTL = 5 * time.Minute

// Observer is notified of lookups; metrics hang off this.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache holds one entry per logical key. The zero value is not usable; call New.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  map[string]entry
	now      func() time.Time
	observer Observer
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver installs a hit/miss observer.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New creates a cache whose entries live for ttl. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the current time-to-live.
func (c *Cache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

// SetTTL changes the time-to-live for values stored from now on.
func (c *Cache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Invalidate drops the named keys, or every key when none are given.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		clear(c.entries)
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Cached returns the fresh value under key, or runs producer, stores its
// result, and returns it. Producer errors are returned and nothing is stored.
func Cached[T any](ctx context.Context, c *Cache, key string, producer func(context.Context) (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		if typed, ok := v.(T); ok {
			if c.observer != nil {
				c.observer.CacheHit(key)
			}
			return typed, nil
		}
	}
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}

	v, err := producer(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("cache %s: %w", key, err)
	}
	c.set(key, v)
	return v, nil
}
