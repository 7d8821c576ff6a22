package secrets

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache.
type Cache[T any] struct {
	mu    sync.RWMutex
	data  map[string]cacheItem[T]
	ttl   time.Duration
	clock clockwork.Clock
}

// NewCache creates a cache whose entries live for ttl. A nil clock means the real clock.
func NewCache[T any](ttl time.Duration, clock clockwork.Clock) *Cache[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache[T]{data: make(map[string]cacheItem[T]), ttl: ttl, clock: clock}
}

// Get returns the value for key if present and unexpired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(item.expiresAt) {
		c.Bust(key)
		return zero, false
	}
	return item.value, true
}

func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheItem[T]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Bust removes key, e.g. after a rejected login.
func (c *Cache[T]) Bust(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
