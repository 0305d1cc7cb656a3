package cache

import (
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the process-local level. Expired entries are dropped
// lazily on Get and swept whenever the map grows past sweepThreshold,
// so an idle process never runs a background goroutine for it.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

const sweepThreshold = 1024

func NewMemoryCache() Cache {
	return &MemoryCache{
		entries: make(map[string]entry),
	}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

func (c *MemoryCache) Set(key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= sweepThreshold {
		c.sweep()
	}
	c.entries[key] = entry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	return nil
}

// sweep drops every expired entry. Caller holds the lock.
func (c *MemoryCache) sweep() {
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
