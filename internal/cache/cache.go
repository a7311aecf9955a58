package cache

import (
	"sync"
	"time"
)

// TTL constants for the data classes this tool tracks
const (
	// Snapshot - parsed status reads; arrays change rarely outside of
	// sync operations
	TTLSnapshot = 2 * time.Second

	// Progress - default throttle for sync progress samples written to
	// the history database
	TTLProgress = 30 * time.Second
)

// Entry holds a cached value with expiration
type Entry struct {
	Value     interface{}
	ExpiresAt time.Time
}

// IsExpired returns true if the entry has expired
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache provides thread-safe TTL-based caching
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates a new cache instance
func New() *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves a value from cache, returns nil if expired or not found
func (c *Cache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.IsExpired() {
		return nil
	}
	return entry.Value
}

// Set stores a value with the given TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Cleanup removes expired entries so long-running callers do not
// accumulate keys for arrays that no longer exist
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range c.entries {
		if v.IsExpired() {
			delete(c.entries, k)
		}
	}
}
