package cache

import (
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

func (e memoryEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// MemoryCache is the in-process L1 level. Entries expire lazily on
// access; a zero TTL keeps an entry until it is deleted or replaced.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	metrics *CacheMetrics
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		metrics: NewCacheMetrics(),
	}
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.metrics.RecordSet()
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		c.metrics.RecordMiss()
		return nil, false
	}

	if entry.expired() {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		c.metrics.RecordEviction()
		c.metrics.RecordMiss()
		return nil, false
	}

	c.metrics.RecordHit()
	return entry.value, true
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.metrics.RecordDelete()
}

// DeletePattern removes every key matching pattern. Patterns are the
// key namespaces used by the task cache: a literal key, or a prefix
// followed by "*".
func (c *MemoryCache) DeletePattern(pattern string) {
	prefix, wildcard := strings.CutSuffix(pattern, "*")

	c.mu.Lock()
	for key := range c.entries {
		if key == pattern || (wildcard && strings.HasPrefix(key, prefix)) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	c.metrics.RecordDelete()
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

func (c *MemoryCache) Stats() map[string]interface{} {
	stats := c.metrics.GetStats()

	return map[string]interface{}{
		"entries":   c.Len(),
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"sets":      stats.Sets,
		"deletes":   stats.Deletes,
		"evictions": stats.Evictions,
		"hit_rate":  c.metrics.HitRate(),
	}
}
