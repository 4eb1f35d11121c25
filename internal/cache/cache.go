// Package cache provides the process-wide TTL cache fronting the
// expensive analysis operations (embedding generation, similarity
// search, prediction).
//
// Entries are keyed by content hash, expire on a time-to-live with a
// periodic sweep, and are bounded by a maximum entry count with LRU
// eviction. All operations are safe for concurrent use.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTTL is the default entry lifetime.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries bounds cache growth.
	DefaultMaxEntries = 5000
)

type entry struct {
	value        any
	expiresAt    time.Time
	lastAccessed time.Time
}

// Stats exposes cache counters for the administration surface.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

// Cache is a thread-safe in-memory TTL cache with LRU eviction.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int

	hits      uint64
	misses    uint64
	evictions uint64

	stopOnce sync.Once
	stopCh   chan struct{}

	logger  *zap.Logger
	metrics *Metrics
}

// New creates a cache and starts its background sweep goroutine.
// Call Stop to release it.
func New(ttl time.Duration, maxEntries int, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{
		entries:    make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
		logger:     logger,
		metrics:    NewMetrics(logger),
	}

	go c.sweepLoop(ttl / 2)
	return c
}

// Key builds a content-addressed cache key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		c.metrics.RecordMiss()
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		c.metrics.RecordMiss()
		c.metrics.SetSize(len(c.entries))
		return nil, false
	}

	e.lastAccessed = time.Now()
	c.hits++
	c.metrics.RecordHit()
	return e.value, true
}

// Set stores a value under key. When the cache is full and key is new,
// the least recently used entry is evicted first. Concurrent writers
// for the same key are last-writer-wins.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	now := time.Now()
	c.entries[key] = &entry{
		value:        value,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
	c.metrics.SetSize(len(c.entries))
}

// Delete removes a key; no-op if absent.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.metrics.SetSize(len(c.entries))
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.metrics.SetSize(0)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// evictLRU removes the least recently used entry. Caller holds the
// write lock.
func (c *Cache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
		c.metrics.RecordEviction()
	}
}

func (c *Cache) sweepLoop(interval time.Duration) {
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries.
func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("cache sweep", zap.Int("removed", removed), zap.Int("remaining", len(c.entries)))
		c.metrics.SetSize(len(c.entries))
	}
}
