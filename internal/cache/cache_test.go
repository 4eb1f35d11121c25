package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(5*time.Minute, 100, nil)
	defer c.Stop()

	c.Set("k", []float32{1, 2, 3})

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestCache_GetMissing(t *testing.T) {
	c := New(5*time.Minute, 100, nil)
	defer c.Stop()

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New(50*time.Millisecond, 100, nil)
	defer c.Stop()

	c.Set("k", "v")
	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be expired")
}

func TestCache_MaxEntriesEvictsLRU(t *testing.T) {
	c := New(5*time.Minute, 3, nil)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)

	_, ok = c.Get("b")
	assert.False(t, ok, "LRU entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCache_Stats(t *testing.T) {
	c := New(5*time.Minute, 100, nil)
	defer c.Stop()

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("nope")

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_Clear(t *testing.T) {
	c := New(5*time.Minute, 100, nil)
	defer c.Stop()

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	require.Equal(t, 5, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := New(5*time.Minute, 100, nil)
	defer c.Stop()

	c.Set("old", 1)
	c.mu.Lock()
	c.entries["old"].expiresAt = time.Now().Add(-time.Second)
	c.mu.Unlock()

	c.sweep()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(5*time.Minute, 1000, nil)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := Key("worker", fmt.Sprintf("%d-%d", n, j%10))
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("a", "b"), Key("ab"))
	assert.NotEqual(t, Key("a", "b"), Key("b", "a"))
}
