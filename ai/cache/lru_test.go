package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_SetGet(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh "a" so "b" is the eviction candidate
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)

	c.SetWithTTL("short", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	c := NewLRUCache[string, int](4, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(30 * time.Millisecond)
	c.SetWithTTL("c", 3, time.Minute)

	removed := c.CleanupExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_RemoveAndClear(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)

	c.Set("a", 1)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))

	c.Set("b", 2)
	c.Set("c", 3)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_Overwrite(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}
