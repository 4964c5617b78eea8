package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string](time.Minute, 0)
	defer c.Shutdown()

	c.Set("/docs/a", "url-a")

	got, ok := c.Get("/docs/a")
	assert.True(t, ok)
	assert.Equal(t, "url-a", got)

	_, ok = c.Get("/docs/missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New[int](10*time.Millisecond, 0)
	defer c.Shutdown()

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_BoundEvictsOldest(t *testing.T) {
	c := New[int](time.Minute, 2)
	defer c.Shutdown()

	c.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	c.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	c.Set("third", 3)

	_, ok := c.Get("first")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_Delete(t *testing.T) {
	c := New[int](time.Minute, 0)
	defer c.Shutdown()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a", "nope")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCache_Sweep(t *testing.T) {
	c := New[int](10*time.Millisecond, 0)
	defer c.Shutdown()

	c.Set("old", 1)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 2)

	removed := c.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}
