package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/resource"
)

func blockKey(path string, block int64) blobstore.CacheKey {
	return blobstore.CacheKey{Path: path, Block: block}
}

func TestBlockLRUGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewBlockLRU(1024, nil)

	_, ok := c.Get(ctx, blockKey("a", 0))
	assert.False(t, ok)

	c.Set(ctx, blockKey("a", 0), []byte("hello"))
	got, ok := c.Get(ctx, blockKey("a", 0))
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), got)
	assert.Equal(t, int64(5), c.SizeBytes())

	// Overwrite replaces, not accumulates.
	c.Set(ctx, blockKey("a", 0), []byte("hi"))
	got, _ = c.Get(ctx, blockKey("a", 0))
	assert.Equal(t, []byte("hi"), got)
	assert.Equal(t, int64(2), c.SizeBytes())
}

func TestBlockLRUEvictsColdest(t *testing.T) {
	ctx := context.Background()
	c := NewBlockLRU(10, nil)

	c.Set(ctx, blockKey("a", 0), []byte("aaaa"))
	c.Set(ctx, blockKey("b", 0), []byte("bbbb"))

	// Touch "a" so "b" is the cold one.
	_, _ = c.Get(ctx, blockKey("a", 0))

	c.Set(ctx, blockKey("c", 0), []byte("cccc"))
	assert.LessOrEqual(t, c.SizeBytes(), int64(10))

	_, ok := c.Get(ctx, blockKey("b", 0))
	assert.False(t, ok, "cold block should be evicted")
	_, ok = c.Get(ctx, blockKey("a", 0))
	assert.True(t, ok)
}

func TestBlockLRUOversized(t *testing.T) {
	ctx := context.Background()
	c := NewBlockLRU(4, nil)

	c.Set(ctx, blockKey("big", 0), []byte("too large"))
	_, ok := c.Get(ctx, blockKey("big", 0))
	assert.False(t, ok)
	assert.Zero(t, c.SizeBytes())
}

func TestBlockLRUInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewBlockLRU(1024, nil)

	c.Set(ctx, blockKey("keep", 0), []byte("k"))
	c.Set(ctx, blockKey("drop", 0), []byte("d"))
	c.Set(ctx, blockKey("drop", 1), []byte("d"))

	c.Invalidate(func(key blobstore.CacheKey) bool { return key.Path == "drop" })

	_, ok := c.Get(ctx, blockKey("keep", 0))
	assert.True(t, ok)
	_, ok = c.Get(ctx, blockKey("drop", 0))
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.SizeBytes())
}

func TestBlockLRUControllerAccounting(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{})
	c := NewBlockLRU(1024, rc)

	c.Set(ctx, blockKey("a", 0), []byte("12345678"))
	assert.Equal(t, int64(8), rc.MemoryUsage())

	c.Invalidate(func(blobstore.CacheKey) bool { return true })
	assert.Zero(t, rc.MemoryUsage())
}
