package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/resource"
)

// BlockLRU is a byte-bounded LRU implementing blobstore.BlockCache.
// It caches the blocks lazy id fetches read from index blobs, so
// repeated queries against the same cells skip the disk. Index blobs
// are immutable after publish, which keeps invalidation trivial.
type BlockLRU struct {
	maxBytes int64
	rc       *resource.Controller

	mu       sync.Mutex
	curBytes int64
	entries  map[blobstore.CacheKey]*list.Element
	lru      *list.List // front is most recently used
}

type blockEntry struct {
	key  blobstore.CacheKey
	data []byte
	// accounted marks entries whose bytes are registered with the
	// resource controller; only those release on removal.
	accounted bool
}

// NewBlockLRU creates a block cache holding at most maxBytes of block
// data. rc, if non-nil, additionally accounts the cached bytes.
func NewBlockLRU(maxBytes int64, rc *resource.Controller) *BlockLRU {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &BlockLRU{
		maxBytes: maxBytes,
		rc:       rc,
		entries:  make(map[blobstore.CacheKey]*list.Element),
		lru:      list.New(),
	}
}

// Get implements blobstore.BlockCache.
func (c *BlockLRU) Get(_ context.Context, key blobstore.CacheKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*blockEntry).data, true
}

// Set implements blobstore.BlockCache. Oversized blocks (larger than
// the whole budget) are not cached.
func (c *BlockLRU) Set(_ context.Context, key blobstore.CacheKey, b []byte) {
	size := int64(len(b))
	if size == 0 || size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.dropAccounting(elem.Value.(*blockEntry))
		c.curBytes -= int64(len(elem.Value.(*blockEntry).data))
		e := elem.Value.(*blockEntry)
		e.data = b
		e.accounted = c.rc.TryAcquireMemory(size)
		c.curBytes += size
		c.lru.MoveToFront(elem)
	} else {
		e := &blockEntry{key: key, data: b, accounted: c.rc.TryAcquireMemory(size)}
		c.entries[key] = c.lru.PushFront(e)
		c.curBytes += size
	}

	for c.curBytes > c.maxBytes {
		c.removeLocked(c.lru.Back())
	}
}

// Invalidate implements blobstore.BlockCache.
func (c *BlockLRU) Invalidate(predicate func(key blobstore.CacheKey) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for elem := c.lru.Front(); elem != nil; elem = next {
		next = elem.Next()
		if predicate(elem.Value.(*blockEntry).key) {
			c.removeLocked(elem)
		}
	}
}

// SizeBytes returns the bytes currently cached.
func (c *BlockLRU) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

func (c *BlockLRU) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	e := elem.Value.(*blockEntry)
	c.lru.Remove(elem)
	delete(c.entries, e.key)
	c.curBytes -= int64(len(e.data))
	c.dropAccounting(e)
}

func (c *BlockLRU) dropAccounting(e *blockEntry) {
	if e.accounted {
		c.rc.ReleaseMemory(int64(len(e.data)))
		e.accounted = false
	}
}
