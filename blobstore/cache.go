package blobstore

import "context"

// CacheKey identifies one cached block of a blob.
type CacheKey struct {
	// Path is the blob name within the store.
	Path string
	// Block is the block index (byte offset / block size).
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blob blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)

	// Set caches a block. Implementations may copy or retain; the
	// caller must treat b as immutable afterwards.
	Set(ctx context.Context, key CacheKey, b []byte)

	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key CacheKey) bool)
}
