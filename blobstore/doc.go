// Package blobstore provides storage abstraction for persisted index
// trees.
//
// Store is the interface for reading and writing immutable blobs
// (index files, manifests). Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem, atomic publish via rename, with
//     optional mmap reads
//   - MemoryStore: In-memory, for tests and ephemeral datasets
//   - minio.Store: MinIO/S3-compatible object storage with range reads
//   - s3.Store: Amazon S3 with range reads and managed uploads
//
// # Caching
//
// CachingStore wraps any Store with block-level read caching. Lazy
// per-cell id fetches hit the same few regions of an index file
// repeatedly, so a small block cache removes most backend reads on
// remote stores.
//
// # Custom Implementations
//
// Implement the Store interface to support custom backends. For cloud
// backends, implement ReadRange with ranged requests so partial file
// loads avoid full downloads.
package blobstore
