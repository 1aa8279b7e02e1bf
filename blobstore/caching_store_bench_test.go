package blobstore_test

import (
	"context"
	"io"
	"testing"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/cache"
)

type countingStore struct {
	readCount int
}

func (s *countingStore) Open(context.Context, string) (blobstore.Blob, error) {
	return &countingBlob{store: s, size: 1 << 20}, nil
}

func (s *countingStore) Create(context.Context, string) (blobstore.WritableBlob, error) {
	return nil, nil
}
func (s *countingStore) Put(context.Context, string, []byte) error { return nil }
func (s *countingStore) Delete(context.Context, string) error      { return nil }
func (s *countingStore) List(context.Context, string) ([]string, error) {
	return nil, nil
}

type countingBlob struct {
	store *countingStore
	size  int64
}

func (b *countingBlob) ReadAt(_ context.Context, p []byte, _ int64) (int, error) {
	b.store.readCount++
	clear(p)
	return len(p), nil
}

func (b *countingBlob) ReadRange(context.Context, int64, int64) (io.ReadCloser, error) {
	return nil, nil
}
func (b *countingBlob) Size() int64  { return b.size }
func (b *countingBlob) Close() error { return nil }

func TestCachingStoreCoalescing(t *testing.T) {
	inner := &countingStore{}
	store := blobstore.NewCachingStore(inner, cache.NewBlockLRU(1<<20, nil), 1024)

	ctx := context.Background()
	blob, err := store.Open(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}

	// A 10 block cold read should coalesce into one backend read.
	buf := make([]byte, 10*1024)
	if _, err := blob.ReadAt(ctx, buf, 0); err != nil {
		t.Fatal(err)
	}
	if inner.readCount != 1 {
		t.Fatalf("readCount = %d, want 1", inner.readCount)
	}
}

func BenchmarkCachingBlobReadAt(b *testing.B) {
	inner := &countingStore{}
	store := blobstore.NewCachingStore(inner, cache.NewBlockLRU(1<<20, nil), 4096)

	ctx := context.Background()
	blob, _ := store.Open(ctx, "bench")

	buf := make([]byte, 16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		off := int64(i%1024) * 1024
		if _, err := blob.ReadAt(ctx, buf, off); err != nil {
			b.Fatal(err)
		}
	}
}
