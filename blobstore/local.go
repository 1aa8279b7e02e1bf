package blobstore

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/internal/mmap"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/resource"
)

// LocalStore implements Store on the local file system. Blob names use
// forward slashes and map to paths below the root directory.
type LocalStore struct {
	root    string
	useMMap bool
	rc      *resource.Controller
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithMMap makes Open memory-map files instead of reading through the
// file descriptor. Useful for hot random-access reads on large files.
func WithMMap() LocalOption {
	return func(s *LocalStore) { s.useMMap = true }
}

// WithController applies rc's IO budget to blob reads and writes.
func WithController(rc *resource.Controller) LocalOption {
	return func(s *LocalStore) { s.rc = rc }
}

// NewLocalStore creates a LocalStore rooted at the given directory.
// Directories are created on demand when blobs are written.
func NewLocalStore(root string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the store's root directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	path := s.path(name)

	if s.useMMap {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		return &mappedBlob{m: m, rc: s.rc}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileBlob{f: f, size: fi.Size(), rc: s.rc}, nil
}

// Create opens a writable blob backed by a temp file in the target
// directory. Close fsyncs it and renames it into place, so readers
// never observe a partially written blob.
func (s *LocalStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	path := s.path(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	_ = tmp.Chmod(0644)

	return &localWritableBlob{
		ctx:   ctx,
		f:     tmp,
		tmp:   tmp.Name(),
		final: path,
		rc:    s.rc,
	}, nil
}

// Put writes a blob atomically via a temp file and rename.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Delete removes a blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns all blob names below the root with the given prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// fileBlob reads through a plain file descriptor.
type fileBlob struct {
	f    *os.File
	size int64
	rc   *resource.Controller
}

func (b *fileBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.f.ReadAt(p, off)
}

func (b *fileBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size {
		return nil, io.EOF
	}
	if off+length > b.size {
		length = b.size - off
	}
	var r io.Reader = io.NewSectionReader(b.f, off, length)
	if b.rc != nil {
		r = resource.NewRateLimitedReader(r, b.rc, ctx)
	}
	return io.NopCloser(r), nil
}

func (b *fileBlob) Size() int64 { return b.size }

func (b *fileBlob) Close() error { return b.f.Close() }

// mappedBlob reads from a read-only memory mapping.
type mappedBlob struct {
	m  *mmap.Mapping
	rc *resource.Controller
}

func (b *mappedBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.m.ReadAt(p, off)
}

func (b *mappedBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	data := b.m.Bytes()
	if off >= int64(len(data)) {
		return nil, io.EOF
	}
	end := off + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	var r io.Reader = bytes.NewReader(data[off:end])
	if b.rc != nil {
		r = resource.NewRateLimitedReader(r, b.rc, ctx)
	}
	return io.NopCloser(r), nil
}

func (b *mappedBlob) Size() int64 { return int64(b.m.Size()) }

func (b *mappedBlob) Close() error { return b.m.Close() }

// localWritableBlob writes to a temp file and renames it on Close.
type localWritableBlob struct {
	ctx    context.Context
	f      *os.File
	tmp    string
	final  string
	rc     *resource.Controller
	werr   error
	closed bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	if w.werr != nil {
		return 0, w.werr
	}
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		w.werr = err
		return 0, err
	}
	n, err := w.f.Write(p)
	if err != nil {
		w.werr = err
	}
	return n, err
}

func (w *localWritableBlob) Sync() error {
	if w.werr != nil {
		return w.werr
	}
	return w.f.Sync()
}

// Close publishes the blob. If any Write failed, the temp file is
// removed instead and the write error is returned.
func (w *localWritableBlob) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.werr != nil {
		_ = w.f.Close()
		_ = os.Remove(w.tmp)
		return w.werr
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(w.tmp)
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmp)
		return err
	}
	if err := os.Rename(w.tmp, w.final); err != nil {
		_ = os.Remove(w.tmp)
		return err
	}
	syncDir(filepath.Dir(w.final))
	return nil
}

// syncDir best-effort fsyncs a directory so a rename is durable on
// POSIX systems.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
