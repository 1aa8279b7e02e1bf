package index

import (
	"context"
	"fmt"
	"io"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/persistence"
)

// Save validates the index and writes it to the store under name,
// atomically: a reader either sees the complete file or none at all.
// Save requires an eager index; loaded lazy indices are already
// persisted.
func (ix *Index) Save(ctx context.Context, store blobstore.Store, name string) error {
	if ix.ids == nil && ix.header.NumTrajectoryIDs > 0 {
		return fmt.Errorf("save %s: index is lazy, ids are not resident", name)
	}
	if err := ix.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := persistence.WriteIndex(w, ix.header, ix.entries, ix.ids); err != nil {
		_ = w.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	eagerIDs bool
}

// WithEagerIDs makes Load read the trajectory id section into memory and
// release the backing blob. The default keeps ids on disk and fetches
// them per queried cell.
func WithEagerIDs() LoadOption {
	return func(o *loadOptions) { o.eagerIDs = true }
}

// Load opens a persisted index. The header and entry table are read and
// validated eagerly; trajectory ids stay on disk unless WithEagerIDs is
// given. The returned index owns the blob in lazy mode and must be
// closed.
func Load(ctx context.Context, store blobstore.Store, name string, opts ...LoadOption) (*Index, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	ix, err := loadFromBlob(ctx, blob, o)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return ix, nil
}

func loadFromBlob(ctx context.Context, blob blobstore.Blob, o loadOptions) (*Index, error) {
	headLen := int64(persistence.HeaderSize)
	rc, err := blob.ReadRange(ctx, 0, headLen)
	if err != nil {
		return nil, err
	}
	r := persistence.NewIndexReader(rc)
	header, err := r.ReadHeader()
	_ = rc.Close()
	if err != nil {
		return nil, err
	}

	var entries []persistence.Entry
	if header.NumEntries > 0 {
		length := int64(header.NumEntries) * persistence.EntrySize
		rc, err := blob.ReadRange(ctx, persistence.EntriesOffset, length)
		if err != nil {
			return nil, fmt.Errorf("read entries: %w", err)
		}
		entries, err = persistence.NewIndexReader(rc).ReadEntries(int(header.NumEntries))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entries: %w", err)
		}
	}

	ix := &Index{
		header:  header,
		entries: entries,
		grid:    gridFromHeader(header),
		blob:    blob,
	}
	if err := ix.Validate(); err != nil {
		return nil, err
	}

	if !o.eagerIDs {
		return ix, nil
	}

	if header.NumTrajectoryIDs > 0 {
		length := int64(header.NumTrajectoryIDs) * persistence.IDSize
		rc, err := blob.ReadRange(ctx, persistence.IDsOffset(header.NumEntries), length)
		if err != nil {
			return nil, fmt.Errorf("read trajectory ids: %w", err)
		}
		ids, err := persistence.NewIndexReader(rc).ReadIDs(int(header.NumTrajectoryIDs))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read trajectory ids: %w", err)
		}
		ix.ids = ids
	} else {
		ix.ids = []uint32{}
	}

	// Eager indices never touch the blob again.
	ix.blob = nil
	if err := blob.Close(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Read parses a complete index from a stream into an eager index.
// Useful when the file already sits in a buffer; Load is the usual path.
func Read(r io.Reader) (*Index, error) {
	ir := persistence.NewIndexReader(r)
	header, err := ir.ReadHeader()
	if err != nil {
		return nil, err
	}
	entries, err := ir.ReadEntries(int(header.NumEntries))
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	ids, err := ir.ReadIDs(int(header.NumTrajectoryIDs))
	if err != nil {
		return nil, fmt.Errorf("read trajectory ids: %w", err)
	}
	if ids == nil {
		ids = []uint32{}
	}

	ix := &Index{
		header:  header,
		entries: entries,
		grid:    gridFromHeader(header),
		ids:     ids,
	}
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	return ix, nil
}
