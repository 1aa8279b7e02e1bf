package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/persistence"
)

var (
	// ErrInvalidCellSize is returned when an index is built or validated
	// with a non-positive cell size.
	ErrInvalidCellSize = errors.New("cell size must be positive")

	// ErrUnsortedEntries is returned when entry keys are not strictly
	// ascending. Binary search is only valid on a sorted entry table.
	ErrUnsortedEntries = errors.New("entries not strictly ascending by key")

	// ErrEntryOutOfRange is returned when an entry addresses ids beyond
	// the trajectory id section.
	ErrEntryOutOfRange = errors.New("entry range exceeds trajectory id count")

	// ErrCountMismatch is returned when header counts disagree with the
	// actual section lengths.
	ErrCountMismatch = errors.New("header counts do not match section lengths")

	// ErrClosed is returned when a lazy index is used after Close.
	ErrClosed = errors.New("index is closed")
)

// Index is a read-only spatial hash index for one (cell size, time step)
// pair. Instances come from Build or Load and are never mutated after
// that; all methods are safe for concurrent use.
type Index struct {
	header  persistence.Header
	entries []persistence.Entry
	grid    grid.Grid

	// Exactly one of ids/blob is set: ids in eager mode, blob in lazy
	// mode where trajectory ids are fetched from disk per cell.
	ids  []uint32
	blob blobstore.Blob

	closed bool
}

// TimeStep returns the time step the index covers.
func (ix *Index) TimeStep() model.TimeStep { return model.TimeStep(ix.header.TimeStep) }

// CellSize returns the grid cell size the index was built with.
func (ix *Index) CellSize() float32 { return ix.header.CellSize }

// BBox returns the bounding box the index was built with.
func (ix *Index) BBox() grid.BBox {
	return grid.BBox{Min: ix.header.BBoxMin, Max: ix.header.BBoxMax}
}

// Grid returns the cell lattice of the index. Queries against this index
// must use this grid; cells from any other grid are not comparable.
func (ix *Index) Grid() grid.Grid { return ix.grid }

// NumEntries returns the number of occupied cells.
func (ix *Index) NumEntries() int { return len(ix.entries) }

// NumTrajectoryIDs returns the total number of stored trajectory ids.
func (ix *Index) NumTrajectoryIDs() int { return int(ix.header.NumTrajectoryIDs) }

// Lazy reports whether trajectory ids are fetched from disk per cell.
func (ix *Index) Lazy() bool { return ix.blob != nil }

// Entry returns the i-th entry. The caller must keep i within
// [0, NumEntries).
func (ix *Index) Entry(i int) persistence.Entry { return ix.entries[i] }

// FindEntry locates the entry for a Z-order key by binary search.
// ok is false if no cell with that key is occupied.
func (ix *Index) FindEntry(key uint64) (i int, ok bool) {
	i = sort.Search(len(ix.entries), func(j int) bool {
		return ix.entries[j].Key >= key
	})
	if i < len(ix.entries) && ix.entries[i].Key == key {
		return i, true
	}
	return 0, false
}

// TrajectoryIDsAt returns the trajectory ids owned by the i-th entry.
// In eager mode this is a sub-slice of the resident id array and must be
// treated as read-only; in lazy mode it is freshly read from the backing
// blob.
func (ix *Index) TrajectoryIDsAt(ctx context.Context, i int) ([]uint32, error) {
	if i < 0 || i >= len(ix.entries) {
		return nil, fmt.Errorf("entry index %d out of range [0, %d)", i, len(ix.entries))
	}
	e := ix.entries[i]

	if ix.ids != nil {
		return ix.ids[e.Start : e.Start+e.Count], nil
	}
	if ix.closed {
		return nil, ErrClosed
	}

	buf := make([]byte, int(e.Count)*persistence.IDSize)
	off := persistence.IDOffset(ix.header.NumEntries, e.Start)
	if _, err := ix.blob.ReadAt(ctx, buf, off); err != nil {
		return nil, fmt.Errorf("read trajectory ids: %w", err)
	}
	return persistence.DecodeIDs(buf), nil
}

// QueryAtPosition returns the trajectory ids stored in the cell
// containing pos, or an empty slice if that cell is unoccupied.
func (ix *Index) QueryAtPosition(ctx context.Context, pos model.Vec3) ([]model.TrajectoryID, error) {
	i, ok := ix.FindEntry(ix.grid.WorldToCell(pos).Key())
	if !ok {
		return nil, nil
	}
	raw, err := ix.TrajectoryIDsAt(ctx, i)
	if err != nil {
		return nil, err
	}
	out := make([]model.TrajectoryID, len(raw))
	for j, id := range raw {
		out[j] = model.TrajectoryID(id)
	}
	return out, nil
}

// RadiusCandidates returns the de-duplicated set of trajectory ids from
// every occupied cell the sphere around center can touch. The result is
// a superset of the ids truly within radius: cells intersecting the
// bounding cube but not the sphere contribute false positives, which the
// caller must filter by exact distance.
func (ix *Index) RadiusCandidates(ctx context.Context, center model.Vec3, radius float64) (*roaring.Bitmap, error) {
	out := roaring.New()
	r := ix.grid.CellRangeAround(center, radius)

	for cz := r.Min.Z; cz <= r.Max.Z; cz++ {
		for cy := r.Min.Y; cy <= r.Max.Y; cy++ {
			for cx := r.Min.X; cx <= r.Max.X; cx++ {
				i, ok := ix.FindEntry(grid.Cell{X: cx, Y: cy, Z: cz}.Key())
				if !ok {
					continue
				}
				ids, err := ix.TrajectoryIDsAt(ctx, i)
				if err != nil {
					return nil, err
				}
				out.AddMany(ids)
			}
		}
	}
	return out, nil
}

// Validate checks the structural invariants: positive cell size, header
// counts matching the section lengths, strictly ascending entry keys and
// every entry range inside the id section. Build and Load both validate;
// callers only need Validate for indices of unknown provenance.
func (ix *Index) Validate() error {
	if ix.header.Magic != persistence.Magic {
		return fmt.Errorf("%w: got 0x%08x", persistence.ErrInvalidMagic, ix.header.Magic)
	}
	if ix.header.Version != persistence.Version {
		return fmt.Errorf("%w: got %d", persistence.ErrInvalidVersion, ix.header.Version)
	}
	if !(ix.header.CellSize > 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidCellSize, ix.header.CellSize)
	}
	if int(ix.header.NumEntries) != len(ix.entries) {
		return fmt.Errorf("%w: header says %d entries, have %d",
			ErrCountMismatch, ix.header.NumEntries, len(ix.entries))
	}
	if ix.ids != nil && int(ix.header.NumTrajectoryIDs) != len(ix.ids) {
		return fmt.Errorf("%w: header says %d ids, have %d",
			ErrCountMismatch, ix.header.NumTrajectoryIDs, len(ix.ids))
	}
	if ix.blob != nil {
		want := persistence.FileSize(ix.header.NumEntries, ix.header.NumTrajectoryIDs)
		if ix.blob.Size() != want {
			return fmt.Errorf("%w: file is %d bytes, layout needs %d",
				ErrCountMismatch, ix.blob.Size(), want)
		}
	}

	var prev uint64
	for i, e := range ix.entries {
		if i > 0 && e.Key <= prev {
			return fmt.Errorf("%w: entry %d key %d after %d", ErrUnsortedEntries, i, e.Key, prev)
		}
		prev = e.Key

		end := uint64(e.Start) + uint64(e.Count)
		if end > uint64(ix.header.NumTrajectoryIDs) {
			return fmt.Errorf("%w: entry %d covers [%d, %d) of %d",
				ErrEntryOutOfRange, i, e.Start, end, ix.header.NumTrajectoryIDs)
		}
	}
	return nil
}

// Stats returns a snapshot of the index shape, for logs and metrics.
func (ix *Index) Stats() Stats {
	s := Stats{
		TimeStep:         ix.TimeStep(),
		CellSize:         ix.header.CellSize,
		NumEntries:       len(ix.entries),
		NumTrajectoryIDs: int(ix.header.NumTrajectoryIDs),
		Lazy:             ix.blob != nil,
	}
	s.ResidentBytes = int64(persistence.HeaderSize) + int64(len(ix.entries))*persistence.EntrySize
	if ix.ids != nil {
		s.ResidentBytes += int64(len(ix.ids)) * persistence.IDSize
	}
	return s
}

// Close releases the backing blob of a lazy index. Eager indices have
// nothing to release. Close is idempotent.
func (ix *Index) Close() error {
	if ix.closed || ix.blob == nil {
		ix.closed = true
		return nil
	}
	ix.closed = true
	return ix.blob.Close()
}

// Stats describes the shape and residency of an index.
type Stats struct {
	TimeStep         model.TimeStep
	CellSize         float32
	NumEntries       int
	NumTrajectoryIDs int
	ResidentBytes    int64
	Lazy             bool
}
