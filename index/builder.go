package index

import (
	"fmt"
	"sort"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/persistence"
)

// Build aggregates the samples of one time step into an index.
//
// Samples are bucketed by the Z-order key of their cell, the distinct
// keys are sorted, and the buckets are flattened in key order into one
// contiguous id array. Within a bucket, ids keep their input order, so
// the output bytes are a pure function of the input sequence and
// identical inputs rebuild identical files.
//
// An empty sample slice yields a valid zero-entry index; an empty time
// step is legitimate. A non-positive cell size is rejected before any
// sample is touched.
func Build(step model.TimeStep, samples []model.Sample, cellSize float32, box grid.BBox) (*Index, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidCellSize, cellSize)
	}

	g := grid.New(box, cellSize)

	buckets := make(map[uint64][]uint32)
	for _, s := range samples {
		key := g.WorldToCell(s.Position).Key()
		buckets[key] = append(buckets[key], uint32(s.ID))
	}

	keys := make([]uint64, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	entries := make([]persistence.Entry, 0, len(keys))
	ids := make([]uint32, 0, len(samples))
	for _, key := range keys {
		bucket := buckets[key]
		entries = append(entries, persistence.Entry{
			Key:   key,
			Start: uint32(len(ids)),
			Count: uint32(len(bucket)),
		})
		ids = append(ids, bucket...)
	}

	ix := &Index{
		header: persistence.Header{
			Magic:            persistence.Magic,
			Version:          persistence.Version,
			TimeStep:         uint32(step),
			CellSize:         cellSize,
			BBoxMin:          box.Min,
			BBoxMax:          box.Max,
			NumEntries:       uint32(len(entries)),
			NumTrajectoryIDs: uint32(len(ids)),
		},
		entries: entries,
		grid:    g,
		ids:     ids,
	}
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	return ix, nil
}
