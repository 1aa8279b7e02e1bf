// Package shard defines the interface to the trajectory sample source.
//
// The raw data lives in externally owned shard files, each covering a
// contiguous block of time steps. This package only describes the shape
// of loaded shard data and ships an in-memory source for tests and
// embedding callers; file formats and loading belong to the
// collaborator that owns the data.
package shard

import (
	"context"
	"fmt"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
)

// Trajectory is one trajectory's samples within a shard's step range.
type Trajectory struct {
	ID model.TrajectoryID

	// Positions holds one position per step of the shard's range.
	Positions []model.Vec3

	// Valid marks usable positions. A nil Valid means every position is
	// usable. Positions with a NaN component are skipped regardless.
	Valid []bool
}

// Shard is the fully loaded contents of one shard file.
type Shard struct {
	// Start is the first time step the shard covers.
	Start model.TimeStep

	// Steps is the number of consecutive time steps covered.
	Steps int

	Trajectories []Trajectory
}

// Range returns the inclusive time-step range the shard covers.
func (s *Shard) Range() model.TimeRange {
	if s.Steps <= 0 {
		return model.TimeRange{Min: s.Start, Max: s.Start}
	}
	return model.TimeRange{Min: s.Start, Max: s.Start + model.TimeStep(s.Steps-1)}
}

// SizeBytes estimates the resident size of the loaded shard, used for
// memory budget accounting.
func (s *Shard) SizeBytes() int64 {
	var n int64
	for _, tr := range s.Trajectories {
		n += 8 + int64(len(tr.Positions))*12 + int64(len(tr.Valid))
	}
	return n
}

// Samples calls fn for every valid sample at the given time step.
// Samples outside the shard's range, flagged invalid or containing a
// NaN component are skipped.
func (s *Shard) Samples(step model.TimeStep, fn func(model.Sample)) {
	if step < s.Start {
		return
	}
	i := int(step - s.Start)
	if i >= s.Steps {
		return
	}
	for _, tr := range s.Trajectories {
		if i >= len(tr.Positions) {
			continue
		}
		if tr.Valid != nil && (i >= len(tr.Valid) || !tr.Valid[i]) {
			continue
		}
		p := tr.Positions[i]
		if p.HasNaN() {
			continue
		}
		fn(model.Sample{ID: tr.ID, Position: p})
	}
}

// Source yields shards on demand. Loading is the expensive part; the
// construction pipeline bounds how many loaded shards are alive at
// once, so implementations should not cache loaded data themselves.
type Source interface {
	// NumShards returns how many shards the source holds.
	NumShards() int

	// Load reads shard i fully into memory.
	Load(ctx context.Context, i int) (*Shard, error)
}

// MemorySource is a Source over pre-built shards. It is meant for tests
// and callers whose data already lives in memory.
type MemorySource struct {
	shards []*Shard
}

// NewMemorySource creates a MemorySource.
func NewMemorySource(shards ...*Shard) *MemorySource {
	return &MemorySource{shards: shards}
}

// NumShards implements Source.
func (m *MemorySource) NumShards() int { return len(m.shards) }

// Load implements Source.
func (m *MemorySource) Load(_ context.Context, i int) (*Shard, error) {
	if i < 0 || i >= len(m.shards) {
		return nil, fmt.Errorf("shard %d out of range [0, %d)", i, len(m.shards))
	}
	return m.shards[i], nil
}
