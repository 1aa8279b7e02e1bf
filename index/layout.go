package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/persistence"
)

// RootDir is the directory holding all spatial hash data below a
// dataset root.
const RootDir = "spatial_hashing"

// CellSizeDir returns the blob name prefix for one cell size, e.g.
// "spatial_hashing/cellsize_10.000/".
func CellSizeDir(cellSize float32) string {
	return fmt.Sprintf("%s/cellsize_%.3f/", RootDir, cellSize)
}

// FileName returns the blob name of the index for one
// (cell size, time step) pair, e.g.
// "spatial_hashing/cellsize_10.000/timestep_00005.bin".
func FileName(cellSize float32, step model.TimeStep) string {
	return fmt.Sprintf("%stimestep_%05d.bin", CellSizeDir(cellSize), step)
}

// ParseTimeStep extracts the time step from an index blob name.
// ok is false for names that do not follow the FileName convention.
func ParseTimeStep(name string) (step model.TimeStep, ok bool) {
	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}
	var s uint32
	if _, err := fmt.Sscanf(base, "timestep_%05d.bin", &s); err != nil {
		return 0, false
	}
	return model.TimeStep(s), true
}

// ListTimeSteps returns the sorted time steps that have a persisted
// index for the given cell size.
func ListTimeSteps(ctx context.Context, store blobstore.Store, cellSize float32) ([]model.TimeStep, error) {
	names, err := store.List(ctx, CellSizeDir(cellSize))
	if err != nil {
		return nil, err
	}
	steps := make([]model.TimeStep, 0, len(names))
	for _, name := range names {
		if step, ok := ParseTimeStep(name); ok {
			steps = append(steps, step)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return steps, nil
}

func gridFromHeader(h persistence.Header) grid.Grid {
	return grid.Grid{Min: h.BBoxMin, CellSize: h.CellSize}
}
