// Package grid maps world positions onto the integer cell lattice
// addressed by Z-order keys.
//
// A Grid is defined by a bounding box origin and a cell size. Cell
// coordinates are clamped to the codec's 21-bit range, so the mapping
// is total: out-of-box, non-finite and degenerate inputs all land on
// the lattice instead of failing.
package grid

import (
	"math"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/morton"
)

// Cell identifies one grid cell by its integer coordinates.
type Cell struct {
	X, Y, Z uint32
}

// Key returns the Z-order key of the cell.
func (c Cell) Key() uint64 {
	return morton.Encode(c.X, c.Y, c.Z)
}

// CellFromKey recovers the cell addressed by a Z-order key.
func CellFromKey(key uint64) Cell {
	x, y, z := morton.Decode(key)
	return Cell{X: x, Y: y, Z: z}
}

// Grid converts world positions into cells for one (origin, cell size)
// pair. Cells are only comparable across indices built with the same
// Min and CellSize.
type Grid struct {
	Min      model.Vec3
	CellSize float32
}

// New creates a Grid anchored at the bounding box minimum.
func New(box BBox, cellSize float32) Grid {
	return Grid{Min: box.Min, CellSize: cellSize}
}

// WorldToCell maps a world position to the containing cell.
// A non-positive or NaN cell size yields cell (0,0,0). On each axis,
// positions below the origin and NaN components map to coordinate 0,
// positions beyond the lattice saturate at the maximum coordinate.
func (g Grid) WorldToCell(p model.Vec3) Cell {
	if !(g.CellSize > 0) {
		return Cell{}
	}
	return Cell{
		X: cellCoord(p[0], g.Min[0], g.CellSize),
		Y: cellCoord(p[1], g.Min[1], g.CellSize),
		Z: cellCoord(p[2], g.Min[2], g.CellSize),
	}
}

func cellCoord(p, origin, size float32) uint32 {
	f := math.Floor(float64(p-origin) / float64(size))
	// Negative and NaN both fail this comparison and pin to 0.
	if !(f > 0) {
		return 0
	}
	if f >= morton.MaxCoord {
		return morton.MaxCoord
	}
	return uint32(f)
}

// CellRadius returns how many cells a sphere of the given radius can
// reach from its center cell along one axis.
func (g Grid) CellRadius(radius float64) uint32 {
	if !(g.CellSize > 0) || !(radius > 0) {
		return 0
	}
	r := math.Ceil(radius / float64(g.CellSize))
	if r >= morton.MaxCoord {
		return morton.MaxCoord
	}
	return uint32(r)
}

// CellRange is an inclusive axis-aligned block of cells.
type CellRange struct {
	Min, Max Cell
}

// Count returns the number of cells in the range.
func (r CellRange) Count() uint64 {
	return uint64(r.Max.X-r.Min.X+1) * uint64(r.Max.Y-r.Min.Y+1) * uint64(r.Max.Z-r.Min.Z+1)
}

// Contains reports whether c lies within the range.
func (r CellRange) Contains(c Cell) bool {
	return c.X >= r.Min.X && c.X <= r.Max.X &&
		c.Y >= r.Min.Y && c.Y <= r.Max.Y &&
		c.Z >= r.Min.Z && c.Z <= r.Max.Z
}

// CellRangeAround returns the cube of cells reachable from center
// within radius, clamped to the lattice. The cube covers every cell the
// sphere can intersect; it usually also covers cells the sphere misses.
func (g Grid) CellRangeAround(center model.Vec3, radius float64) CellRange {
	c := g.WorldToCell(center)
	cr := g.CellRadius(radius)

	var r CellRange
	r.Min.X, r.Max.X = clampSpan(c.X, cr)
	r.Min.Y, r.Max.Y = clampSpan(c.Y, cr)
	r.Min.Z, r.Max.Z = clampSpan(c.Z, cr)
	return r
}

func clampSpan(center, radius uint32) (lo, hi uint32) {
	if center > radius {
		lo = center - radius
	}
	hi = center + radius
	if hi < center || hi > morton.MaxCoord {
		hi = morton.MaxCoord
	}
	return lo, hi
}
