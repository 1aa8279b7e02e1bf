package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/morton"
)

func TestWorldToCell(t *testing.T) {
	g := Grid{Min: model.Vec3{0, 0, 0}, CellSize: 10}

	tests := []struct {
		name string
		pos  model.Vec3
		want Cell
	}{
		{name: "origin", pos: model.Vec3{0, 0, 0}, want: Cell{0, 0, 0}},
		{name: "inside first cell", pos: model.Vec3{1, 1, 0}, want: Cell{0, 0, 0}},
		{name: "cell boundary", pos: model.Vec3{10, 10, 0}, want: Cell{1, 1, 0}},
		{name: "just below boundary", pos: model.Vec3{9.999, 0, 0}, want: Cell{0, 0, 0}},
		{name: "negative pins to zero", pos: model.Vec3{-5, -25, 3}, want: Cell{0, 0, 0}},
		{name: "mixed axes", pos: model.Vec3{35, 7, 110}, want: Cell{3, 0, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.WorldToCell(tt.pos))
		})
	}
}

func TestWorldToCellOffsetOrigin(t *testing.T) {
	g := Grid{Min: model.Vec3{-100, -100, -100}, CellSize: 10}

	assert.Equal(t, Cell{10, 10, 10}, g.WorldToCell(model.Vec3{0, 0, 0}))
	assert.Equal(t, Cell{0, 0, 0}, g.WorldToCell(model.Vec3{-100, -95, -91}))
}

func TestWorldToCellDegenerateInputs(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	g := Grid{Min: model.Vec3{0, 0, 0}, CellSize: 10}

	// NaN components pin to coordinate 0 on their axis.
	assert.Equal(t, Cell{0, 2, 0}, g.WorldToCell(model.Vec3{nan, 25, nan}))

	// Overflowing coordinates saturate instead of wrapping.
	c := g.WorldToCell(model.Vec3{inf, 1e30, -inf})
	assert.Equal(t, Cell{morton.MaxCoord, morton.MaxCoord, 0}, c)

	// Degenerate cell sizes collapse everything into cell (0,0,0).
	for _, size := range []float32{0, -1, nan} {
		bad := Grid{Min: model.Vec3{0, 0, 0}, CellSize: size}
		assert.Equal(t, Cell{}, bad.WorldToCell(model.Vec3{123, 456, 789}), "cellSize=%v", size)
	}
}

func TestCellKeyRoundTrip(t *testing.T) {
	c := Cell{X: 1, Y: 1, Z: 0}
	require.Equal(t, uint64(3), c.Key())
	assert.Equal(t, c, CellFromKey(c.Key()))
}

func TestCellRadius(t *testing.T) {
	g := Grid{CellSize: 10}

	assert.Equal(t, uint32(0), g.CellRadius(0))
	assert.Equal(t, uint32(1), g.CellRadius(0.1))
	assert.Equal(t, uint32(1), g.CellRadius(10))
	assert.Equal(t, uint32(2), g.CellRadius(10.5))
	assert.Equal(t, uint32(5), g.CellRadius(50))
	assert.Equal(t, uint32(morton.MaxCoord), g.CellRadius(1e30))
	assert.Equal(t, uint32(0), g.CellRadius(math.NaN()))
}

func TestCellRangeAround(t *testing.T) {
	g := Grid{Min: model.Vec3{0, 0, 0}, CellSize: 10}

	r := g.CellRangeAround(model.Vec3{55, 55, 55}, 20)
	assert.Equal(t, Cell{3, 3, 3}, r.Min)
	assert.Equal(t, Cell{7, 7, 7}, r.Max)
	assert.Equal(t, uint64(125), r.Count())

	// Near the lattice origin the cube is clipped, not wrapped.
	r = g.CellRangeAround(model.Vec3{5, 5, 5}, 25)
	assert.Equal(t, Cell{0, 0, 0}, r.Min)
	assert.Equal(t, Cell{3, 3, 3}, r.Max)

	assert.True(t, r.Contains(Cell{0, 3, 1}))
	assert.False(t, r.Contains(Cell{4, 0, 0}))
}

func TestBBoxExtend(t *testing.T) {
	b := NewBBox()
	require.True(t, b.Empty())

	b = b.Extend(model.Vec3{1, 2, 3})
	require.False(t, b.Empty())
	assert.Equal(t, model.Vec3{1, 2, 3}, b.Min)
	assert.Equal(t, model.Vec3{1, 2, 3}, b.Max)

	b = b.Extend(model.Vec3{-1, 5, 0})
	assert.Equal(t, model.Vec3{-1, 2, 0}, b.Min)
	assert.Equal(t, model.Vec3{1, 5, 3}, b.Max)

	// NaN positions do not poison the fold.
	nan := float32(math.NaN())
	b = b.Extend(model.Vec3{nan, 100, 100})
	assert.Equal(t, model.Vec3{1, 5, 3}, b.Max)
}

func TestBBoxUnion(t *testing.T) {
	a := BBox{Min: model.Vec3{0, 0, 0}, Max: model.Vec3{1, 1, 1}}
	b := BBox{Min: model.Vec3{-1, 0.5, 0}, Max: model.Vec3{0.5, 2, 1}}

	u := a.Union(b)
	assert.Equal(t, model.Vec3{-1, 0, 0}, u.Min)
	assert.Equal(t, model.Vec3{1, 2, 1}, u.Max)

	assert.Equal(t, a, a.Union(NewBBox()))
	assert.Equal(t, a, NewBBox().Union(a))
}

func TestBBoxExpand(t *testing.T) {
	b := BBox{Min: model.Vec3{0, 0, 5}, Max: model.Vec3{10, 100, 5}}
	e := b.Expand(0.1)

	assert.InDelta(t, -1, e.Min[0], 1e-6)
	assert.InDelta(t, 11, e.Max[0], 1e-6)
	assert.InDelta(t, -10, e.Min[1], 1e-6)
	assert.InDelta(t, 110, e.Max[1], 1e-6)

	// Zero-extent axes still gain padding.
	assert.InDelta(t, 4.9, e.Min[2], 1e-6)
	assert.InDelta(t, 5.1, e.Max[2], 1e-6)

	assert.True(t, NewBBox().Expand(0.1).Empty())
	assert.Equal(t, b, b.Expand(0))
}

func TestEstimateBBox(t *testing.T) {
	nan := float32(math.NaN())
	samples := []model.Sample{
		{ID: 1, Position: model.Vec3{0, 0, 0}},
		{ID: 2, Position: model.Vec3{10, 10, 0}},
		{ID: 3, Position: model.Vec3{1, 1, 0}},
		{ID: 4, Position: model.Vec3{nan, 1e9, 1e9}},
	}

	b := EstimateBBox(samples, 0)
	assert.Equal(t, model.Vec3{0, 0, 0}, b.Min)
	assert.Equal(t, model.Vec3{10, 10, 0}, b.Max)

	assert.True(t, EstimateBBox(nil, 0.05).Empty())
}
