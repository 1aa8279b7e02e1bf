package grid

import (
	"math"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
)

// BBox is an axis-aligned bounding box in world space.
// The zero value is empty; use Extend or NewBBox to populate it.
type BBox struct {
	Min model.Vec3
	Max model.Vec3
}

// NewBBox returns an empty box ready for folding positions.
func NewBBox() BBox {
	inf := float32(math.Inf(1))
	return BBox{
		Min: model.Vec3{inf, inf, inf},
		Max: model.Vec3{-inf, -inf, -inf},
	}
}

// Empty reports whether the box has absorbed no position yet.
func (b BBox) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend folds a position into the box. Positions with a NaN component
// are ignored.
func (b BBox) Extend(p model.Vec3) BBox {
	if p.HasNaN() {
		return b
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	if o.Empty() {
		return b
	}
	if b.Empty() {
		return o
	}
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] {
			b.Min[i] = o.Min[i]
		}
		if o.Max[i] > b.Max[i] {
			b.Max[i] = o.Max[i]
		}
	}
	return b
}

// Contains reports whether p lies inside the box (inclusive).
func (b BBox) Contains(p model.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Expand grows the box by margin times its extent on each side of each
// axis. Axes with zero extent grow by the margin itself so a degenerate
// box still gains padding. Empty boxes are returned unchanged.
func (b BBox) Expand(margin float64) BBox {
	if b.Empty() || !(margin > 0) {
		return b
	}
	for i := 0; i < 3; i++ {
		extent := float64(b.Max[i]) - float64(b.Min[i])
		pad := margin * extent
		if extent == 0 {
			pad = margin
		}
		b.Min[i] = float32(float64(b.Min[i]) - pad)
		b.Max[i] = float32(float64(b.Max[i]) + pad)
	}
	return b
}

// EstimateBBox folds every sample position into one box and expands it
// by margin. The result is meant to be computed once per construction
// run and shared by every time step: cell coordinates from different
// indices are only comparable when they share the same box and cell
// size.
func EstimateBBox(samples []model.Sample, margin float64) BBox {
	b := NewBBox()
	for _, s := range samples {
		b = b.Extend(s.Position)
	}
	return b.Expand(margin)
}
