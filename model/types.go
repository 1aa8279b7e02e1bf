package model

import (
	"fmt"
	"math"
)

// TrajectoryID is the stable, user-facing identifier of a trajectory.
// It never changes across time steps or index rebuilds.
type TrajectoryID uint32

// TimeStep is a discrete simulation time index.
type TimeStep uint32

// Vec3 is a position in world space.
type Vec3 [3]float32

// String returns a string representation of the position.
func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

// HasNaN reports whether any component is NaN.
func (v Vec3) HasNaN() bool {
	return math.IsNaN(float64(v[0])) || math.IsNaN(float64(v[1])) || math.IsNaN(float64(v[2]))
}

// DistSquared returns the squared Euclidean distance to o.
// The accumulation runs in float64 so radius comparisons stay stable
// near the boundary.
func (v Vec3) DistSquared(o Vec3) float64 {
	dx := float64(v[0]) - float64(o[0])
	dy := float64(v[1]) - float64(o[1])
	dz := float64(v[2]) - float64(o[2])
	return dx*dx + dy*dy + dz*dz
}

// Dist returns the Euclidean distance to o.
func (v Vec3) Dist(o Vec3) float64 {
	return math.Sqrt(v.DistSquared(o))
}

// Sample is one trajectory observation at one time step.
type Sample struct {
	ID       TrajectoryID
	Position Vec3
}

// TimeRange is an inclusive range of time steps.
type TimeRange struct {
	Min TimeStep
	Max TimeStep
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t TimeStep) bool {
	return t >= r.Min && t <= r.Max
}

// Len returns the number of steps covered by the range.
func (r TimeRange) Len() int {
	if r.Max < r.Min {
		return 0
	}
	return int(r.Max-r.Min) + 1
}

// Union returns the smallest range covering both r and o.
func (r TimeRange) Union(o TimeRange) TimeRange {
	if o.Min < r.Min {
		r.Min = o.Min
	}
	if o.Max > r.Max {
		r.Max = o.Max
	}
	return r
}

// String returns a string representation of the range.
func (r TimeRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}
