// Package model defines core types shared across the module.
//
// # Identity Types
//
//   - TrajectoryID: Stable, user-facing trajectory identifier (uint32)
//   - TimeStep: Discrete simulation time index (uint32)
//
// # Data Types
//
//   - Vec3: Position in world space (3×float32)
//   - Sample: One trajectory observation at one time step
//   - TimeRange: Inclusive range of time steps
//
// Distances are accumulated in float64 (see Vec3.DistSquared) so that
// radius comparisons do not flip near the boundary for large coordinates.
package model
