// Package index implements the spatial hash index: a read-only, sorted
// mapping from Z-order cell keys to the trajectory ids observed in that
// cell at one time step.
//
// An index is produced once by Build for a fixed (cell size, time step)
// pair, validated, persisted in a fixed little-endian layout and never
// mutated again. On load the entry table is read eagerly while the
// trajectory id payload stays on disk and is fetched per cell, which
// keeps many loaded indices cheap; WithEagerIDs trades memory for
// latency.
//
// Radius queries return candidate sets: every id inside the radius is
// included, ids from cells the sphere only grazes may be included too.
// Exact distance filtering is the caller's job.
package index
