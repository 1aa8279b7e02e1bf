// Package trajhash builds and queries spatial hash indices over
// particle trajectory data.
//
// A dataset holds millions of trajectories sampled at discrete time
// steps. For each configured cell size, every time step gets one
// immutable binary index file mapping Morton-encoded grid cells to the
// trajectory ids inside them. Queries use the index to narrow the
// search to candidate cells, then filter candidates by exact distance.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	st, _ := trajhash.Open(ctx, trajhash.Local("./data"),
//	    trajhash.WithPositionProvider(positions))
//	defer st.Close()
//
//	result, _ := st.Build(ctx, source, []float32{5, 10})
//	res, _ := st.PointRadius(ctx, 5, model.Vec3{10, 20, 5}, 3.0, 120)
//	for _, m := range res.Matches { ... }
//
// Cloud mode:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("datasets/run42/"))
//	st, _ := trajhash.Open(ctx, trajhash.Remote(s3Store),
//	    trajhash.WithPositionProvider(positions),
//	    trajhash.WithBlockCache(64<<20))
//
// # Construction
//
// Build runs a two-pass pipeline: a metadata scan establishes the
// global time range and bounding box, then shards are processed in
// fixed-size batch groups so peak memory stays independent of the
// dataset size. Identical inputs produce byte-identical index files.
//
// # Queries
//
// Four query shapes are supported, all read-only and safe for
// concurrent use:
//
//   - PointRadius: trajectories within a radius of a point at one step
//   - DualRadius: one pass partitioned by an inner and outer radius
//   - TimeRangeRadius: per-step in-radius samples over a step range
//   - TrajectoryInteraction: trajectories approaching a moving
//     trajectory over a step range
//
// Index files answer with candidate supersets; exact distances come
// from the PositionProvider, which backs onto the raw trajectory data.
// A missing index for a time step contributes no candidates and is
// reported, never treated as a failure.
package trajhash
