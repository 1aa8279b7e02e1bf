package trajhash

import (
	"context"
	"time"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/query"
)

// PointRadius returns the trajectories within radius of pos at one
// time step, using the index tree built for cellSize. Results are
// sorted by trajectory id. A time step without a persisted index
// yields an empty result with IndexMissing set.
func (s *Store) PointRadius(ctx context.Context, cellSize float32, pos model.Vec3, radius float64, step model.TimeStep) (*query.PointResult, error) {
	start := time.Now()
	e, err := s.engine(cellSize)
	if err != nil {
		return nil, err
	}

	res, err := e.PointRadius(ctx, pos, radius, step)
	err = translateError(err)
	results := 0
	if res != nil {
		results = len(res.Matches)
	}
	s.opts.metricsCollector.RecordQuery("point_radius", results, time.Since(start), err)
	s.opts.logger.LogQuery(ctx, "point_radius", results, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DualRadius gathers candidates once with the outer radius and
// partitions them by exact distance into the inner sphere and the
// shell between the radii.
func (s *Store) DualRadius(ctx context.Context, cellSize float32, pos model.Vec3, innerRadius, outerRadius float64, step model.TimeStep) (*query.DualRadiusResult, error) {
	start := time.Now()
	e, err := s.engine(cellSize)
	if err != nil {
		return nil, err
	}

	res, err := e.DualRadius(ctx, pos, innerRadius, outerRadius, step)
	err = translateError(err)
	results := 0
	if res != nil {
		results = len(res.Inner) + len(res.Outer)
	}
	s.opts.metricsCollector.RecordQuery("dual_radius", results, time.Since(start), err)
	s.opts.logger.LogQuery(ctx, "dual_radius", results, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TimeRangeRadius returns, for every trajectory that comes within
// radius of pos during [startStep, endStep], its in-radius samples.
// Steps without a persisted index are listed on the result and
// contribute nothing.
func (s *Store) TimeRangeRadius(ctx context.Context, cellSize float32, pos model.Vec3, radius float64, startStep, endStep model.TimeStep) (*query.RangeResult, error) {
	start := time.Now()
	e, err := s.engine(cellSize)
	if err != nil {
		return nil, err
	}

	res, err := e.TimeRangeRadius(ctx, pos, radius, startStep, endStep)
	err = translateError(err)
	results := 0
	if res != nil {
		results = len(res.Trajectories)
	}
	s.opts.metricsCollector.RecordQuery("time_range_radius", results, time.Since(start), err)
	s.opts.logger.LogQuery(ctx, "time_range_radius", results, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TrajectoryInteraction finds the trajectories that come within radius
// of trajectory id while it moves through [startStep, endStep]. Each
// reported span is merged from first entry to last exit across
// re-entries.
func (s *Store) TrajectoryInteraction(ctx context.Context, cellSize float32, id model.TrajectoryID, radius float64, startStep, endStep model.TimeStep) (*query.InteractionResult, error) {
	start := time.Now()
	e, err := s.engine(cellSize)
	if err != nil {
		return nil, err
	}

	res, err := e.TrajectoryInteraction(ctx, id, radius, startStep, endStep)
	err = translateError(err)
	results := 0
	if res != nil {
		results = len(res.Interactions)
	}
	s.opts.metricsCollector.RecordQuery("trajectory_interaction", results, time.Since(start), err)
	s.opts.logger.LogQuery(ctx, "trajectory_interaction", results, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}
