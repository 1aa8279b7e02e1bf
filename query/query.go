// Package query answers the composite read-side query shapes on top of
// persisted spatial hash indices.
//
// Every query runs in two stages: the index narrows the search to a
// candidate set (a superset of the true answer), then candidates are
// filtered by exact distance using positions from the trajectory data
// source. A missing index for a requested time step contributes no
// candidates and is reported, never treated as a failure.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/index"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
)

var (
	// ErrInvalidRadius is returned when an inner radius exceeds the
	// outer radius.
	ErrInvalidRadius = errors.New("inner radius must not exceed outer radius")

	// ErrInvalidTimeRange is returned when a range query starts after
	// it ends.
	ErrInvalidTimeRange = errors.New("start step must not exceed end step")

	// ErrNoPositions is returned when an engine is used without a
	// position provider.
	ErrNoPositions = errors.New("position provider is required")
)

// IndexSource hands out the loaded index for a time step. A step with
// no persisted index yields (nil, nil).
type IndexSource interface {
	IndexAt(ctx context.Context, step model.TimeStep) (*index.Index, error)
}

// PositionProvider resolves the exact position of a trajectory at a
// time step. ok is false when the trajectory has no valid sample there.
// Implementations back onto the raw trajectory data source.
type PositionProvider interface {
	Position(ctx context.Context, id model.TrajectoryID, step model.TimeStep) (pos model.Vec3, ok bool, err error)
}

// Match is one trajectory that passed exact distance filtering.
type Match struct {
	ID       model.TrajectoryID
	Distance float64
}

// PointResult is the result of a single-step radius query. IndexMissing
// distinguishes "nothing within radius" from "no index persisted for the
// step": with it set, no candidates could be considered at all.
type PointResult struct {
	// Matches is sorted by trajectory id.
	Matches []Match

	IndexMissing bool
}

// StepMatch is one in-radius sample of a trajectory.
type StepMatch struct {
	Step     model.TimeStep
	Distance float64
}

// TrajectoryHits collects a trajectory's in-radius samples over a
// queried time range.
type TrajectoryHits struct {
	ID    model.TrajectoryID
	Steps []StepMatch
}

// RangeResult is the result of a time-range query. MissingSteps lists
// requested steps without a persisted index; their samples could not be
// considered.
type RangeResult struct {
	Trajectories []TrajectoryHits
	MissingSteps []model.TimeStep
}

// DualRadiusResult partitions matches by an inner and an outer radius.
type DualRadiusResult struct {
	// Inner holds matches with distance <= the inner radius.
	Inner []Match
	// Outer holds matches with inner < distance <= outer.
	Outer []Match

	// IndexMissing reports that the step has no persisted index.
	IndexMissing bool
}

// Interaction describes one candidate trajectory's encounter with the
// moving query trajectory.
//
// Span runs from the first step the candidate was inside the radius to
// the last, as one merged interval even when the candidate left and
// re-entered in between; StepsInside counts the steps truly inside, so
// a sparse encounter (StepsInside << Span.Len()) is detectable.
type Interaction struct {
	ID          model.TrajectoryID
	Span        model.TimeRange
	StepsInside int
	MinDistance float64
}

// InteractionResult is the result of a trajectory interaction query.
type InteractionResult struct {
	Interactions []Interaction
	MissingSteps []model.TimeStep
}

// Engine evaluates queries against one index tree (one cell size).
// Engines are stateless beyond their wiring and safe for concurrent
// use.
type Engine struct {
	indexes   IndexSource
	positions PositionProvider
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over an index source and the position
// provider used for exact filtering.
func NewEngine(indexes IndexSource, positions PositionProvider, opts ...Option) *Engine {
	e := &Engine{
		indexes:   indexes,
		positions: positions,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PointRadius returns the trajectories within radius of pos at one time
// step, sorted by id. A missing index yields an empty result with
// IndexMissing set.
func (e *Engine) PointRadius(ctx context.Context, pos model.Vec3, radius float64, step model.TimeStep) (*PointResult, error) {
	if e.positions == nil {
		return nil, ErrNoPositions
	}

	ix, err := e.indexes.IndexAt(ctx, step)
	if err != nil {
		return nil, err
	}
	if ix == nil {
		e.logger.Debug("no index for time step", "step", step)
		return &PointResult{IndexMissing: true}, nil
	}

	candidates, err := ix.RadiusCandidates(ctx, pos, radius)
	if err != nil {
		return nil, err
	}

	res := &PointResult{}
	it := candidates.Iterator()
	for it.HasNext() {
		id := model.TrajectoryID(it.Next())
		p, ok, err := e.positions.Position(ctx, id, step)
		if err != nil {
			return nil, fmt.Errorf("resolve position of %d at step %d: %w", id, step, err)
		}
		if !ok {
			continue
		}
		if d := p.Dist(pos); d <= radius {
			res.Matches = append(res.Matches, Match{ID: id, Distance: d})
		}
	}
	return res, nil
}

// DualRadius gathers candidates once with the outer radius and
// partitions them by exact distance into the inner sphere and the shell
// between the radii.
func (e *Engine) DualRadius(ctx context.Context, pos model.Vec3, innerRadius, outerRadius float64, step model.TimeStep) (*DualRadiusResult, error) {
	if innerRadius > outerRadius {
		return nil, fmt.Errorf("%w: inner %g, outer %g", ErrInvalidRadius, innerRadius, outerRadius)
	}

	outer, err := e.PointRadius(ctx, pos, outerRadius, step)
	if err != nil {
		return nil, err
	}

	res := &DualRadiusResult{IndexMissing: outer.IndexMissing}
	for _, m := range outer.Matches {
		if m.Distance <= innerRadius {
			res.Inner = append(res.Inner, m)
		} else {
			res.Outer = append(res.Outer, m)
		}
	}
	return res, nil
}

// TimeRangeRadius returns, for every trajectory that comes within
// radius of pos at any step of [startStep, endStep], its in-radius
// samples. Candidates are unioned across the range's indices and each
// sample is filtered independently.
func (e *Engine) TimeRangeRadius(ctx context.Context, pos model.Vec3, radius float64, startStep, endStep model.TimeStep) (*RangeResult, error) {
	if startStep > endStep {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidTimeRange, startStep, endStep)
	}
	if e.positions == nil {
		return nil, ErrNoPositions
	}

	union, missing, err := e.unionCandidates(ctx, pos, radius, startStep, endStep)
	if err != nil {
		return nil, err
	}

	res := &RangeResult{MissingSteps: missing}
	it := union.Iterator()
	for it.HasNext() {
		id := model.TrajectoryID(it.Next())

		var hits []StepMatch
		for step := startStep; ; step++ {
			p, ok, err := e.positions.Position(ctx, id, step)
			if err != nil {
				return nil, fmt.Errorf("resolve position of %d at step %d: %w", id, step, err)
			}
			if ok {
				if d := p.Dist(pos); d <= radius {
					hits = append(hits, StepMatch{Step: step, Distance: d})
				}
			}
			if step == endStep {
				break
			}
		}
		if len(hits) > 0 {
			res.Trajectories = append(res.Trajectories, TrajectoryHits{ID: id, Steps: hits})
		}
	}
	return res, nil
}

// TrajectoryInteraction finds the trajectories that come within radius
// of the query trajectory while it moves through [startStep, endStep].
// Each reported span is merged from first entry to last exit across
// re-entries.
func (e *Engine) TrajectoryInteraction(ctx context.Context, id model.TrajectoryID, radius float64, startStep, endStep model.TimeStep) (*InteractionResult, error) {
	if startStep > endStep {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidTimeRange, startStep, endStep)
	}
	if e.positions == nil {
		return nil, ErrNoPositions
	}

	states := make(map[model.TrajectoryID]*interactionState)

	res := &InteractionResult{}
	for step := startStep; ; step++ {
		if err := e.interactionStep(ctx, id, radius, step, states, res); err != nil {
			return nil, err
		}
		if step == endStep {
			break
		}
	}

	ids := make([]model.TrajectoryID, 0, len(states))
	for cid := range states {
		ids = append(ids, cid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, cid := range ids {
		st := states[cid]
		res.Interactions = append(res.Interactions, Interaction{
			ID:          cid,
			Span:        model.TimeRange{Min: st.first, Max: st.last},
			StepsInside: st.inside,
			MinDistance: st.minDist,
		})
	}
	return res, nil
}

type interactionState struct {
	first, last model.TimeStep
	inside      int
	minDist     float64
}

func (e *Engine) interactionStep(
	ctx context.Context,
	id model.TrajectoryID,
	radius float64,
	step model.TimeStep,
	states map[model.TrajectoryID]*interactionState,
	res *InteractionResult,
) error {
	qpos, ok, err := e.positions.Position(ctx, id, step)
	if err != nil {
		return fmt.Errorf("resolve query position at step %d: %w", step, err)
	}
	if !ok {
		return nil
	}

	ix, err := e.indexes.IndexAt(ctx, step)
	if err != nil {
		return err
	}
	if ix == nil {
		e.logger.Debug("no index for time step", "step", step)
		res.MissingSteps = append(res.MissingSteps, step)
		return nil
	}

	candidates, err := ix.RadiusCandidates(ctx, qpos, radius)
	if err != nil {
		return err
	}

	it := candidates.Iterator()
	for it.HasNext() {
		cid := model.TrajectoryID(it.Next())
		if cid == id {
			continue
		}
		cpos, ok, err := e.positions.Position(ctx, cid, step)
		if err != nil {
			return fmt.Errorf("resolve position of %d at step %d: %w", cid, step, err)
		}
		if !ok {
			continue
		}
		d := cpos.Dist(qpos)
		if d > radius {
			continue
		}

		st, seen := states[cid]
		if !seen {
			states[cid] = &interactionState{first: step, last: step, inside: 1, minDist: d}
			continue
		}
		st.last = step
		st.inside++
		if d < st.minDist {
			st.minDist = d
		}
	}
	return nil
}

// unionCandidates collects the candidate union across a step range and
// the steps lacking an index.
func (e *Engine) unionCandidates(ctx context.Context, pos model.Vec3, radius float64, startStep, endStep model.TimeStep) (*roaring.Bitmap, []model.TimeStep, error) {
	union := roaring.New()
	var missing []model.TimeStep
	for step := startStep; ; step++ {
		ix, err := e.indexes.IndexAt(ctx, step)
		if err != nil {
			return nil, nil, err
		}
		if ix == nil {
			e.logger.Debug("no index for time step", "step", step)
			missing = append(missing, step)
		} else {
			c, err := ix.RadiusCandidates(ctx, pos, radius)
			if err != nil {
				return nil, nil, err
			}
			union.Or(c)
		}
		if step == endStep {
			break
		}
	}
	return union, missing, nil
}
