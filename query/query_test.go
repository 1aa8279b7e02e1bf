package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/grid"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/index"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
)

type mapIndexes map[model.TimeStep]*index.Index

func (m mapIndexes) IndexAt(_ context.Context, step model.TimeStep) (*index.Index, error) {
	return m[step], nil
}

type posKey struct {
	id   model.TrajectoryID
	step model.TimeStep
}

type mapPositions map[posKey]model.Vec3

func (m mapPositions) Position(_ context.Context, id model.TrajectoryID, step model.TimeStep) (model.Vec3, bool, error) {
	p, ok := m[posKey{id, step}]
	return p, ok, nil
}

func testBox() grid.BBox {
	return grid.BBox{Min: model.Vec3{0, 0, 0}, Max: model.Vec3{100, 100, 50}}
}

// fixture builds per-step indices and the matching position provider
// from explicit positions.
func fixture(t *testing.T, cellSize float32, steps map[model.TimeStep]map[model.TrajectoryID]model.Vec3) (mapIndexes, mapPositions) {
	t.Helper()

	indexes := make(mapIndexes, len(steps))
	positions := make(mapPositions)
	for step, byID := range steps {
		var samples []model.Sample
		for id, pos := range byID {
			samples = append(samples, model.Sample{ID: id, Position: pos})
			positions[posKey{id, step}] = pos
		}
		ix, err := index.Build(step, samples, cellSize, testBox())
		require.NoError(t, err)
		indexes[step] = ix
	}
	return indexes, positions
}

func scenarioEngine(t *testing.T) *Engine {
	indexes, positions := fixture(t, 10, map[model.TimeStep]map[model.TrajectoryID]model.Vec3{
		5: {
			1: {0, 0, 0},
			2: {10, 10, 0},
			3: {1, 1, 0},
		},
	})
	return NewEngine(indexes, positions)
}

func TestPointRadius(t *testing.T) {
	e := scenarioEngine(t)
	ctx := context.Background()

	res, err := e.PointRadius(ctx, model.Vec3{0, 0, 0}, 5, 5)
	require.NoError(t, err)
	assert.False(t, res.IndexMissing)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, model.TrajectoryID(1), res.Matches[0].ID)
	assert.InDelta(t, 0, res.Matches[0].Distance, 1e-9)
	assert.Equal(t, model.TrajectoryID(3), res.Matches[1].ID)
	assert.InDelta(t, 1.4142, res.Matches[1].Distance, 1e-3)

	// Candidates from grazed cells are filtered out by exact distance:
	// id 2 shares the cube walk at radius 5 but sits ~14.1 away.
	for _, m := range res.Matches {
		assert.NotEqual(t, model.TrajectoryID(2), m.ID)
	}
}

func TestPointRadiusMissingIndex(t *testing.T) {
	e := scenarioEngine(t)

	// No index is persisted for step 99: not an error, but the result
	// says so instead of posing as an empty cell.
	res, err := e.PointRadius(context.Background(), model.Vec3{0, 0, 0}, 5, 99)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.True(t, res.IndexMissing)

	dual, err := e.DualRadius(context.Background(), model.Vec3{0, 0, 0}, 2, 5, 99)
	require.NoError(t, err)
	assert.True(t, dual.IndexMissing)
}

func TestDualRadius(t *testing.T) {
	e := scenarioEngine(t)

	res, err := e.DualRadius(context.Background(), model.Vec3{0, 0, 0}, 5, 20, 5)
	require.NoError(t, err)

	innerIDs := make([]model.TrajectoryID, 0, len(res.Inner))
	for _, m := range res.Inner {
		innerIDs = append(innerIDs, m.ID)
	}
	assert.ElementsMatch(t, []model.TrajectoryID{1, 3}, innerIDs)

	require.Len(t, res.Outer, 1)
	assert.Equal(t, model.TrajectoryID(2), res.Outer[0].ID)
	assert.InDelta(t, 14.142, res.Outer[0].Distance, 1e-3)
}

func TestDualRadiusPrecondition(t *testing.T) {
	e := scenarioEngine(t)

	_, err := e.DualRadius(context.Background(), model.Vec3{0, 0, 0}, 20, 5, 5)
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestTimeRangeRadius(t *testing.T) {
	// Trajectory 7 drifts away from the origin; trajectory 8 stays far.
	indexes, positions := fixture(t, 10, map[model.TimeStep]map[model.TrajectoryID]model.Vec3{
		0: {7: {1, 0, 0}, 8: {80, 80, 40}},
		1: {7: {4, 0, 0}, 8: {80, 80, 40}},
		2: {7: {30, 0, 0}, 8: {80, 80, 40}},
	})
	e := NewEngine(indexes, positions)

	res, err := e.TimeRangeRadius(context.Background(), model.Vec3{0, 0, 0}, 6, 0, 2)
	require.NoError(t, err)
	assert.Empty(t, res.MissingSteps)

	require.Len(t, res.Trajectories, 1)
	hits := res.Trajectories[0]
	assert.Equal(t, model.TrajectoryID(7), hits.ID)
	require.Len(t, hits.Steps, 2)
	assert.Equal(t, model.TimeStep(0), hits.Steps[0].Step)
	assert.InDelta(t, 1, hits.Steps[0].Distance, 1e-6)
	assert.Equal(t, model.TimeStep(1), hits.Steps[1].Step)
	assert.InDelta(t, 4, hits.Steps[1].Distance, 1e-6)
}

func TestTimeRangeRadiusMissingSteps(t *testing.T) {
	indexes, positions := fixture(t, 10, map[model.TimeStep]map[model.TrajectoryID]model.Vec3{
		0: {7: {1, 0, 0}},
		2: {7: {2, 0, 0}},
	})
	e := NewEngine(indexes, positions)

	res, err := e.TimeRangeRadius(context.Background(), model.Vec3{0, 0, 0}, 6, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeStep{1}, res.MissingSteps)
	require.Len(t, res.Trajectories, 1)
	// Step 1 has no index, so no candidates and no samples from it.
	require.Len(t, res.Trajectories[0].Steps, 2)
}

func TestTimeRangeRadiusPrecondition(t *testing.T) {
	e := scenarioEngine(t)
	_, err := e.TimeRangeRadius(context.Background(), model.Vec3{0, 0, 0}, 5, 3, 1)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestTrajectoryInteractionMergedSpan(t *testing.T) {
	// Query trajectory 1 sits still; candidate 2 comes close at steps
	// 0 and 3 and leaves in between. The span must merge across the
	// re-entry.
	steps := map[model.TimeStep]map[model.TrajectoryID]model.Vec3{
		0: {1: {0, 0, 0}, 2: {2, 0, 0}},
		1: {1: {0, 0, 0}, 2: {50, 0, 0}},
		2: {1: {0, 0, 0}, 2: {50, 0, 0}},
		3: {1: {0, 0, 0}, 2: {1, 0, 0}},
	}
	indexes, positions := fixture(t, 10, steps)
	e := NewEngine(indexes, positions)

	res, err := e.TrajectoryInteraction(context.Background(), 1, 5, 0, 3)
	require.NoError(t, err)

	require.Len(t, res.Interactions, 1)
	in := res.Interactions[0]
	assert.Equal(t, model.TrajectoryID(2), in.ID)
	assert.Equal(t, model.TimeRange{Min: 0, Max: 3}, in.Span)
	assert.Equal(t, 2, in.StepsInside)
	assert.InDelta(t, 1, in.MinDistance, 1e-6)
}

func TestTrajectoryInteractionExcludesSelf(t *testing.T) {
	steps := map[model.TimeStep]map[model.TrajectoryID]model.Vec3{
		0: {1: {0, 0, 0}},
		1: {1: {0, 0, 0}},
	}
	indexes, positions := fixture(t, 10, steps)
	e := NewEngine(indexes, positions)

	res, err := e.TrajectoryInteraction(context.Background(), 1, 5, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Interactions)
}

func TestTrajectoryInteractionMovingQuery(t *testing.T) {
	// The query trajectory moves toward candidate 9; they only meet
	// once the query point arrives.
	steps := map[model.TimeStep]map[model.TrajectoryID]model.Vec3{
		0: {1: {0, 0, 0}, 9: {40, 0, 0}},
		1: {1: {20, 0, 0}, 9: {40, 0, 0}},
		2: {1: {38, 0, 0}, 9: {40, 0, 0}},
	}
	indexes, positions := fixture(t, 10, steps)
	e := NewEngine(indexes, positions)

	res, err := e.TrajectoryInteraction(context.Background(), 1, 5, 0, 2)
	require.NoError(t, err)

	require.Len(t, res.Interactions, 1)
	in := res.Interactions[0]
	assert.Equal(t, model.TrajectoryID(9), in.ID)
	assert.Equal(t, model.TimeRange{Min: 2, Max: 2}, in.Span)
	assert.Equal(t, 1, in.StepsInside)
}

func TestEngineRequiresPositions(t *testing.T) {
	indexes, _ := fixture(t, 10, nil)
	e := NewEngine(indexes, nil)
	ctx := context.Background()

	_, err := e.PointRadius(ctx, model.Vec3{}, 1, 0)
	assert.ErrorIs(t, err, ErrNoPositions)
	_, err = e.TimeRangeRadius(ctx, model.Vec3{}, 1, 0, 1)
	assert.ErrorIs(t, err, ErrNoPositions)
	_, err = e.TrajectoryInteraction(ctx, 1, 1, 0, 1)
	assert.ErrorIs(t, err, ErrNoPositions)
}
