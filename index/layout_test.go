package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahlertfr/trajectory-spatialhash-sub000/blobstore"
	"github.com/kahlertfr/trajectory-spatialhash-sub000/model"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "spatial_hashing/cellsize_10.000/timestep_00005.bin", FileName(10, 5))
	assert.Equal(t, "spatial_hashing/cellsize_0.250/timestep_12345.bin", FileName(0.25, 12345))
	assert.Equal(t, "spatial_hashing/cellsize_2.500/timestep_99999.bin", FileName(2.5, 99999))
}

func TestParseTimeStep(t *testing.T) {
	step, ok := ParseTimeStep("spatial_hashing/cellsize_10.000/timestep_00042.bin")
	require.True(t, ok)
	assert.Equal(t, model.TimeStep(42), step)

	step, ok = ParseTimeStep("timestep_00000.bin")
	require.True(t, ok)
	assert.Equal(t, model.TimeStep(0), step)

	for _, name := range []string{
		"spatial_hashing/cellsize_10.000/manifest.json",
		"timestep_.bin",
		"something_else",
	} {
		_, ok := ParseTimeStep(name)
		assert.False(t, ok, name)
	}
}

func TestListTimeSteps(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	for _, step := range []model.TimeStep{7, 0, 3} {
		ix, err := Build(step, nil, 10, testBox())
		require.NoError(t, err)
		require.NoError(t, ix.Save(ctx, store, FileName(10, step)))
	}
	// A different cell size must not leak into the listing.
	other, err := Build(1, nil, 5, testBox())
	require.NoError(t, err)
	require.NoError(t, other.Save(ctx, store, FileName(5, 1)))

	steps, err := ListTimeSteps(ctx, store, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeStep{0, 3, 7}, steps)
}
