package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerMemoryLimit(t *testing.T) {
	ctx := context.Background()
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(ctx, 50))
	require.NoError(t, c.AcquireMemory(ctx, 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Over the limit: the non-blocking path refuses.
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// The blocking path waits until the budget frees up.
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(timeoutCtx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())
	require.NoError(t, c.AcquireMemory(ctx, 20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestControllerTracksWithoutLimit(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestControllerMemoryHighWater(t *testing.T) {
	ctx := context.Background()
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(ctx, 300))
	require.NoError(t, c.AcquireMemory(ctx, 200))
	c.ReleaseMemory(400)
	assert.Equal(t, int64(100), c.MemoryUsage())
	assert.Equal(t, int64(500), c.MemoryHighWater())

	// The high-water mark only moves on a new peak.
	require.NoError(t, c.AcquireMemory(ctx, 100))
	assert.Equal(t, int64(500), c.MemoryHighWater())
	require.NoError(t, c.AcquireMemory(ctx, 400))
	assert.Equal(t, int64(600), c.MemoryHighWater())

	assert.True(t, c.TryAcquireMemory(50))
	assert.Equal(t, int64(650), c.MemoryHighWater())
}

func TestControllerBackgroundSlots(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(context.Background()))
	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.False(t, c.TryAcquireBackground())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
}

func TestControllerNilIsUnlimited(t *testing.T) {
	ctx := context.Background()
	var c *Controller

	require.NoError(t, c.AcquireMemory(ctx, 1<<40))
	assert.True(t, c.TryAcquireMemory(1<<40))
	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryHighWater())

	require.NoError(t, c.AcquireBackground(ctx))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()

	require.NoError(t, c.AcquireIO(ctx, 1<<20))
}
