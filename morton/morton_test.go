package morton

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z uint32
		want    uint64
	}{
		{name: "origin", x: 0, y: 0, z: 0, want: 0},
		{name: "unit x", x: 1, y: 0, z: 0, want: 1},
		{name: "unit y", x: 0, y: 1, z: 0, want: 2},
		{name: "unit xy", x: 1, y: 1, z: 0, want: 3},
		{name: "unit z", x: 0, y: 0, z: 1, want: 4},
		{name: "unit xyz", x: 1, y: 1, z: 1, want: 7},
		{name: "x bit 1", x: 2, y: 0, z: 0, want: 8},
		{name: "full low octet", x: 7, y: 7, z: 7, want: 511},
		{name: "max corner", x: MaxCoord, y: MaxCoord, z: MaxCoord, want: 1<<63 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.x, tt.y, tt.z))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		x := rng.Uint32() & MaxCoord
		y := rng.Uint32() & MaxCoord
		z := rng.Uint32() & MaxCoord

		gx, gy, gz := Decode(Encode(x, y, z))
		require.Equal(t, x, gx)
		require.Equal(t, y, gy)
		require.Equal(t, z, gz)
	}

	// Axis extremes round-trip too.
	for _, v := range []uint32{0, 1, 2, MaxCoord - 1, MaxCoord} {
		gx, gy, gz := Decode(Encode(v, 0, MaxCoord))
		assert.Equal(t, v, gx)
		assert.Equal(t, uint32(0), gy)
		assert.Equal(t, uint32(MaxCoord), gz)
	}
}

func TestEncodeInjective(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := make(map[uint64][3]uint32, 20000)

	for i := 0; i < 20000; i++ {
		x := rng.Uint32() & MaxCoord
		y := rng.Uint32() & MaxCoord
		z := rng.Uint32() & MaxCoord

		key := Encode(x, y, z)
		if prev, ok := seen[key]; ok {
			require.Equal(t, [3]uint32{x, y, z}, prev, "key collision at %d", key)
		}
		seen[key] = [3]uint32{x, y, z}
	}
}

func TestEncodeClampsLargeCoordinates(t *testing.T) {
	assert.Equal(t, Encode(MaxCoord, 0, 0), Encode(MaxCoord+1, 0, 0))
	assert.Equal(t, Encode(0, MaxCoord, 0), Encode(0, 1<<31, 0))
	assert.Equal(t, Encode(0, 0, MaxCoord), Encode(0, 0, ^uint32(0)))

	x, y, z := Decode(Encode(^uint32(0), ^uint32(0), ^uint32(0)))
	assert.Equal(t, uint32(MaxCoord), x)
	assert.Equal(t, uint32(MaxCoord), y)
	assert.Equal(t, uint32(MaxCoord), z)
}

func TestDecodeIgnoresHighBits(t *testing.T) {
	key := Encode(12345, 678, 90123)
	x, y, z := Decode(key | 1<<63)
	assert.Equal(t, uint32(12345), x)
	assert.Equal(t, uint32(678), y)
	assert.Equal(t, uint32(90123), z)
}

func TestEncodeBitPlacement(t *testing.T) {
	// Bit k of each axis lands at bit 3k(+axis offset).
	for k := 0; k < CoordBits; k++ {
		v := uint32(1) << k
		assert.Equal(t, uint64(1)<<(3*k), Encode(v, 0, 0), "x bit %d", k)
		assert.Equal(t, uint64(1)<<(3*k+1), Encode(0, v, 0), "y bit %d", k)
		assert.Equal(t, uint64(1)<<(3*k+2), Encode(0, 0, v), "z bit %d", k)
	}
}
