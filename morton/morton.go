// Package morton implements the Z-order (Morton) key codec used to
// address grid cells.
//
// A key interleaves the bits of three cell coordinates: bit 3k of the
// key holds bit k of x, bit 3k+1 holds bit k of y, bit 3k+2 holds bit k
// of z. Keys therefore occupy the low 63 bits of a uint64 and sort in
// Z-order, which approximates spatial proximity without guaranteeing it.
package morton

// CoordBits is the number of bits encoded per axis.
const CoordBits = 21

// MaxCoord is the largest coordinate value that survives encoding
// unchanged. Larger inputs saturate to MaxCoord.
const MaxCoord = 1<<CoordBits - 1

// Encode interleaves three cell coordinates into a single Z-order key.
// Coordinates above MaxCoord are clamped to MaxCoord, never wrapped.
// Encode is injective over [0, MaxCoord]³.
func Encode(x, y, z uint32) uint64 {
	return part1By2(clamp(x)) | part1By2(clamp(y))<<1 | part1By2(clamp(z))<<2
}

// Decode recovers the three cell coordinates from a Z-order key.
// Bits above 3*CoordBits are ignored.
func Decode(key uint64) (x, y, z uint32) {
	return uint32(compact1By2(key)), uint32(compact1By2(key >> 1)), uint32(compact1By2(key >> 2))
}

func clamp(v uint32) uint64 {
	if v > MaxCoord {
		return MaxCoord
	}
	return uint64(v)
}

// part1By2 spreads the low 21 bits of x so that two zero bits separate
// each original bit.
func part1By2(x uint64) uint64 {
	x &= 0x1fffff
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	x = (x | x<<2) & 0x1249249249249249
	return x
}

// compact1By2 inverts part1By2.
func compact1By2(x uint64) uint64 {
	x &= 0x1249249249249249
	x = (x ^ x>>2) & 0x10c30c30c30c30c3
	x = (x ^ x>>4) & 0x100f00f00f00f00f
	x = (x ^ x>>8) & 0x1f0000ff0000ff
	x = (x ^ x>>16) & 0x1f00000000ffff
	x = (x ^ x>>32) & 0x1fffff
	return x
}
