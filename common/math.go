package common

import (
	"cmp"
	"math"
)

// / Returns the square of the value.
func Sqr[T IT](a T) T {
	return a * a
}

// / Returns the absolute value.
func Abs[T IT](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// / Clamps the value to the specified range.
func Clamp[T cmp.Ordered](value, minInclusive, maxInclusive T) T {
	if value < minInclusive {
		return minInclusive
	}
	if value > maxInclusive {
		return maxInclusive
	}
	return value
}

func Floor(v float32) int {
	return int(math.Floor(float64(v)))
}

func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func Ilog2(v uint32) uint32 {
	b := func(ok bool) uint32 {
		if ok {
			return 1
		}
		return 0
	}
	r := b(v > 0xffff) << 4
	v >>= r
	shift := b(v > 0xff) << 3
	v >>= shift
	r |= shift
	shift = b(v > 0xf) << 2
	v >>= shift
	r |= shift
	shift = b(v > 0x3) << 1
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}

// ComputeTileHash hashes a tile coordinate into a power-of-two lookup table.
func ComputeTileHash(x, y, mask int32) int32 {
	h1 := uint32(0x8da6b343) // Large multiplicative constants;
	h2 := uint32(0xd8163841) // here arbitrarily chosen primes
	n := h1*uint32(x) + h2*uint32(y)
	return int32(n & uint32(mask))
}

// / Determines if two axis-aligned bounding boxes overlap.
func OverlapBounds(amin, amax, bmin, bmax []float32) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

var dirOffsetX = [4]int{-1, 0, 1, 0}
var dirOffsetY = [4]int{0, 1, 0, -1}

// GetDirOffsetX returns the x offset of a 4-neighbour direction (0: -x, 1: +y, 2: +x, 3: -y).
func GetDirOffsetX(dir int) int {
	return dirOffsetX[dir&0x03]
}

func GetDirOffsetY(dir int) int {
	return dirOffsetY[dir&0x03]
}
