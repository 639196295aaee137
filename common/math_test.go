package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPow2(t *testing.T) {
	assert.Equal(t, uint32(1), NextPow2(1))
	assert.Equal(t, uint32(8), NextPow2(5))
	assert.Equal(t, uint32(64), NextPow2(64))
	assert.Equal(t, uint32(128), NextPow2(65))
}

func TestIlog2(t *testing.T) {
	assert.Equal(t, uint32(0), Ilog2(1))
	assert.Equal(t, uint32(4), Ilog2(16))
	assert.Equal(t, uint32(10), Ilog2(1024))
	assert.Equal(t, uint32(16), Ilog2(1<<16))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(2, 0, 1), "Higher than range error")
	assert.Equal(t, 1, Clamp(1, 0, 2), "Within range error")
	assert.Equal(t, 1, Clamp(0, 1, 2), "Lower than range error")
}

func TestOverlapBounds(t *testing.T) {
	amin, amax := []float32{0, 0, 0}, []float32{1, 1, 1}
	assert.True(t, OverlapBounds(amin, amax, []float32{0.5, 0.5, 0.5}, []float32{2, 2, 2}))
	assert.True(t, OverlapBounds(amin, amax, []float32{1, 1, 1}, []float32{2, 2, 2}), "touching boxes overlap")
	assert.False(t, OverlapBounds(amin, amax, []float32{1.1, 0, 0}, []float32{2, 1, 1}))
}

func TestComputeTileHashMasked(t *testing.T) {
	for x := int32(-4); x < 4; x++ {
		for y := int32(-4); y < 4; y++ {
			h := ComputeTileHash(x, y, 15)
			assert.GreaterOrEqual(t, h, int32(0))
			assert.Less(t, h, int32(16))
		}
	}
}

func TestDirOffsets(t *testing.T) {
	for dir := 0; dir < 4; dir++ {
		opposite := (dir + 2) & 0x3
		assert.Equal(t, -GetDirOffsetX(dir), GetDirOffsetX(opposite))
		assert.Equal(t, -GetDirOffsetY(dir), GetDirOffsetY(opposite))
	}
}
