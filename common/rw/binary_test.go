package rw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	w := NewWriter()
	w.WriteInt32(-7)
	w.WriteUInt16(0xbeef)
	w.WriteUInt8(3)
	w.WriteFloat32s([]float32{1.5, -2})
	w.WriteBytes([]byte("tail"))

	r := NewReader(w.GetWriteBytes())
	assert.Equal(t, int32(-7), r.ReadInt32())
	assert.Equal(t, uint16(0xbeef), r.ReadUInt16())
	assert.Equal(t, uint8(3), r.ReadUInt8())
	v := make([]float32, 2)
	r.ReadFloat32s(v)
	assert.Equal(t, []float32{1.5, -2}, v)
	assert.Equal(t, []byte("tail"), r.Remaining())
	require.NoError(t, r.Err())
}

func TestShortReadIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 2})
	assert.Equal(t, uint32(0), r.ReadUInt32())
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)
	assert.Nil(t, r.ReadBytes(1))
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)
}
