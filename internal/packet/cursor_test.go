package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"
)

func TestReaderWriter(t *testing.T) {
	w := NewWriterSize(16)
	w.WriteByte(0x01)
	w.WriteUint16(0x0203)
	w.WriteUint24(0x040506)
	w.WriteUint32(0x0708090a)
	require.NoError(t, w.WriteSlice([]byte{0x0b}))
	w.Align(4)
	assert.Equal(t, 12, w.Length())
	assert.Equal(t, 4, w.Capacity())
	assert.Error(t, w.WriteSlice(make([]byte, 5)))

	r := NewReader(w.Bytes())
	assert.Equal(t, byte(0x01), r.ReadByte())
	assert.Equal(t, uint16(0x0203), r.ReadUint16())
	assert.Equal(t, uint32(0x040506), r.ReadUint24())
	assert.Equal(t, uint32(0x0708090a), r.ReadUint32())
	assert.Equal(t, 10, r.Offset())
	r.Align(4)
	assert.Equal(t, 0, r.Remaining())
	assert.True(t, errors.Is(r.CheckRemaining(1), ErrShortBuffer))
}

func TestWriterReusesDirtyBuffer(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	w := NewWriter(buf)
	w.WriteByte(0x80)
	w.Align(4)
	w.ZeroPad(2)
	field, err := w.Next(2)
	require.NoError(t, err)
	n, err := CopyBitsToBuffer(0x5, 3, field, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x80, 0, 0, 0, 0, 0, 0xbf, 0xff}, w.Bytes())

	_, err = w.Next(1)
	assert.True(t, errors.Is(err, ErrShortBuffer))

	w.Reset()
	assert.Equal(t, 0, w.Length())
	assert.Equal(t, 8, w.Capacity())
}

func TestReaderSlices(t *testing.T) {
	r := NewReader([]byte("\x00\x01cnameREMB"))
	assert.Equal(t, uint16(1), r.ReadUint16())
	assert.Equal(t, "cname", r.ReadString(5))
	v, err := r.PeekBits(0, 8)
	require.NoError(t, err)
	assert.Equal(t, uint16('R'), v)
	r.Skip(1)
	assert.Equal(t, []byte("EMB"), r.ReadRemaining())
	assert.Equal(t, 0, r.Remaining())
}
