package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"
)

func TestSetAndGetBit(t *testing.T) {
	buf := make([]byte, 2)
	require.NoError(t, SetBit(buf, 0))
	require.NoError(t, SetBit(buf, 9))
	assert.Equal(t, []byte{0x80, 0x40}, buf)

	for bit, want := range map[int]uint8{0: 1, 1: 0, 8: 0, 9: 1, 15: 0} {
		got, err := GetBit(buf, bit)
		require.NoError(t, err)
		assert.Equal(t, want, got, "bit %d", bit)
	}
}

func TestBitIndexOutOfRange(t *testing.T) {
	buf := make([]byte, 1)
	assert.True(t, errors.Is(SetBit(buf, 8), ErrBitIndexOutOfRange))
	assert.True(t, errors.Is(SetBit(buf, -1), ErrBitIndexOutOfRange))

	_, err := GetBit(buf, 8)
	assert.True(t, errors.Is(err, ErrBitIndexOutOfRange))

	// A field that would run off the end must not partially write.
	_, err = CopyBitsToBuffer(0xff, 4, buf, 6)
	assert.True(t, errors.Is(err, ErrBitIndexOutOfRange))
	assert.Equal(t, byte(0), buf[0])
}

func TestCopyBitsChaining(t *testing.T) {
	// V=2, P=1, count=5, PT=200
	buf := make([]byte, 2)
	next, err := CopyBitsToBuffer(2, 2, buf, 0)
	require.NoError(t, err)
	next, err = CopyBitsToBuffer(1, 1, buf, next)
	require.NoError(t, err)
	next, err = CopyBitsToBuffer(5, 5, buf, next)
	require.NoError(t, err)
	next, err = CopyBitsToBuffer(200, 8, buf, next)
	require.NoError(t, err)

	assert.Equal(t, 16, next)
	assert.Equal(t, []byte{0xa5, 0xc8}, buf)

	v, err := CopyBitsFromBuffer(buf, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), v)
	v, err = CopyBitsFromBuffer(buf, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), v)
	v, err = CopyBitsFromBuffer(buf, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xa5c8), v)
}

func TestCopyBitsClearsZeros(t *testing.T) {
	buf := []byte{0xff, 0xff}
	next, err := CopyBitsToBuffer(0, 6, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, next)
	assert.Equal(t, []byte{0xc0, 0xff}, buf)
}

func TestCopyBitsWide(t *testing.T) {
	buf := make([]byte, 5)
	next, err := CopyBitsToBuffer(0xdeadbeef, 32, buf, 8)
	require.NoError(t, err)
	assert.Equal(t, 40, next)
	assert.Equal(t, []byte{0, 0xde, 0xad, 0xbe, 0xef}, buf)

	_, err = CopyBitsToBuffer(0, 33, buf, 0)
	assert.True(t, errors.Is(err, ErrBitCountTooLarge))
	_, err = CopyBitsFromBuffer(buf, 0, 17)
	assert.True(t, errors.Is(err, ErrBitCountTooLarge))
}
