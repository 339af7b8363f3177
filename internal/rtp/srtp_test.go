package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/srtp"
)

var (
	testMasterKey  = []byte("TopSecret128bits")
	testMasterSalt = []byte("SodiumChloride")
)

// Records each written datagram.
type datagrams [][]byte

func (d *datagrams) Write(b []byte) (int, error) {
	*d = append(*d, append([]byte(nil), b...))
	return len(b), nil
}

func newTestContexts(t *testing.T) (*srtp.Context, *srtp.Context) {
	out, err := srtp.NewRTPContext(srtp.ProfileAES128CMHMACSHA1_80, testMasterKey, testMasterSalt)
	require.NoError(t, err)
	in, err := srtp.NewRTPContext(srtp.ProfileAES128CMHMACSHA1_80, testMasterKey, testMasterSalt)
	require.NoError(t, err)
	return out, in
}

func TestSenderReceiverRollover(t *testing.T) {
	out, in := newTestContexts(t)

	var sent datagrams
	sender := NewSender(&sent, 0x1337d00d, 65534, out, 1280)
	for i := 0; i < 4; i++ {
		require.NoError(t, sender.WritePacket(100, i == 3, uint32(1000*i), []byte("abcdefghijklmnopqrstuvwxyz")))
	}
	assert.Equal(t, uint16(2), sender.SequenceNumber())
	assert.Equal(t, uint32(1), sender.RolloverCounter())
	packets, octets := sender.Stats()
	assert.Equal(t, uint32(4), packets)
	assert.Equal(t, uint32(4*26), octets)

	receiver := NewReceiver(in, 0, 0)
	var indices []uint64
	for i, buf := range sent {
		p, index, err := receiver.ReadPacket(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("abcdefghijklmnopqrstuvwxyz"), p.Payload)
		assert.Equal(t, i == 3, p.Marker)
		indices = append(indices, index)
	}
	assert.Equal(t, []uint64{65534, 65535, 65536, 65537}, indices)

	roc, ok := receiver.ROC(0x1337d00d)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), roc)
}

func TestReceiverTamperedPacket(t *testing.T) {
	out, in := newTestContexts(t)

	var sent datagrams
	sender := NewSender(&sent, 42, 65535, out, 1280)
	require.NoError(t, sender.WritePacket(96, false, 0, []byte("first")))
	require.NoError(t, sender.WritePacket(96, false, 0, []byte("second")))

	receiver := NewReceiver(in, 0, 0)
	_, _, err := receiver.ReadPacket(sent[0])
	require.NoError(t, err)

	// Flip one byte anywhere in the packet that would advance the ROC.
	for i := range sent[1] {
		forged := append([]byte(nil), sent[1]...)
		forged[i] ^= 0x80
		_, _, err := receiver.ReadPacket(forged)
		assert.Error(t, err, "byte %d", i)

		roc, _ := receiver.ROC(42)
		assert.Equal(t, uint32(0), roc, "byte %d", i)
	}

	_, index, err := receiver.ReadPacket(sent[1])
	require.NoError(t, err)
	assert.Equal(t, uint64(65536), index)
}

func TestReceiverUnknownStreamNotCached(t *testing.T) {
	_, in := newTestContexts(t)
	receiver := NewReceiver(in, 2, 0)

	forged := []byte{0x80, 0x60, 0, 1, 0, 0, 0, 0, 0, 0, 0, 9, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	_, _, err := receiver.ReadPacket(forged)
	assert.True(t, errors.Is(err, srtp.ErrAuthenticationFailed))

	_, ok := receiver.ROC(9)
	assert.False(t, ok)
}

func TestReceiverReplay(t *testing.T) {
	out, in := newTestContexts(t)

	var sent datagrams
	sender := NewSender(&sent, 7, 100, out, 1280)
	for i := 0; i < 3; i++ {
		require.NoError(t, sender.WritePacket(96, false, 0, []byte("media")))
	}

	receiver := NewReceiver(in, 0, 64)
	for _, i := range []int{0, 2, 1} {
		_, _, err := receiver.ReadPacket(append([]byte(nil), sent[i]...))
		require.NoError(t, err, "packet %d", i)
	}
	for i := range sent {
		_, _, err := receiver.ReadPacket(append([]byte(nil), sent[i]...))
		assert.True(t, errors.Is(err, srtp.ErrReplayed), "packet %d: %v", i, err)
	}
}
