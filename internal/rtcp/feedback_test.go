package rtcp

import (
	"math"
	"testing"

	pionrtcp "github.com/pion/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNACK(t *testing.T) {
	pairs := NackPairsFromSequenceNumbers([]uint16{5, 6, 10})
	require.Len(t, pairs, 1)
	assert.Equal(t, uint16(5), pairs[0].PacketID)
	// 6 -> bit at position 0, 10 -> bit at position 4
	assert.Equal(t, uint16(0x11), pairs[0].LostPackets)

	nack := TransportLayerNack{Nacks: pairs}
	assert.Equal(t, []uint16{5, 6, 10}, nack.LostPackets())
}

func TestNackPairs(t *testing.T) {
	for _, test := range []struct {
		Name string
		Lost []uint16
		Want []NackPair
	}{
		{"none", nil, nil},
		{"wraparound", []uint16{65535, 0, 1}, []NackPair{{65535, 0x3}}},
		{"last bit", []uint16{1, 17}, []NackPair{{1, 0x8000}}},
		{"new pair", []uint16{1, 18}, []NackPair{{1, 0}, {18, 0}}},
	} {
		t.Run(test.Name, func(t *testing.T) {
			pairs := NackPairsFromSequenceNumbers(test.Lost)
			assert.Equal(t, test.Want, pairs)

			var lost []uint16
			for _, pair := range pairs {
				lost = append(lost, pair.PacketList()...)
			}
			assert.Equal(t, test.Lost, lost)
		})
	}
}

func TestBitrateQuantization(t *testing.T) {
	for _, test := range []struct {
		Bitrate  uint64
		Exp      uint8
		Mantissa uint32
		Decoded  uint64
	}{
		{0, 0, 0, 0},
		{1000, 0, 1000, 1000},
		{mantissaMask, 0, mantissaMask, mantissaMask},
		{mantissaMask + 1, 1, 1 << 17, mantissaMask + 1},
		{2111000, 4, 131937, 2110992},
		{math.MaxUint64, 46, mantissaMask, mantissaMask << 46},
	} {
		exp, mantissa := encodeBitrate(test.Bitrate)
		assert.Equal(t, test.Exp, exp, "bitrate %d", test.Bitrate)
		assert.Equal(t, test.Mantissa, mantissa, "bitrate %d", test.Bitrate)
		assert.Equal(t, test.Decoded, decodeBitrate(exp, mantissa), "bitrate %d", test.Bitrate)
	}

	assert.Equal(t, uint64(math.MaxUint64), decodeBitrate(63, mantissaMask))
}

func TestBWE(t *testing.T) {
	fci := EncodeBWE(2111000, 0x4f5da40f)
	assert.Equal(t, hexBytes(t, "52454d42 01120361 4f5da40f"), fci)

	bitrate, err := DecodeBWE(fci)
	require.NoError(t, err)
	assert.Equal(t, uint64(2110992), bitrate)

	bitrate, err = DecodeBWE(hexBytes(t, "52454d42 01131275 4f5da40f"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1124176), bitrate)

	_, err = DecodeBWE([]byte("ABCD1234"))
	assert.Equal(t, ErrNotREMB, err)
	_, err = DecodeBWE([]byte("RE"))
	assert.Equal(t, ErrNotREMB, err)
	_, err = DecodeBWE([]byte("REMB"))
	assert.ErrorIs(t, err, ErrInvalidPacket)
}

func TestCCFBMasksFields(t *testing.T) {
	cc := &CongestionControlFeedback{
		SenderSSRC: 1,
		Streams:    []CCFBStream{{SSRC: 2, Reports: []CCFBReport{{true, 1, 0xffff}}}},
	}
	data, err := Marshal(cc)
	require.NoError(t, err)
	assert.Equal(t, hexBytes(t, "8bcd0005 00000001 00000002 00000001 bfff0000 00000000"), data)
}

// Packets marshaled by pion/rtcp decode to the same values here.
func TestDecodePionPackets(t *testing.T) {
	data, err := pionrtcp.Marshal([]pionrtcp.Packet{
		&pionrtcp.SenderReport{
			SSRC:        0x902f9e2e,
			NTPTime:     0xda8bd1fcdddda05a,
			RTPTime:     0xaaf4edd5,
			PacketCount: 1,
			OctetCount:  2,
			Reports: []pionrtcp.ReceptionReport{{
				SSRC:               0xbc5e9a40,
				FractionLost:       0,
				TotalLost:          0,
				LastSequenceNumber: 0x46e1,
				Jitter:             273,
				LastSenderReport:   0x9f36432,
				Delay:              150137,
			}},
		},
		&pionrtcp.PictureLossIndication{SenderSSRC: 1, MediaSSRC: 2},
		&pionrtcp.TransportLayerNack{
			SenderSSRC: 1,
			MediaSSRC:  2,
			Nacks:      []pionrtcp.NackPair{{PacketID: 5, LostPackets: 0x11}},
		},
		&pionrtcp.ReceiverEstimatedMaximumBitrate{
			SenderSSRC: 1,
			Bitrate:    2111000,
			SSRCs:      []uint32{0x4f5da40f},
		},
		&pionrtcp.Goodbye{Sources: []uint32{0x902f9e2e}, Reason: "done"},
	})
	require.NoError(t, err)

	packets, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, []Packet{
		&SenderReport{
			SSRC:        0x902f9e2e,
			NTPTime:     0xda8bd1fcdddda05a,
			RTPTime:     0xaaf4edd5,
			PacketCount: 1,
			OctetCount:  2,
			Reports: []ReceptionReport{{
				SSRC:               0xbc5e9a40,
				LastSequenceNumber: 0x46e1,
				Jitter:             273,
				LastSenderReport:   0x9f36432,
				Delay:              150137,
			}},
		},
		&PictureLossIndication{SenderSSRC: 1, MediaSSRC: 2},
		&TransportLayerNack{SenderSSRC: 1, MediaSSRC: 2, Nacks: []NackPair{{5, 0x11}}},
		&ReceiverEstimatedMaximumBitrate{SenderSSRC: 1, Bitrate: 2110992, SSRCs: []uint32{0x4f5da40f}},
		&Goodbye{Sources: []uint32{0x902f9e2e}, Reason: "done"},
	}, packets)
}

// Packets marshaled here decode with pion/rtcp.
func TestEncodeForPion(t *testing.T) {
	data, err := Marshal(
		&ReceiverReport{SSRC: 7, Reports: []ReceptionReport{{SSRC: 8, FractionLost: 3, TotalLost: 4}}},
		&ReceiverEstimatedMaximumBitrate{SenderSSRC: 1, Bitrate: 1124176, SSRCs: []uint32{2}},
		&PictureLossIndication{SenderSSRC: 1, MediaSSRC: 2},
	)
	require.NoError(t, err)

	packets, err := pionrtcp.Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, packets, 3)

	rr, ok := packets[0].(*pionrtcp.ReceiverReport)
	require.True(t, ok)
	assert.Equal(t, uint32(7), rr.SSRC)
	require.Len(t, rr.Reports, 1)
	assert.Equal(t, uint32(8), rr.Reports[0].SSRC)
	assert.Equal(t, uint8(3), rr.Reports[0].FractionLost)
	assert.Equal(t, uint32(4), rr.Reports[0].TotalLost)

	remb, ok := packets[1].(*pionrtcp.ReceiverEstimatedMaximumBitrate)
	require.True(t, ok)
	assert.Equal(t, float32(1124176), remb.Bitrate)
	assert.Equal(t, []uint32{2}, remb.SSRCs)

	pli, ok := packets[2].(*pionrtcp.PictureLossIndication)
	require.True(t, ok)
	assert.Equal(t, uint32(2), pli.MediaSSRC)
}
