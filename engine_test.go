package srtplight

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/rtcp"
	"github.com/lanikai/srtplight/internal/srtp"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

var (
	testKey  = mustHex("fda62595d7f6926f7d9c024cc9209f34")
	testSalt = mustHex("a9651985540b47be2f27a8b88123")

	// SR+SDES compound packet, clear and protected with index 1.
	testClearRTCP     = mustHex("80c8000666ef91ffdf4880dd61a62ed3d8bcdebe000000090000160481ca000666ef91ff0110526e5435436d4a687a7965744178772b0000")
	testProtectedRTCP = mustHex("80c8000666ef91ffcd34c578b28be16bc509d577e4ce5f208021bd667465e95f49e5f5c0684ee56a78077546ed90f6dc9def3bdff279a9d88000000160c0aeb56f40880e28ba")
)

type recorder struct {
	sent [][]byte
	err  error
}

func (r *recorder) Send(buf []byte) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, append([]byte(nil), buf...))
	return nil
}

func testConfig() Config {
	return Config{
		Suite:        SuiteAES128CMHMACSHA1_80,
		LocalKey:     testKey,
		LocalSalt:    testSalt,
		RemoteKey:    testKey,
		RemoteSalt:   testSalt,
		LocalSSRC:    0x66ef91ff,
		InitialIndex: 1,
	}
}

func newTestEngine(t *testing.T, transport Transport) *Engine {
	t.Helper()
	e, err := NewEngine(testConfig(), transport)
	require.NoError(t, err)
	return e
}

func TestEngineSend(t *testing.T) {
	var out recorder
	e := newTestEngine(t, &out)

	packets, err := rtcp.Unmarshal(testClearRTCP)
	require.NoError(t, err)
	require.Len(t, packets, 2)

	require.NoError(t, e.Send(packets...))
	require.Len(t, out.sent, 1)
	assert.Equal(t, testProtectedRTCP, out.sent[0])
	assert.Equal(t, uint32(2), e.Index())
}

func TestEngineInbound(t *testing.T) {
	e := newTestEngine(t, &recorder{})

	packets, err := e.Inbound(append([]byte(nil), testProtectedRTCP...))
	require.NoError(t, err)
	require.Len(t, packets, 2)

	sr, ok := packets[0].(*rtcp.SenderReport)
	require.True(t, ok)
	assert.Equal(t, uint32(0x66ef91ff), sr.SSRC)
	assert.Equal(t, uint64(0xdf4880dd61a62ed3), sr.NTPTime)
	assert.Equal(t, uint32(9), sr.PacketCount)

	sdes, ok := packets[1].(*rtcp.SourceDescription)
	require.True(t, ok)
	cname, ok := sdes.CNAME(0x66ef91ff)
	assert.True(t, ok)
	assert.Equal(t, "RnT5CmJhzyetAxw+", cname)
}

func TestEngineInboundTampered(t *testing.T) {
	e := newTestEngine(t, &recorder{})

	for i := range testProtectedRTCP {
		buf := append([]byte(nil), testProtectedRTCP...)
		buf[i] ^= 0x01
		_, err := e.Inbound(buf)
		assert.True(t, errors.Is(err, ErrAuthenticationFailed), "byte %d: %v", i, err)
		assert.True(t, errors.Is(err, srtp.ErrAuthenticationFailed), "byte %d: cause lost", i)
	}
	assert.NoError(t, e.Err())

	// The engine still accepts the genuine packet.
	_, err := e.Inbound(append([]byte(nil), testProtectedRTCP...))
	assert.NoError(t, err)

	_, err = e.Inbound(testProtectedRTCP[:20])
	assert.True(t, errors.Is(err, ErrInvalidPacket), "got %v", err)
}

func TestEngineInboundUnencrypted(t *testing.T) {
	e := newTestEngine(t, &recorder{})

	ctx, err := srtp.NewRTCPContext(srtp.ProfileAES128CMHMACSHA1_80, testKey, testSalt)
	require.NoError(t, err)
	buf := append(append([]byte(nil), testClearRTCP...), 0, 0, 0, 5)
	tag, err := ctx.AuthTag(buf)
	require.NoError(t, err)
	buf = append(buf, tag...)

	packets, err := e.Inbound(buf)
	require.NoError(t, err)
	assert.Empty(t, packets)
}

func TestEngineRoundTrip(t *testing.T) {
	var out recorder
	e := newTestEngine(t, &out)

	require.NoError(t, e.SendSenderReport(0x1234, 0xdd6247cd4b439581, 0x279bcaef, 10, 1000))
	require.NoError(t, e.SendReceiverReport(0x1234, rtcp.ReceptionReport{SSRC: 5, FractionLost: 1}))
	require.NoError(t, e.SendPictureLossIndication(5))
	require.NoError(t, e.SendFeedback([]byte{1, 2, 3, 4}, 5, rtcp.FormatSLI))
	require.NoError(t, e.SendTransportFeedback([]byte{1, 2, 3, 4}, 5, 3))
	require.NoError(t, e.SendREMB(2111000, 5, 6))
	require.NoError(t, e.SendNack(5, []uint16{5, 6, 10}))
	require.Len(t, out.sent, 7)
	assert.Equal(t, uint32(8), e.Index())

	want := []rtcp.Packet{
		&rtcp.SenderReport{SSRC: 0x1234, NTPTime: 0xdd6247cd4b439581, RTPTime: 0x279bcaef, PacketCount: 10, OctetCount: 1000},
		&rtcp.ReceiverReport{SSRC: 0x1234, Reports: []rtcp.ReceptionReport{{SSRC: 5, FractionLost: 1}}},
		&rtcp.PictureLossIndication{SenderSSRC: 0x66ef91ff, MediaSSRC: 5},
		&rtcp.Feedback{Type: rtcp.TypePayloadSpecificFeedback, Format: rtcp.FormatSLI, SenderSSRC: 0x66ef91ff, MediaSSRC: 5, FCI: []byte{1, 2, 3, 4}},
		&rtcp.Feedback{Type: rtcp.TypeTransportSpecificFeedback, Format: 3, SenderSSRC: 0x66ef91ff, MediaSSRC: 5, FCI: []byte{1, 2, 3, 4}},
		&rtcp.ReceiverEstimatedMaximumBitrate{SenderSSRC: 0x66ef91ff, Bitrate: 2110992, SSRCs: []uint32{5, 6}},
		&rtcp.TransportLayerNack{SenderSSRC: 0x66ef91ff, MediaSSRC: 5, Nacks: []rtcp.NackPair{{PacketID: 5, LostPackets: 0x11}}},
	}
	for i, buf := range out.sent {
		packets, err := e.Inbound(buf)
		require.NoError(t, err)
		require.Len(t, packets, 1)
		assert.Equal(t, want[i], packets[0])
	}
}

func TestEngineReplay(t *testing.T) {
	config := testConfig()
	config.ReplayWindow = 64
	var out recorder
	e, err := NewEngine(config, &out)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.SendReceiverReport(uint32(i)))
	}
	for _, i := range []int{1, 0, 2} {
		_, err := e.Inbound(append([]byte(nil), out.sent[i]...))
		require.NoError(t, err, "packet %d", i)
	}
	_, err = e.Inbound(append([]byte(nil), out.sent[1]...))
	assert.True(t, errors.Is(err, ErrReplayed), "got %v", err)
	assert.True(t, errors.Is(err, srtp.ErrReplayed), "cause lost")
	assert.NoError(t, e.Err())

	// Without a window the same datagram decodes again.
	e = newTestEngine(t, &recorder{})
	for i := 0; i < 2; i++ {
		_, err := e.Inbound(append([]byte(nil), out.sent[0]...))
		assert.NoError(t, err)
	}
}

func TestEngineSendTooLong(t *testing.T) {
	config := testConfig()
	config.MaxPacketSize = 1 << 20
	var out recorder
	e, err := NewEngine(config, &out)
	require.NoError(t, err)

	var chunk rtcp.SourceDescriptionChunk
	for i := 0; i < 1100; i++ {
		chunk.Items = append(chunk.Items, rtcp.SourceDescriptionItem{Type: rtcp.SDESCNAME, Text: strings.Repeat("x", 255)})
	}
	assert.Error(t, e.Send(&rtcp.SourceDescription{Chunks: []rtcp.SourceDescriptionChunk{chunk}}))
	assert.Empty(t, out.sent)
	assert.Equal(t, uint32(1), e.Index())
	assert.NoError(t, e.Err())
}

func TestEngineReusesSendBuffer(t *testing.T) {
	var held []byte
	e := newTestEngine(t, TransportFunc(func(buf []byte) error {
		if held == nil {
			held = buf
		}
		return nil
	}))
	require.NoError(t, e.SendPictureLossIndication(5))
	first := append([]byte(nil), held...)
	require.NoError(t, e.SendPictureLossIndication(5))
	assert.NotEqual(t, first, held, "transports must copy buf to keep it")
}

func TestEngineTransportFailure(t *testing.T) {
	out := recorder{err: errors.New("network down")}
	e := newTestEngine(t, &out)

	assert.Error(t, e.SendReceiverReport(1))
	assert.Equal(t, uint32(1), e.Index())

	out.err = nil
	require.NoError(t, e.SendReceiverReport(1))
	assert.Equal(t, uint32(2), e.Index())
	assert.Error(t, e.Send())
}

func TestEngineIndexWraps(t *testing.T) {
	config := testConfig()
	config.InitialIndex = srtp.MaxSRTCPIndex
	var out recorder
	e, err := NewEngine(config, &out)
	require.NoError(t, err)

	require.NoError(t, e.SendReceiverReport(1))
	assert.Equal(t, uint32(0), e.Index())
}

func TestEngineFailed(t *testing.T) {
	var out recorder
	e := newTestEngine(t, &out)

	err := e.check(&srtp.KeyDerivationError{Label: 3, Err: errors.New("broken cipher")})
	assert.True(t, errors.Is(err, ErrKeyDerivation))
	assert.Error(t, e.Err())

	err = e.SendReceiverReport(1)
	assert.True(t, errors.Is(err, ErrEngineFailed), "got %v", err)
	_, err = e.Inbound(append([]byte(nil), testProtectedRTCP...))
	assert.True(t, errors.Is(err, ErrEngineFailed), "got %v", err)
	assert.Empty(t, out.sent)
}

// A receiver report captured from a browser, keyed with SDES inline params.
func TestEngineCapturedPacket(t *testing.T) {
	keyParams, err := base64.StdEncoding.DecodeString("IzdXQaD4zH55rctZ8O+0ip3nX+FKXmuJKgmudPej")
	require.NoError(t, err)
	require.Len(t, keyParams, 30)

	config := Config{
		LocalKey:   keyParams[:16],
		LocalSalt:  keyParams[16:],
		RemoteKey:  keyParams[:16],
		RemoteSalt: keyParams[16:],
	}
	e, err := NewEngine(config, &recorder{})
	require.NoError(t, err)

	packets, err := e.Inbound(mustHex(
		"81c9000700000001d467f83373d7c5d8634f8274710a1c011fa4a90533402b67" +
			"7b888b4e6cfe33d2df2802d2476f1c281a25c4a4f506269f79d77b9477d64830" +
			"cb31d77a8000001e9da26cf183f197847d2d"))
	require.NoError(t, err)
	require.NotEmpty(t, packets)

	rr, ok := packets[0].(*rtcp.ReceiverReport)
	require.True(t, ok)
	assert.Equal(t, uint32(1), rr.SSRC)
	assert.Len(t, rr.Reports, 1)
}

func TestNewEngineErrors(t *testing.T) {
	for _, test := range []struct {
		Name   string
		Modify func(*Config)
	}{
		{"unknown suite", func(c *Config) { c.Suite = "AES_256_CM_HMAC_SHA1_80" }},
		{"short local key", func(c *Config) { c.LocalKey = testKey[:15] }},
		{"short remote salt", func(c *Config) { c.RemoteSalt = testSalt[:13] }},
		{"index too large", func(c *Config) { c.InitialIndex = 1 << 31 }},
		{"bad key derivation rate", func(c *Config) { c.KeyDerivationRate = 3 }},
		{"tiny packets", func(c *Config) { c.MaxPacketSize = 16 }},
	} {
		t.Run(test.Name, func(t *testing.T) {
			config := testConfig()
			test.Modify(&config)
			_, err := NewEngine(config, &recorder{})
			assert.Error(t, err)
		})
	}
}
