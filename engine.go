package srtplight

import (
	"sync"

	"github.com/pion/transport/v3/replaydetector"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/logging"
	"github.com/lanikai/srtplight/internal/packet"
	"github.com/lanikai/srtplight/internal/rtcp"
	"github.com/lanikai/srtplight/internal/srtp"
)

var log = logging.DefaultLogger.WithTag("srtplight")

// Transport hands a finished datagram to the network. buf is only valid
// during the call; the engine reuses it for the next send, so a transport
// that queues datagrams must copy them.
type Transport interface {
	Send(buf []byte) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(buf []byte) error

func (f TransportFunc) Send(buf []byte) error {
	return f(buf)
}

// Engine protects outbound RTCP packets and unprotects inbound SRTCP packets
// for one session. Sends are serialized, so the SRTCP index goes up by one
// for every datagram that reaches the transport. Inbound calls are
// serialized separately and never block a send.
type Engine struct {
	transport  Transport
	senderSSRC uint32

	sendMu   sync.Mutex
	outbound *srtp.Context
	index    uint32
	buf      []byte

	recvMu  sync.Mutex
	inbound *srtp.Context
	replay  replaydetector.ReplayDetector

	failMu sync.Mutex
	err    error
}

// NewEngine creates an SRTCP engine. Outbound packets are protected with the
// local master key, inbound ones verified with the remote master key.
func NewEngine(config Config, transport Transport) (*Engine, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	profile, _ := config.profile()

	outbound, err := srtp.NewRTCPContext(profile, config.LocalKey, config.LocalSalt, config.contextOptions()...)
	if err != nil {
		return nil, err
	}
	inbound, err := srtp.NewRTCPContext(profile, config.RemoteKey, config.RemoteSalt, config.contextOptions()...)
	if err != nil {
		return nil, err
	}

	return &Engine{
		transport:  transport,
		senderSSRC: config.LocalSSRC,
		outbound:   outbound,
		index:      config.InitialIndex,
		buf:        make([]byte, config.MaxPacketSize),
		inbound:    inbound,
		replay:     srtp.NewSRTCPReplayDetector(config.ReplayWindow),
	}, nil
}

// Err returns the error that made the engine unusable, or nil.
func (e *Engine) Err() error {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	return e.err
}

// Record a fatal failure. Only key derivation errors are fatal.
func (e *Engine) check(err error) error {
	err = classify(err)
	if errors.Is(err, ErrKeyDerivation) {
		e.failMu.Lock()
		if e.err == nil {
			e.err = err
			log.Warn("SRTCP engine disabled: %v", err)
		}
		e.failMu.Unlock()
	}
	return err
}

func (e *Engine) usable() error {
	if err := e.Err(); err != nil {
		return errors.Errorf("%v: %w", err, ErrEngineFailed)
	}
	return nil
}

// Index returns the SRTCP index the next outbound packet will carry.
func (e *Engine) Index() uint32 {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	return e.index
}

// Inbound verifies and decrypts an SRTCP datagram in place, then decodes the
// compound RTCP packet it carries. A datagram with the E-flag clear
// authenticates but yields no packets. Failures are of kind
// ErrInvalidPacket, ErrAuthenticationFailed, ErrReplayed or ErrKeyDerivation.
func (e *Engine) Inbound(buf []byte) ([]rtcp.Packet, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}

	plain, index, encrypted, err := e.unprotect(buf)
	if err != nil {
		log.Dump(3, buf, "rejected SRTCP datagram: %v", err)
		return nil, e.check(err)
	}
	if !encrypted {
		log.Debug("ignoring unencrypted SRTCP packet, index %d", index)
		return nil, nil
	}

	packets, err := rtcp.Unmarshal(plain)
	if err != nil {
		log.Dump(3, plain, "undecodable RTCP, index %d: %v", index, err)
		return nil, classify(err)
	}
	log.Trace(2, "received %d RTCP packets, index %d", len(packets), index)
	return packets, nil
}

// Authenticate and decrypt, then consult the replay list.
func (e *Engine) unprotect(buf []byte) (plain []byte, index uint32, encrypted bool, err error) {
	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	plain, index, encrypted, err = e.inbound.DecryptRTCP(buf)
	if err != nil || e.replay == nil {
		return
	}
	markValid, ok := e.replay.Check(uint64(index))
	if !ok {
		return nil, 0, false, errors.Errorf("SRTCP index %d: %w", index, srtp.ErrReplayed)
	}
	markValid()
	return
}

// Send protects one compound RTCP packet and hands it to the transport. The
// SRTCP index only advances when the transport accepts the datagram.
func (e *Engine) Send(packets ...rtcp.Packet) error {
	if len(packets) == 0 {
		return errors.New("srtplight: no RTCP packets to send")
	}
	if err := e.usable(); err != nil {
		return err
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	w := packet.NewWriter(e.buf)
	if err := rtcp.MarshalTo(w, packets...); err != nil {
		return err
	}
	if err := e.outbound.EncryptRTCP(w, e.index); err != nil {
		return e.check(err)
	}
	if err := e.transport.Send(w.Bytes()); err != nil {
		return err
	}
	log.Trace(2, "sent %d RTCP packets, %d bytes, index %d", len(packets), w.Length(), e.index)
	e.index = (e.index + 1) & srtp.MaxSRTCPIndex
	return nil
}

// SendSenderReport sends a Sender Report without reception reports.
func (e *Engine) SendSenderReport(ssrc uint32, ntpTime uint64, rtpTime, packetCount, octetCount uint32) error {
	return e.Send(&rtcp.SenderReport{
		SSRC:        ssrc,
		NTPTime:     ntpTime,
		RTPTime:     rtpTime,
		PacketCount: packetCount,
		OctetCount:  octetCount,
	})
}

// SendReceiverReport sends a Receiver Report from ssrc carrying the given
// reception reports, if any.
func (e *Engine) SendReceiverReport(ssrc uint32, reports ...rtcp.ReceptionReport) error {
	return e.Send(&rtcp.ReceiverReport{SSRC: ssrc, Reports: reports})
}

// SendPictureLossIndication asks the sender of media stream ssrc for a key
// frame.
func (e *Engine) SendPictureLossIndication(ssrc uint32) error {
	return e.Send(&rtcp.PictureLossIndication{SenderSSRC: e.senderSSRC, MediaSSRC: ssrc})
}

// SendFeedback sends payload-specific feedback about media stream ssrc, with
// an FCI the caller has already encoded.
func (e *Engine) SendFeedback(fci []byte, ssrc uint32, format uint8) error {
	return e.Send(&rtcp.Feedback{
		Type:       rtcp.TypePayloadSpecificFeedback,
		Format:     format,
		SenderSSRC: e.senderSSRC,
		MediaSSRC:  ssrc,
		FCI:        fci,
	})
}

// SendTransportFeedback is SendFeedback for transport-layer feedback.
func (e *Engine) SendTransportFeedback(fci []byte, ssrc uint32, format uint8) error {
	return e.Send(&rtcp.Feedback{
		Type:       rtcp.TypeTransportSpecificFeedback,
		Format:     format,
		SenderSSRC: e.senderSSRC,
		MediaSSRC:  ssrc,
		FCI:        fci,
	})
}

// SendREMB announces a maximum bitrate estimate covering the given streams.
func (e *Engine) SendREMB(bitrate uint64, ssrcs ...uint32) error {
	return e.Send(&rtcp.ReceiverEstimatedMaximumBitrate{
		SenderSSRC: e.senderSSRC,
		Bitrate:    bitrate,
		SSRCs:      ssrcs,
	})
}

// SendNack reports lost packets of media stream ssrc.
func (e *Engine) SendNack(ssrc uint32, lost []uint16) error {
	return e.Send(&rtcp.TransportLayerNack{
		SenderSSRC: e.senderSSRC,
		MediaSSRC:  ssrc,
		Nacks:      rtcp.NackPairsFromSequenceNumbers(lost),
	})
}
