package srtplight

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/lanikai/srtplight/internal/mux"
	"github.com/lanikai/srtplight/internal/rtcp"
	"github.com/lanikai/srtplight/internal/rtp"
	"github.com/lanikai/srtplight/internal/srtp"
)

// Handlers receive what a Session reads. Each is called from its own read
// loop, so RTP and RTCP handlers may run concurrently. A nil handler discards.
type Handlers struct {
	// RTP gets each authenticated RTP packet with its extended index. The
	// payload aliases the read buffer and is only valid during the call.
	RTP func(p *rtp.Packet, index uint64)

	// RTCP gets the packets of each authenticated SRTCP datagram.
	RTCP func(packets []rtcp.Packet)
}

// Session runs SRTP and SRTCP over a single connection, telling the two apart
// by payload type as in RFC 5761.
type Session struct {
	maxPacketSize int

	mux      *mux.Mux
	rtpConn  *mux.Endpoint
	rtcpConn *mux.Endpoint

	sender   *rtp.Sender
	receiver *rtp.Receiver
	engine   *Engine

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session over conn and takes ownership of it.
func NewSession(conn net.Conn, config Config) (*Session, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	profile, _ := config.profile()

	writeContext, err := srtp.NewRTPContext(profile, config.LocalKey, config.LocalSalt, config.contextOptions()...)
	if err != nil {
		return nil, err
	}
	readContext, err := srtp.NewRTPContext(profile, config.RemoteKey, config.RemoteSalt, config.contextOptions()...)
	if err != nil {
		return nil, err
	}

	s := &Session{maxPacketSize: config.MaxPacketSize}
	s.engine, err = NewEngine(config, TransportFunc(s.writeRTCP))
	if err != nil {
		return nil, err
	}

	s.mux = mux.NewMux(conn, config.MaxPacketSize)
	s.rtpConn = s.mux.NewEndpoint(mux.MatchRTP)
	s.rtcpConn = s.mux.NewEndpoint(mux.MatchRTCP)
	s.sender = rtp.NewSender(s.rtpConn, config.LocalSSRC, config.InitialSequenceNumber, writeContext, config.MaxPacketSize)
	s.receiver = rtp.NewReceiver(readContext, config.MaxStreams, config.ReplayWindow)
	return s, nil
}

func (s *Session) writeRTCP(buf []byte) error {
	_, err := s.rtcpConn.Write(buf)
	return err
}

// RTCP returns the engine that protects this session's control packets.
func (s *Session) RTCP() *Engine {
	return s.engine
}

// WriteRTP sends one media packet on the local stream.
func (s *Session) WriteRTP(payloadType byte, marker bool, timestamp uint32, payload []byte) error {
	return s.sender.WritePacket(payloadType, marker, timestamp, payload)
}

// SendSenderReport sends a Sender Report with the local stream's counters.
func (s *Session) SendSenderReport(ntpTime uint64, rtpTime uint32) error {
	packets, octets := s.sender.Stats()
	return s.engine.SendSenderReport(s.sender.SSRC(), ntpTime, rtpTime, packets, octets)
}

// ROC returns the rollover counter of a remote stream, if it has been seen.
func (s *Session) ROC(ssrc uint32) (uint32, bool) {
	return s.receiver.ROC(ssrc)
}

// Serve reads from the connection until ctx is done or the connection
// fails, passing what arrives to h. Malformed and unauthenticated datagrams
// are dropped. The session is closed when Serve returns.
func (s *Session) Serve(ctx context.Context, h Handlers) error {
	errc := make(chan error, 2)
	go func() { errc <- s.readRTP(h.RTP) }()
	go func() { errc <- s.readRTCP(h.RTCP) }()

	var err error
	pending := 2
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errc:
		pending--
	}
	s.Close()
	for ; pending > 0; pending-- {
		<-errc
	}
	if err == io.EOF {
		return nil
	}
	return err
}

// Returns on read error or when the session is closed.
func (s *Session) readRTP(handle func(*rtp.Packet, uint64)) error {
	buf := make([]byte, s.maxPacketSize)
	for {
		n, err := s.rtpConn.Read(buf)
		if err != nil {
			return err
		}
		p, index, err := s.receiver.ReadPacket(buf[:n])
		if err != nil {
			log.Debug("dropping RTP packet: %v", err)
			continue
		}
		if handle != nil {
			handle(p, index)
		}
	}
}

// Returns on read error or when the session is closed.
func (s *Session) readRTCP(handle func([]rtcp.Packet)) error {
	buf := make([]byte, s.maxPacketSize)
	for {
		n, err := s.rtcpConn.Read(buf)
		if err != nil {
			return err
		}
		packets, err := s.engine.Inbound(buf[:n])
		if err != nil {
			if s.engine.Err() != nil {
				return err
			}
			log.Debug("dropping SRTCP packet: %v", err)
			continue
		}
		if handle != nil && len(packets) > 0 {
			handle(packets)
		}
	}
}

// Close closes the session and its connection.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.mux.Close()
	})
	return s.closeErr
}
