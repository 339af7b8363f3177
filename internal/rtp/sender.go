package rtp

import (
	"io"
	"sync"

	"github.com/lanikai/srtplight/internal/packet"
	"github.com/lanikai/srtplight/internal/srtp"
)

// A Sender maintains the state necessary for sending SRTP packets on one
// stream. Its sequence number and rollover counter are derived from a packet
// count, so they never need to be guessed.
type Sender struct {
	conn io.Writer
	ssrc uint32

	// Initial sequence number. The current sequence number is computed from
	// sequenceStart and count.
	sequenceStart uint16

	// Number of RTP packets sent.
	count uint64

	// Total number of payload bytes sent.
	totalBytes uint64

	// Buffer used for serializing packets.
	buf *packet.Writer

	// SRTP cryptographic context, owned by this sender.
	crypto *srtp.Context

	sync.Mutex
}

func NewSender(conn io.Writer, ssrc uint32, sequenceStart uint16, crypto *srtp.Context, maxPacketSize int) *Sender {
	return &Sender{
		conn:          conn,
		ssrc:          ssrc,
		sequenceStart: sequenceStart,
		buf:           packet.NewWriterSize(maxPacketSize),
		crypto:        crypto,
	}
}

// WritePacket encrypts, authenticates, and sends a single RTP packet.
func (s *Sender) WritePacket(payloadType byte, marker bool, timestamp uint32, payload []byte) error {
	s.Lock()
	defer s.Unlock()

	p := s.buf
	p.Reset()

	index := s.index()
	hdr := Header{
		Marker:         marker,
		PayloadType:    payloadType,
		SequenceNumber: uint16(index),
		Timestamp:      timestamp,
		SSRC:           s.ssrc,
	}
	if err := hdr.MarshalTo(p); err != nil {
		return err
	}
	if err := p.WriteSlice(payload); err != nil {
		return err
	}
	if err := s.crypto.EncryptRTP(p, hdr.Length(), s.ssrc, index); err != nil {
		return err
	}

	if _, err := s.conn.Write(p.Bytes()); err != nil {
		return err
	}
	s.count++
	s.totalBytes += uint64(len(payload))
	return nil
}

// Compute the RTP packet index, also known as the extended sequence number.
// Equivalent to rolloverCounter*2^16 + sequenceNumber (i.e. ROC || SEQ).
func (s *Sender) index() uint64 {
	return s.count + uint64(s.sequenceStart)
}

func (s *Sender) SSRC() uint32 {
	return s.ssrc
}

// SequenceNumber returns the sequence number of the next packet.
func (s *Sender) SequenceNumber() uint16 {
	s.Lock()
	defer s.Unlock()
	return uint16(s.index())
}

// Compute the rollover counter, which starts at 0 and increases by 1 every time
// the 16-bit sequence number rolls over.
func (s *Sender) RolloverCounter() uint32 {
	s.Lock()
	defer s.Unlock()
	return uint32(s.index() >> 16)
}

// Stats returns the packet and payload octet counts for Sender Reports.
func (s *Sender) Stats() (packets, octets uint32) {
	s.Lock()
	defer s.Unlock()
	return uint32(s.count), uint32(s.totalBytes)
}
