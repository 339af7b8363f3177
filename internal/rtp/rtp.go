package rtp

import (
	"fmt"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/logging"
	"github.com/lanikai/srtplight/internal/packet"
)

var log = logging.DefaultLogger.WithTag("rtp")

// RTP Data Transfer Protocol, as defined in RFC 3550 Section 5.

const (
	// RFC 3550 defines RTP version 2.
	rtpVersion = 2

	headerSize          = 12
	extensionHeaderSize = 4
	maxCSRC             = 15
)

var ErrInvalidPacket = errors.New("rtp: invalid packet")

type errBadVersion byte

func (e errBadVersion) Error() string {
	return fmt.Sprintf("invalid RTP version: %d", byte(e))
}

func (e errBadVersion) Is(target error) bool {
	return target == ErrInvalidPacket
}

// An RTP packet consists of a fixed 12-byte header, zero or more 32-bit CSRC
// identifiers, an optional header extension, followed by the payload itself.
// See https://tools.ietf.org/html/rfc3550#section-5.1
//    0                   1                   2                   3
//    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |V=2|P|X|  CC   |M|     PT      |       sequence number         |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                           timestamp                           |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |           synchronization source (SSRC) identifier            |
//   +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
//   |            contributing source (CSRC) identifiers             |
//   |                             ....                              |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type Header struct {
	// Set when the packet carries padding. On write, Packet sets it from
	// PaddingSize.
	Padding        bool
	Marker         bool
	PayloadType    byte
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	CSRC           []uint32

	// Header extension (RFC 3550 Section 5.3.1). ExtensionPayload must be a
	// multiple of 4 bytes long.
	Extension        bool
	ExtensionProfile uint16
	ExtensionPayload []byte
}

// Length returns the encoded size of the header in bytes.
func (h *Header) Length() int {
	n := headerSize + 4*len(h.CSRC)
	if h.Extension {
		n += extensionHeaderSize + len(h.ExtensionPayload)
	}
	return n
}

// MarshalTo writes the header at the cursor.
func (h *Header) MarshalTo(w *packet.Writer) error {
	if len(h.CSRC) > maxCSRC {
		return errors.Errorf("%d CSRCs: %w", len(h.CSRC), ErrInvalidPacket)
	}
	if h.Extension && len(h.ExtensionPayload)%4 != 0 {
		return errors.Errorf("extension of %d bytes: %w", len(h.ExtensionPayload), ErrInvalidPacket)
	}
	if err := w.CheckCapacity(h.Length()); err != nil {
		return err
	}

	// The first two bytes are packed field by field.
	b, _ := w.Next(2)
	bit, _ := packet.CopyBitsToBuffer(rtpVersion, 2, b, 0)
	bit, _ = packet.CopyBitsToBuffer(boolBit(h.Padding), 1, b, bit)
	bit, _ = packet.CopyBitsToBuffer(boolBit(h.Extension), 1, b, bit)
	bit, _ = packet.CopyBitsToBuffer(uint32(len(h.CSRC)), 4, b, bit)
	bit, _ = packet.CopyBitsToBuffer(boolBit(h.Marker), 1, b, bit)
	packet.CopyBitsToBuffer(uint32(h.PayloadType), 7, b, bit)

	w.WriteUint16(h.SequenceNumber)
	w.WriteUint32(h.Timestamp)
	w.WriteUint32(h.SSRC)
	for _, csrc := range h.CSRC {
		w.WriteUint32(csrc)
	}
	if h.Extension {
		w.WriteUint16(h.ExtensionProfile)
		w.WriteUint16(uint16(len(h.ExtensionPayload) / 4))
		return w.WriteSlice(h.ExtensionPayload)
	}
	return nil
}

// UnmarshalFrom parses a header at the cursor. ExtensionPayload aliases the
// reader's buffer.
func (h *Header) UnmarshalFrom(r *packet.Reader) error {
	if err := r.CheckRemaining(headerSize); err != nil {
		return errors.Errorf("short RTP header: %w", err)
	}

	version, _ := r.PeekBits(0, 2)
	if version != rtpVersion {
		return errBadVersion(version)
	}
	padding, _ := r.PeekBits(2, 1)
	extension, _ := r.PeekBits(3, 1)
	csrcCount, _ := r.PeekBits(4, 4)
	marker, _ := r.PeekBits(8, 1)
	payloadType, _ := r.PeekBits(9, 7)
	r.Skip(2)

	h.Padding = padding == 1
	h.Extension = extension == 1
	h.Marker = marker == 1
	h.PayloadType = byte(payloadType)
	h.SequenceNumber = r.ReadUint16()
	h.Timestamp = r.ReadUint32()
	h.SSRC = r.ReadUint32()

	if err := r.CheckRemaining(4 * int(csrcCount)); err != nil {
		return errors.Errorf("short CSRC list: %w", err)
	}
	h.CSRC = nil
	for i := 0; i < int(csrcCount); i++ {
		h.CSRC = append(h.CSRC, r.ReadUint32())
	}

	h.ExtensionProfile = 0
	h.ExtensionPayload = nil
	if h.Extension {
		if err := r.CheckRemaining(extensionHeaderSize); err != nil {
			return errors.Errorf("short header extension: %w", err)
		}
		h.ExtensionProfile = r.ReadUint16()
		n := 4 * int(r.ReadUint16())
		if err := r.CheckRemaining(n); err != nil {
			return errors.Errorf("short header extension: %w", err)
		}
		h.ExtensionPayload = r.ReadSlice(n)
	}
	return nil
}

// A Packet is an RTP header and its payload.
type Packet struct {
	Header
	Payload []byte

	// Number of padding bytes after the payload, including the final count
	// byte.
	PaddingSize byte
}

func (p *Packet) MarshalTo(w *packet.Writer) error {
	p.Padding = p.PaddingSize > 0
	if err := p.Header.MarshalTo(w); err != nil {
		return err
	}
	if err := w.WriteSlice(p.Payload); err != nil {
		return err
	}
	if p.PaddingSize > 0 {
		if err := w.CheckCapacity(int(p.PaddingSize)); err != nil {
			return err
		}
		w.ZeroPad(int(p.PaddingSize) - 1)
		w.WriteByte(p.PaddingSize)
	}
	return nil
}

// Unmarshal parses a clear RTP packet. Payload aliases buf.
func (p *Packet) Unmarshal(buf []byte) error {
	r := packet.NewReader(buf)
	if err := p.Header.UnmarshalFrom(r); err != nil {
		return err
	}
	return p.setPayload(r.ReadRemaining())
}

// Strip padding from the end of the payload.
func (p *Packet) setPayload(payload []byte) error {
	p.PaddingSize = 0
	if p.Padding {
		if len(payload) == 0 {
			return errors.Errorf("padding flag without padding: %w", ErrInvalidPacket)
		}
		p.PaddingSize = payload[len(payload)-1]
		if p.PaddingSize == 0 || int(p.PaddingSize) > len(payload) {
			return errors.Errorf("padding of %d bytes in %d byte payload: %w", p.PaddingSize, len(payload), ErrInvalidPacket)
		}
		payload = payload[:len(payload)-int(p.PaddingSize)]
	}
	p.Payload = payload
	return nil
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
