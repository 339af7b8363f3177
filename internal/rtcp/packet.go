package rtcp

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/logging"
	"github.com/lanikai/srtplight/internal/packet"
)

var log = logging.DefaultLogger.WithTag("rtcp")

// Packet represents an RTCP packet, a protocol used for out-of-band
// statistics and control information for an RTP session. The set of
// implementations is closed; Unmarshal produces one of the types in this
// package.
type Packet interface {
	// Header returns the header this packet encodes with, including the
	// length field computed from the packet's own contents.
	Header() Header

	// DestinationSSRC returns an array of SSRC values that this packet refers to.
	DestinationSSRC() []uint32

	// MarshalTo writes the packet, header included, at the cursor.
	MarshalTo(w *packet.Writer) error

	// unmarshalBody decodes everything after the header. r covers exactly
	// the body, with any padding already removed.
	unmarshalBody(r *packet.Reader, h Header) error
}

// Marshal encodes one or more packets as a single compound packet.
func Marshal(packets ...Packet) ([]byte, error) {
	n := 0
	for _, p := range packets {
		n += 4 * (int(p.Header().Length) + 1)
	}
	w := packet.NewWriterSize(n)
	if err := MarshalTo(w, packets...); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MarshalTo encodes one or more packets as a single compound packet at the
// cursor.
// See https://tools.ietf.org/html/rfc3550#section-6.1.
func MarshalTo(w *packet.Writer, packets ...Packet) error {
	for _, p := range packets {
		if err := p.MarshalTo(w); err != nil {
			return errors.Errorf("marshal %v: %w", p.Header().Type, err)
		}
	}
	return nil
}

// Unmarshal decodes a compound RTCP packet into its parts. Packet types this
// package does not know are skipped. One malformed part fails the whole
// compound packet; errors match ErrInvalidPacket.
func Unmarshal(buf []byte) ([]Packet, error) {
	r := packet.NewReader(buf)

	var packets []Packet
	for r.Remaining() >= headerLength {
		var h Header
		if err := h.readFrom(r); err != nil {
			return nil, err
		}

		n := 4 * int(h.Length)
		if r.Remaining() < n {
			return nil, invalidPacket(h.Type, "length exceeds buffer")
		}
		body := r.ReadSlice(n)
		if h.Padding {
			if n == 0 {
				return nil, invalidPacket(h.Type, "padding flag without padding")
			}
			pad := int(body[n-1])
			if pad == 0 || pad > n {
				return nil, invalidPacket(h.Type, "bad padding")
			}
			body = body[:n-pad]
		}

		p, err := unmarshalPacket(h, body)
		if err != nil {
			return nil, err
		}
		if p == nil {
			log.Debug("skipping unimplemented RTCP packet type: %d", h.Type)
			continue
		}
		packets = append(packets, p)
	}
	if r.Remaining() > 0 {
		log.Debug("ignoring %d trailing bytes after compound RTCP packet", r.Remaining())
	}
	return packets, nil
}

func unmarshalPacket(h Header, body []byte) (Packet, error) {
	p := newPacket(h)
	if p == nil {
		return nil, nil
	}
	err := p.unmarshalBody(packet.NewReader(body), h)
	if errors.Is(err, ErrNotREMB) {
		// Format 15 is only REMB by convention.
		p = new(Feedback)
		err = p.unmarshalBody(packet.NewReader(body), h)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Dispatch on packet type, and on format for the feedback types.
func newPacket(h Header) Packet {
	switch h.Type {
	case TypeSenderReport:
		return new(SenderReport)
	case TypeReceiverReport:
		return new(ReceiverReport)
	case TypeSourceDescription:
		return new(SourceDescription)
	case TypeGoodbye:
		return new(Goodbye)
	case TypeTransportSpecificFeedback:
		switch h.Count {
		case FormatTLN:
			return new(TransportLayerNack)
		case FormatCCFB:
			return new(CongestionControlFeedback)
		default:
			return new(Feedback)
		}
	case TypePayloadSpecificFeedback:
		switch h.Count {
		case FormatPLI:
			return new(PictureLossIndication)
		case FormatREMB:
			return new(ReceiverEstimatedMaximumBitrate)
		default:
			return new(Feedback)
		}
	default:
		return nil
	}
}

// Check that the body holds exactly the expected number of bytes.
func checkLength(r *packet.Reader, t PacketType, want int) error {
	if r.Remaining() != want {
		return invalidPacket(t, "length mismatch")
	}
	return nil
}

// Largest body the 16-bit length field can describe, in bytes.
const maxBodyLength = 4 * 0xffff

// Compute the header length field for a body of n bytes. Bodies longer than
// maxBodyLength do not fit; MarshalTo rejects them through reserve.
func lengthField(n int) uint16 {
	return uint16((headerLength+n+3)/4 - 1)
}

// Check that a body of n bytes can be encoded, and that w has room for it
// and the header.
func reserve(w *packet.Writer, t PacketType, n int) error {
	n = (n + 3) &^ 3
	if n > maxBodyLength {
		return errors.Errorf("%v body of %d bytes: %w", t, n, errPacketTooLong)
	}
	return w.CheckCapacity(headerLength + n)
}
