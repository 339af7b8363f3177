package rtcp

import (
	"github.com/lanikai/srtplight/internal/packet"
)

// A Goodbye (BYE) packet indicates that one or more sources are no longer
// active. See https://tools.ietf.org/html/rfc3550#section-6.6.
//        0                   1                   2                   3
//        0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//       |V=2|P|    SC   |   PT=BYE=203  |             length            |
//       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//       |                           SSRC/CSRC                           |
//       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//       :                              ...                              :
//       +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
// (opt) |     length    |               reason for leaving            ...
//       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type Goodbye struct {
	Sources []uint32
	Reason  string
}

func (g *Goodbye) bodyLength() int {
	n := 4 * len(g.Sources)
	if g.Reason != "" {
		n += 1 + len(g.Reason)
	}
	return (n + 3) &^ 3
}

func (g *Goodbye) Header() Header {
	return Header{
		Count:  uint8(len(g.Sources)),
		Type:   TypeGoodbye,
		Length: lengthField(g.bodyLength()),
	}
}

func (g *Goodbye) DestinationSSRC() []uint32 {
	return append([]uint32(nil), g.Sources...)
}

func (g *Goodbye) MarshalTo(w *packet.Writer) error {
	if len(g.Sources) > countMax {
		return errTooManySources
	}
	if len(g.Reason) > maxSDESText {
		return errReasonTooLong
	}
	h := g.Header()
	if err := reserve(w, h.Type, g.bodyLength()); err != nil {
		return err
	}
	if err := h.writeTo(w); err != nil {
		return err
	}
	start := w.Length()
	for _, ssrc := range g.Sources {
		w.WriteUint32(ssrc)
	}
	if g.Reason != "" {
		w.WriteByte(byte(len(g.Reason)))
		if err := w.WriteString(g.Reason); err != nil {
			return err
		}
	}
	w.ZeroPad(start + g.bodyLength() - w.Length())
	return nil
}

func (g *Goodbye) unmarshalBody(r *packet.Reader, h Header) error {
	if r.Remaining() < 4*int(h.Count) {
		return invalidPacket(h.Type, "length mismatch")
	}
	g.Sources = nil
	for i := 0; i < int(h.Count); i++ {
		g.Sources = append(g.Sources, r.ReadUint32())
	}

	g.Reason = ""
	if r.Remaining() > 0 {
		n := int(r.ReadByte())
		if r.Remaining() < n {
			return invalidPacket(h.Type, "truncated reason")
		}
		g.Reason = r.ReadString(n)
	}
	return nil
}
