package rtcp

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/packet"
)

// RTP/AVPF profile for RTCP-based feedback.
// See [RFC 4585](https://tools.ietf.org/html/rfc4585).

// Every feedback message starts with the two SSRCs.
// See https://tools.ietf.org/html/rfc4585#section-6.1
//    0                   1                   2                   3
//    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |V=2|P|   FMT   |       PT      |          length               |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                  SSRC of packet sender                        |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                  SSRC of media source                         |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   :            Feedback Control Information (FCI)                 :
const feedbackHeaderLength = 8

func readFeedbackHeader(r *packet.Reader, t PacketType) (sender, media uint32, err error) {
	if r.Remaining() < feedbackHeaderLength {
		return 0, 0, invalidPacket(t, "length mismatch")
	}
	return r.ReadUint32(), r.ReadUint32(), nil
}

// Write the header and both SSRCs of a feedback message whose FCI is fciLen
// bytes long.
func writeFeedbackHeader(w *packet.Writer, h Header, fciLen int, sender, media uint32) error {
	if err := reserve(w, h.Type, feedbackHeaderLength+fciLen); err != nil {
		return err
	}
	if err := h.writeTo(w); err != nil {
		return err
	}
	w.WriteUint32(sender)
	w.WriteUint32(media)
	return nil
}

// Feedback is a transport-layer or payload-specific feedback message whose
// FCI this package does not interpret.
type Feedback struct {
	Type       PacketType // TypeTransportSpecificFeedback or TypePayloadSpecificFeedback
	Format     uint8
	SenderSSRC uint32
	MediaSSRC  uint32
	FCI        []byte
}

func (fb *Feedback) Header() Header {
	return Header{
		Count:  fb.Format,
		Type:   fb.Type,
		Length: lengthField(feedbackHeaderLength + len(fb.FCI)),
	}
}

func (fb *Feedback) DestinationSSRC() []uint32 {
	return []uint32{fb.MediaSSRC}
}

func (fb *Feedback) MarshalTo(w *packet.Writer) error {
	if fb.Type != TypeTransportSpecificFeedback && fb.Type != TypePayloadSpecificFeedback {
		return errors.Errorf("rtcp: %v is not a feedback type", fb.Type)
	}
	if len(fb.FCI)%4 != 0 {
		return errFCIAlignment
	}
	if err := writeFeedbackHeader(w, fb.Header(), len(fb.FCI), fb.SenderSSRC, fb.MediaSSRC); err != nil {
		return err
	}
	return w.WriteSlice(fb.FCI)
}

func (fb *Feedback) unmarshalBody(r *packet.Reader, h Header) (err error) {
	fb.Type = h.Type
	fb.Format = h.Count
	if fb.SenderSSRC, fb.MediaSSRC, err = readFeedbackHeader(r, h.Type); err != nil {
		return err
	}
	fb.FCI = nil
	if r.Remaining() > 0 {
		fb.FCI = append([]byte(nil), r.ReadRemaining()...)
	}
	return nil
}

// PictureLossIndication asks the media sender for a new key frame. It has no
// FCI. See https://tools.ietf.org/html/rfc4585#section-6.3.1
type PictureLossIndication struct {
	SenderSSRC uint32
	MediaSSRC  uint32
}

func (pli *PictureLossIndication) Header() Header {
	return Header{
		Count:  FormatPLI,
		Type:   TypePayloadSpecificFeedback,
		Length: lengthField(feedbackHeaderLength),
	}
}

func (pli *PictureLossIndication) DestinationSSRC() []uint32 {
	return []uint32{pli.MediaSSRC}
}

func (pli *PictureLossIndication) MarshalTo(w *packet.Writer) error {
	return writeFeedbackHeader(w, pli.Header(), 0, pli.SenderSSRC, pli.MediaSSRC)
}

func (pli *PictureLossIndication) unmarshalBody(r *packet.Reader, h Header) (err error) {
	if err := checkLength(r, h.Type, feedbackHeaderLength); err != nil {
		return err
	}
	pli.SenderSSRC, pli.MediaSSRC, err = readFeedbackHeader(r, h.Type)
	return err
}

// A NackPair names one lost packet (PacketID) and a bitmask of up to 16
// following lost packets (LostPackets, bit i for PacketID+i+1).
// See https://tools.ietf.org/html/rfc4585#section-6.2.1
type NackPair struct {
	PacketID    uint16
	LostPackets uint16
}

// PacketList returns the sequence numbers this pair marks as lost.
func (n NackPair) PacketList() []uint16 {
	lost := []uint16{n.PacketID}
	mask := n.LostPackets
	seq := n.PacketID + 1
	for mask != 0 {
		if mask&0x1 == 0x1 {
			lost = append(lost, seq)
		}
		seq++
		mask >>= 1
	}
	return lost
}

// NackPairsFromSequenceNumbers packs lost sequence numbers, in ascending
// order modulo wraparound, into as few pairs as possible.
func NackPairsFromSequenceNumbers(lost []uint16) []NackPair {
	var pairs []NackPair
	for _, seq := range lost {
		if n := len(pairs); n > 0 {
			last := &pairs[n-1]
			if bit := seq - last.PacketID - 1; bit < 16 {
				last.LostPackets |= 1 << bit
				continue
			}
		}
		pairs = append(pairs, NackPair{PacketID: seq})
	}
	return pairs
}

// TransportLayerNack is a generic NACK, listing RTP packets the receiver has
// lost. See https://tools.ietf.org/html/rfc4585#section-6.2.1
type TransportLayerNack struct {
	SenderSSRC uint32
	MediaSSRC  uint32
	Nacks      []NackPair
}

func (nack *TransportLayerNack) Header() Header {
	return Header{
		Count:  FormatTLN,
		Type:   TypeTransportSpecificFeedback,
		Length: lengthField(feedbackHeaderLength + 4*len(nack.Nacks)),
	}
}

func (nack *TransportLayerNack) DestinationSSRC() []uint32 {
	return []uint32{nack.MediaSSRC}
}

// LostPackets returns every sequence number the message reports lost.
func (nack *TransportLayerNack) LostPackets() []uint16 {
	var lost []uint16
	for _, pair := range nack.Nacks {
		lost = append(lost, pair.PacketList()...)
	}
	return lost
}

func (nack *TransportLayerNack) MarshalTo(w *packet.Writer) error {
	if err := writeFeedbackHeader(w, nack.Header(), 4*len(nack.Nacks), nack.SenderSSRC, nack.MediaSSRC); err != nil {
		return err
	}
	for _, pair := range nack.Nacks {
		w.WriteUint16(pair.PacketID)
		w.WriteUint16(pair.LostPackets)
	}
	return nil
}

func (nack *TransportLayerNack) unmarshalBody(r *packet.Reader, h Header) (err error) {
	if nack.SenderSSRC, nack.MediaSSRC, err = readFeedbackHeader(r, h.Type); err != nil {
		return err
	}
	if r.Remaining()%4 != 0 {
		return invalidPacket(h.Type, "fci not word aligned")
	}
	nack.Nacks = nil
	for r.Remaining() > 0 {
		nack.Nacks = append(nack.Nacks, NackPair{r.ReadUint16(), r.ReadUint16()})
	}
	return nil
}
