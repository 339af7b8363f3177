package rtcp

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/lanikai/srtplight/internal/packet"
)

// Receiver Estimated Maximum Bitrate, a payload-specific feedback message
// with format 15 and an application-layer FCI.
// See https://tools.ietf.org/html/draft-alvestrand-rmcat-remb-03
//    0                   1                   2                   3
//    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |V=2|P| FMT=15  |   PT=206      |             length            |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                  SSRC of packet sender                        |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                  SSRC of media source (always 0)              |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |  Unique identifier 'R' 'E' 'M' 'B'                            |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |  Num SSRC     | BR Exp    |  BR Mantissa                      |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |   SSRC feedback                                               |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |  ...                                                          |

var rembSignature = []byte{'R', 'E', 'M', 'B'}

const (
	rembHeaderLength = 8
	mantissaBits     = 18
	mantissaMask     = 1<<mantissaBits - 1
	exponentMask     = 0x3f

	// The mantissa always spans at least bits 0..17.
	minTopBit = mantissaBits - 1
)

// Split a bitrate into a 6-bit exponent and 18-bit mantissa, choosing the
// smallest exponent that keeps the mantissa in range. The result is the
// largest representable value not above bitrate.
func encodeBitrate(bitrate uint64) (exp uint8, mantissa uint32) {
	topBit := minTopBit
	for i := 63; i > minTopBit; i-- {
		if bitrate>>uint(i)&1 == 1 {
			topBit = i
			break
		}
	}
	exp = uint8(topBit - minTopBit)
	return exp, uint32(bitrate >> exp)
}

// Saturates rather than overflowing for exponents above 46.
func decodeBitrate(exp uint8, mantissa uint32) uint64 {
	if mantissa != 0 && bits.LeadingZeros64(uint64(mantissa)) < int(exp) {
		return math.MaxUint64
	}
	return uint64(mantissa) << exp
}

// DecodeBWE extracts the bitrate estimate from a REMB FCI.
func DecodeBWE(fci []byte) (uint64, error) {
	if len(fci) < 4 || !bytes.Equal(fci[:4], rembSignature) {
		return 0, ErrNotREMB
	}
	if len(fci) < rembHeaderLength {
		return 0, invalidPacket(TypePayloadSpecificFeedback, "truncated fci")
	}
	word := binary.BigEndian.Uint32(fci[4:8])
	return decodeBitrate(uint8(word>>mantissaBits&exponentMask), word&mantissaMask), nil
}

// EncodeBWE builds a REMB FCI announcing bitrate for a single SSRC.
func EncodeBWE(bitrate uint64, ssrc uint32) []byte {
	w := packet.NewWriterSize(rembHeaderLength + 4)
	writeREMBFCI(w, bitrate, []uint32{ssrc})
	return w.Bytes()
}

func writeREMBFCI(w *packet.Writer, bitrate uint64, ssrcs []uint32) {
	exp, mantissa := encodeBitrate(bitrate)
	w.WriteSlice(rembSignature)
	b, _ := w.Next(4)
	bit, _ := packet.CopyBitsToBuffer(uint32(len(ssrcs)), 8, b, 0)
	bit, _ = packet.CopyBitsToBuffer(uint32(exp), 6, b, bit)
	packet.CopyBitsToBuffer(mantissa, mantissaBits, b, bit)
	for _, ssrc := range ssrcs {
		w.WriteUint32(ssrc)
	}
}

// ReceiverEstimatedMaximumBitrate (REMB) carries a receiver's bandwidth
// estimate for a set of media streams.
type ReceiverEstimatedMaximumBitrate struct {
	SenderSSRC uint32

	// Estimated maximum bitrate in bits per second. On the wire it is rounded
	// down to an 18-bit mantissa and 6-bit exponent.
	Bitrate uint64

	// SSRCs of the media streams the estimate applies to.
	SSRCs []uint32
}

const maxREMBSSRCs = 255

func (remb *ReceiverEstimatedMaximumBitrate) Header() Header {
	return Header{
		Count:  FormatREMB,
		Type:   TypePayloadSpecificFeedback,
		Length: lengthField(feedbackHeaderLength + rembHeaderLength + 4*len(remb.SSRCs)),
	}
}

func (remb *ReceiverEstimatedMaximumBitrate) DestinationSSRC() []uint32 {
	return append([]uint32(nil), remb.SSRCs...)
}

func (remb *ReceiverEstimatedMaximumBitrate) MarshalTo(w *packet.Writer) error {
	if len(remb.SSRCs) > maxREMBSSRCs {
		return errTooManySources
	}
	if err := writeFeedbackHeader(w, remb.Header(), rembHeaderLength+4*len(remb.SSRCs), remb.SenderSSRC, 0); err != nil {
		return err
	}
	writeREMBFCI(w, remb.Bitrate, remb.SSRCs)
	return nil
}

func (remb *ReceiverEstimatedMaximumBitrate) unmarshalBody(r *packet.Reader, h Header) (err error) {
	if remb.SenderSSRC, _, err = readFeedbackHeader(r, h.Type); err != nil {
		return err
	}
	fci := r.ReadRemaining()
	if remb.Bitrate, err = DecodeBWE(fci); err != nil {
		return err
	}
	n := int(fci[4])
	if len(fci) != rembHeaderLength+4*n {
		return invalidPacket(h.Type, "length mismatch")
	}
	remb.SSRCs = nil
	for i := 0; i < n; i++ {
		remb.SSRCs = append(remb.SSRCs, binary.BigEndian.Uint32(fci[rembHeaderLength+4*i:]))
	}
	return nil
}
