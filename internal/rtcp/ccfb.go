package rtcp

import (
	"github.com/lanikai/srtplight/internal/packet"
)

// RTP Control Protocol (RTCP) Feedback for Congestion Control. Transport
// feedback with format 11, one metric block per received packet.
// See https://tools.ietf.org/html/rfc8888#section-3.1
//    0                   1                   2                   3
//    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |V=2|P| FMT=11  |   PT = 205    |          length               |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                 SSRC of RTCP packet sender                    |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                   SSRC of 1st RTP Stream                      |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |          begin_seq            |          num_reports          |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |R|ECN|  Arrival time offset    | ...                           .
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   .                                                               .
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                   SSRC of nth RTP Stream                      |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   .                                                               .
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                 Report Timestamp (32 bits)                    |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

const (
	ccfbStreamHeaderLength = 8
	ccfbTimestampLength    = 4
	ccfbMaxArrivalOffset   = 0x1fff
)

// CCFBReport is the metric block for one RTP packet.
type CCFBReport struct {
	Received bool

	// ECN codepoint, 2 bits.
	ECN uint8

	// Arrival time offset before the report timestamp, in 1/1024 seconds.
	// Only the low 13 bits are sent.
	ArrivalTimeOffset uint16
}

// CCFBStream lists the metric blocks for consecutive packets of one stream,
// starting at BeginSequence.
type CCFBStream struct {
	SSRC          uint32
	BeginSequence uint16
	Reports       []CCFBReport
}

func (s CCFBStream) length() int {
	return ccfbStreamHeaderLength + (2*len(s.Reports)+3)&^3
}

func (s CCFBStream) writeTo(w *packet.Writer) error {
	if len(s.Reports) > 0xffff {
		return invalidPacket(TypeTransportSpecificFeedback, "too many reports in stream")
	}
	w.WriteUint32(s.SSRC)
	w.WriteUint16(s.BeginSequence)
	w.WriteUint16(uint16(len(s.Reports)))
	for _, report := range s.Reports {
		b, err := w.Next(2)
		if err != nil {
			return err
		}
		bit, _ := packet.CopyBitsToBuffer(boolBit(report.Received), 1, b, 0)
		bit, _ = packet.CopyBitsToBuffer(uint32(report.ECN), 2, b, bit)
		packet.CopyBitsToBuffer(uint32(report.ArrivalTimeOffset&ccfbMaxArrivalOffset), 13, b, bit)
	}
	w.Align(4)
	return nil
}

func (s *CCFBStream) readFrom(r *packet.Reader) error {
	if r.Remaining() < ccfbStreamHeaderLength {
		return invalidPacket(TypeTransportSpecificFeedback, "truncated stream")
	}
	s.SSRC = r.ReadUint32()
	s.BeginSequence = r.ReadUint16()
	n := int(r.ReadUint16())
	if r.Remaining() < (2*n+3)&^3 {
		return invalidPacket(TypeTransportSpecificFeedback, "truncated reports")
	}
	s.Reports = make([]CCFBReport, n)
	for i := range s.Reports {
		b := r.ReadSlice(2)
		received, _ := packet.CopyBitsFromBuffer(b, 0, 1)
		ecn, _ := packet.CopyBitsFromBuffer(b, 1, 2)
		offset, _ := packet.CopyBitsFromBuffer(b, 3, 13)
		s.Reports[i] = CCFBReport{received == 1, uint8(ecn), offset}
	}
	if n%2 == 1 {
		r.Skip(2)
	}
	return nil
}

// CongestionControlFeedback reports per-packet arrival information for one or
// more RTP streams.
type CongestionControlFeedback struct {
	SenderSSRC uint32
	Streams    []CCFBStream

	// Middle 32 bits of the NTP time at which the report was generated.
	ReportTimestamp uint32
}

func (cc *CongestionControlFeedback) bodyLength() int {
	n := 4 + ccfbTimestampLength
	for _, s := range cc.Streams {
		n += s.length()
	}
	return n
}

func (cc *CongestionControlFeedback) Header() Header {
	return Header{
		Count:  FormatCCFB,
		Type:   TypeTransportSpecificFeedback,
		Length: lengthField(cc.bodyLength()),
	}
}

func (cc *CongestionControlFeedback) DestinationSSRC() []uint32 {
	out := make([]uint32, len(cc.Streams))
	for i, s := range cc.Streams {
		out[i] = s.SSRC
	}
	return out
}

func (cc *CongestionControlFeedback) MarshalTo(w *packet.Writer) error {
	h := cc.Header()
	if err := reserve(w, h.Type, cc.bodyLength()); err != nil {
		return err
	}
	if err := h.writeTo(w); err != nil {
		return err
	}
	w.WriteUint32(cc.SenderSSRC)
	for _, s := range cc.Streams {
		if err := s.writeTo(w); err != nil {
			return err
		}
	}
	w.WriteUint32(cc.ReportTimestamp)
	return nil
}

func (cc *CongestionControlFeedback) unmarshalBody(r *packet.Reader, h Header) error {
	if r.Remaining() < 4+ccfbTimestampLength {
		return invalidPacket(h.Type, "length mismatch")
	}
	cc.SenderSSRC = r.ReadUint32()
	cc.Streams = nil
	for r.Remaining() > ccfbTimestampLength {
		var s CCFBStream
		if err := s.readFrom(r); err != nil {
			return err
		}
		cc.Streams = append(cc.Streams, s)
	}
	if err := checkLength(r, h.Type, ccfbTimestampLength); err != nil {
		return err
	}
	cc.ReportTimestamp = r.ReadUint32()
	return nil
}
