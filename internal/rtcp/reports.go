package rtcp

import (
	"github.com/lanikai/srtplight/internal/packet"
)

const receptionReportLength = 6 * 4

// A ReceptionReport is the report block carried in sender and receiver
// reports. See https://tools.ietf.org/html/rfc3550#section-6.4.1.
type ReceptionReport struct {
	// The source that this report refers to.
	SSRC uint32

	// Fraction of packets lost since the last report, in units of 1/256.
	FractionLost uint8

	// Total packets lost from this source for the entire session. This is a
	// signed 24-bit field on the wire; it is kept as the raw unsigned value.
	TotalLost uint32

	// Extended sequence number of last packet received from this source.
	LastSequenceNumber uint32

	// Interarrival jitter, measured in timestamp units.
	Jitter uint32

	// Middle 32 bits of the NTP timestamp of the most recent Sender Report
	// from this source.
	LastSenderReport uint32

	// Time in 1/65536 seconds since the most recent Sender Report from this
	// source (or 0, if no SR has been received).
	Delay uint32
}

func (rr ReceptionReport) writeTo(w *packet.Writer) error {
	if rr.TotalLost >= 1<<24 {
		return errInvalidReport
	}
	w.WriteUint32(rr.SSRC)
	w.WriteByte(rr.FractionLost)
	w.WriteUint24(rr.TotalLost)
	w.WriteUint32(rr.LastSequenceNumber)
	w.WriteUint32(rr.Jitter)
	w.WriteUint32(rr.LastSenderReport)
	w.WriteUint32(rr.Delay)
	return nil
}

func (rr *ReceptionReport) readFrom(r *packet.Reader) {
	rr.SSRC = r.ReadUint32()
	rr.FractionLost = r.ReadByte()
	rr.TotalLost = r.ReadUint24()
	rr.LastSequenceNumber = r.ReadUint32()
	rr.Jitter = r.ReadUint32()
	rr.LastSenderReport = r.ReadUint32()
	rr.Delay = r.ReadUint32()
}

func writeReports(w *packet.Writer, reports []ReceptionReport) error {
	for i := range reports {
		if err := reports[i].writeTo(w); err != nil {
			return err
		}
	}
	return nil
}

func readReports(r *packet.Reader, count uint8) []ReceptionReport {
	if count == 0 {
		return nil
	}
	reports := make([]ReceptionReport, count)
	for i := range reports {
		reports[i].readFrom(r)
	}
	return reports
}

func reportSSRCs(reports []ReceptionReport) []uint32 {
	out := make([]uint32, len(reports))
	for i, rr := range reports {
		out[i] = rr.SSRC
	}
	return out
}

// A SenderReport (SR) carries transmission statistics from an active sender,
// plus reception reports about other sources.
// See https://tools.ietf.org/html/rfc3550#section-6.4.1.
//    0                   1                   2                   3
//    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |V=2|P|    RC   |   PT=SR=200   |             length            |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                         SSRC of sender                        |
//   +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
//   |              NTP timestamp, most significant word             |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |             NTP timestamp, least significant word             |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                         RTP timestamp                         |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                     sender's packet count                     |
//   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//   |                      sender's octet count                     |
//   +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
//   |                 report blocks (24 bytes each)                 |
type SenderReport struct {
	SSRC        uint32
	NTPTime     uint64
	RTPTime     uint32
	PacketCount uint32
	OctetCount  uint32
	Reports     []ReceptionReport
}

const senderInfoLength = 6 * 4

func (sr *SenderReport) Header() Header {
	return Header{
		Count:  uint8(len(sr.Reports)),
		Type:   TypeSenderReport,
		Length: lengthField(senderInfoLength + receptionReportLength*len(sr.Reports)),
	}
}

func (sr *SenderReport) DestinationSSRC() []uint32 {
	return append(reportSSRCs(sr.Reports), sr.SSRC)
}

func (sr *SenderReport) MarshalTo(w *packet.Writer) error {
	if len(sr.Reports) > countMax {
		return errTooManyReports
	}
	h := sr.Header()
	if err := reserve(w, h.Type, senderInfoLength+receptionReportLength*len(sr.Reports)); err != nil {
		return err
	}
	if err := h.writeTo(w); err != nil {
		return err
	}
	w.WriteUint32(sr.SSRC)
	w.WriteUint64(sr.NTPTime)
	w.WriteUint32(sr.RTPTime)
	w.WriteUint32(sr.PacketCount)
	w.WriteUint32(sr.OctetCount)
	return writeReports(w, sr.Reports)
}

func (sr *SenderReport) unmarshalBody(r *packet.Reader, h Header) error {
	if err := checkLength(r, h.Type, senderInfoLength+receptionReportLength*int(h.Count)); err != nil {
		return err
	}
	sr.SSRC = r.ReadUint32()
	sr.NTPTime = r.ReadUint64()
	sr.RTPTime = r.ReadUint32()
	sr.PacketCount = r.ReadUint32()
	sr.OctetCount = r.ReadUint32()
	sr.Reports = readReports(r, h.Count)
	return nil
}

// A ReceiverReport (RR) carries reception statistics from a participant that
// is not an active sender.
// See https://tools.ietf.org/html/rfc3550#section-6.4.2.
type ReceiverReport struct {
	SSRC    uint32
	Reports []ReceptionReport
}

func (rr *ReceiverReport) Header() Header {
	return Header{
		Count:  uint8(len(rr.Reports)),
		Type:   TypeReceiverReport,
		Length: lengthField(4 + receptionReportLength*len(rr.Reports)),
	}
}

func (rr *ReceiverReport) DestinationSSRC() []uint32 {
	return reportSSRCs(rr.Reports)
}

func (rr *ReceiverReport) MarshalTo(w *packet.Writer) error {
	if len(rr.Reports) > countMax {
		return errTooManyReports
	}
	h := rr.Header()
	if err := reserve(w, h.Type, 4+receptionReportLength*len(rr.Reports)); err != nil {
		return err
	}
	if err := h.writeTo(w); err != nil {
		return err
	}
	w.WriteUint32(rr.SSRC)
	return writeReports(w, rr.Reports)
}

func (rr *ReceiverReport) unmarshalBody(r *packet.Reader, h Header) error {
	if err := checkLength(r, h.Type, 4+receptionReportLength*int(h.Count)); err != nil {
		return err
	}
	rr.SSRC = r.ReadUint32()
	rr.Reports = readReports(r, h.Count)
	return nil
}
