package rtcp

import (
	"github.com/lanikai/srtplight/internal/packet"
)

// SDESType is the item type used in the RTCP SDES control packet.
type SDESType uint8

// RTP SDES item types registered with IANA. See: https://www.iana.org/assignments/rtp-parameters/rtp-parameters.xhtml#rtp-parameters-5
const (
	SDESEnd      SDESType = iota // end of SDES list                RFC 3550, 6.5
	SDESCNAME                    // canonical name                  RFC 3550, 6.5.1
	SDESName                     // user name                       RFC 3550, 6.5.2
	SDESEmail                    // user's electronic mail address  RFC 3550, 6.5.3
	SDESPhone                    // user's phone number             RFC 3550, 6.5.4
	SDESLocation                 // geographic user location        RFC 3550, 6.5.5
	SDESTool                     // name of application or tool     RFC 3550, 6.5.6
	SDESNote                     // notice about the source         RFC 3550, 6.5.7
	SDESPrivate                  // private extensions              RFC 3550, 6.5.8  (not implemented)
)

const maxSDESText = 255

// A SourceDescription (SDES) packet describes the sources in an RTP session.
// See https://tools.ietf.org/html/rfc3550#section-6.5.
type SourceDescription struct {
	Chunks []SourceDescriptionChunk
}

// A SourceDescriptionChunk contains items describing a single RTP source
type SourceDescriptionChunk struct {
	// The source (ssrc) or contributing source (csrc) identifier this packet describes
	Source uint32
	Items  []SourceDescriptionItem
}

// A SourceDescriptionItem is a part of a SourceDescription that describes a stream.
// PRIV items are kept as raw text, prefix included.
type SourceDescriptionItem struct {
	Type SDESType
	Text string
}

// Chunk length in bytes: SSRC, items, at least one null octet, then padding
// to the next 32-bit boundary.
func (c SourceDescriptionChunk) length() int {
	n := 4
	for _, item := range c.Items {
		n += 2 + len(item.Text)
	}
	n++
	return (n + 3) &^ 3
}

func (c SourceDescriptionChunk) writeTo(w *packet.Writer) error {
	start := w.Length()
	w.WriteUint32(c.Source)
	for _, item := range c.Items {
		if item.Type == SDESEnd {
			return errSDESMissingType
		}
		if len(item.Text) > maxSDESText {
			return errSDESTextTooLong
		}
		w.WriteByte(byte(item.Type))
		w.WriteByte(byte(len(item.Text)))
		if err := w.WriteString(item.Text); err != nil {
			return err
		}
	}
	w.ZeroPad(start + c.length() - w.Length())
	return nil
}

func (c *SourceDescriptionChunk) readFrom(r *packet.Reader) error {
	if err := r.CheckRemaining(4); err != nil {
		return invalidPacket(TypeSourceDescription, "truncated chunk")
	}
	c.Source = r.ReadUint32()
	c.Items = nil
	for {
		if r.Remaining() == 0 {
			return invalidPacket(TypeSourceDescription, "chunk not terminated")
		}
		t := SDESType(r.ReadByte())
		if t == SDESEnd {
			// The null item is followed by padding up to the next word.
			r.Align(4)
			if r.Remaining() < 0 {
				return invalidPacket(TypeSourceDescription, "truncated chunk")
			}
			return nil
		}
		if r.Remaining() == 0 {
			return invalidPacket(TypeSourceDescription, "truncated item")
		}
		n := int(r.ReadByte())
		if r.Remaining() < n {
			return invalidPacket(TypeSourceDescription, "truncated item")
		}
		c.Items = append(c.Items, SourceDescriptionItem{t, r.ReadString(n)})
	}
}

func (sd *SourceDescription) bodyLength() int {
	n := 0
	for _, c := range sd.Chunks {
		n += c.length()
	}
	return n
}

func (sd *SourceDescription) Header() Header {
	return Header{
		Count:  uint8(len(sd.Chunks)),
		Type:   TypeSourceDescription,
		Length: lengthField(sd.bodyLength()),
	}
}

func (sd *SourceDescription) DestinationSSRC() []uint32 {
	out := make([]uint32, len(sd.Chunks))
	for i, c := range sd.Chunks {
		out[i] = c.Source
	}
	return out
}

func (sd *SourceDescription) MarshalTo(w *packet.Writer) error {
	if len(sd.Chunks) > countMax {
		return errTooManyChunks
	}
	h := sd.Header()
	if err := reserve(w, h.Type, sd.bodyLength()); err != nil {
		return err
	}
	if err := h.writeTo(w); err != nil {
		return err
	}
	for _, c := range sd.Chunks {
		if err := c.writeTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (sd *SourceDescription) unmarshalBody(r *packet.Reader, h Header) error {
	sd.Chunks = nil
	for i := 0; i < int(h.Count); i++ {
		var c SourceDescriptionChunk
		if err := c.readFrom(r); err != nil {
			return err
		}
		sd.Chunks = append(sd.Chunks, c)
	}
	return checkLength(r, h.Type, 0)
}

// CNAME returns the canonical name of the given source, if present.
func (sd *SourceDescription) CNAME(ssrc uint32) (string, bool) {
	for _, c := range sd.Chunks {
		if c.Source != ssrc {
			continue
		}
		for _, item := range c.Items {
			if item.Type == SDESCNAME {
				return item.Text, true
			}
		}
	}
	return "", false
}
