// MIT License
//
// Copyright (c) 2018 Pions
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Modification and extensions:
// Copyright (c) 2019 Lanikai Labs. All rights reserved.

package rtcp

import (
	"fmt"

	"github.com/lanikai/srtplight/internal/packet"
)

// PacketType specifies the type of an RTCP packet
type PacketType uint8

// RTCP packet types registered with IANA. See:https://www.iana.org/assignments/rtp-parameters/rtp-parameters.xhtml#rtp-parameters-4
const (
	TypeSenderReport              PacketType = 200 // RFC 3550, 6.4.1
	TypeReceiverReport            PacketType = 201 // RFC 3550, 6.4.2
	TypeSourceDescription         PacketType = 202 // RFC 3550, 6.5
	TypeGoodbye                   PacketType = 203 // RFC 3550, 6.6
	TypeApplicationDefined        PacketType = 204 // RFC 3550, 6.7 (unimplemented)
	TypeTransportSpecificFeedback PacketType = 205 // RFC 4585, 6051
	TypePayloadSpecificFeedback   PacketType = 206 // RFC 4585, 6.3
)

// Transport and Payload specific feedback messages overload the count field to act as a message type. those are listed here
const (
	FormatPLI  uint8 = 1
	FormatSLI  uint8 = 2
	FormatREMB uint8 = 15

	FormatTLN  uint8 = 1
	FormatRRR  uint8 = 5
	FormatCCFB uint8 = 11
)

func (p PacketType) String() string {
	switch p {
	case TypeSenderReport:
		return "SR"
	case TypeReceiverReport:
		return "RR"
	case TypeSourceDescription:
		return "SDES"
	case TypeGoodbye:
		return "BYE"
	case TypeApplicationDefined:
		return "APP"
	case TypeTransportSpecificFeedback:
		return "TSFB"
	case TypePayloadSpecificFeedback:
		return "PSFB"
	default:
		return fmt.Sprintf("PT%d", uint8(p))
	}
}

const rtpVersion = 2

// A Header is the common header shared by all RTCP packets
type Header struct {
	// If the padding bit is set, this individual RTCP packet contains
	// some additional padding octets at the end which are not part of
	// the control information but are included in the length field.
	Padding bool
	// The number of reception reports, sources contained or FMT in this packet (depending on the Type)
	Count uint8
	// The RTCP packet type for this packet
	Type PacketType
	// The length of this RTCP packet in 32-bit words minus one,
	// including the header and any padding.
	Length uint16
}

const (
	headerLength = 4
	countMax     = (1 << 5) - 1
)

// writeTo encodes the Header at the cursor.
//
//  0                   1                   2                   3
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |V=2|P|    RC   |   PT=SR=200   |             length            |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
func (h Header) writeTo(w *packet.Writer) error {
	if h.Count > countMax {
		return errInvalidHeader
	}
	b, err := w.Next(headerLength)
	if err != nil {
		return err
	}
	bit, _ := packet.CopyBitsToBuffer(rtpVersion, 2, b, 0)
	bit, _ = packet.CopyBitsToBuffer(boolBit(h.Padding), 1, b, bit)
	bit, _ = packet.CopyBitsToBuffer(uint32(h.Count), 5, b, bit)
	bit, _ = packet.CopyBitsToBuffer(uint32(h.Type), 8, b, bit)
	packet.CopyBitsToBuffer(uint32(h.Length), 16, b, bit)
	return nil
}

// readFrom decodes the Header at the cursor.
func (h *Header) readFrom(r *packet.Reader) error {
	if err := r.CheckRemaining(headerLength); err != nil {
		return errInvalidHeader
	}

	version, _ := r.PeekBits(0, 2)
	padding, _ := r.PeekBits(2, 1)
	count, _ := r.PeekBits(3, 5)
	packetType, _ := r.PeekBits(8, 8)
	h.Type = PacketType(packetType)
	if version != rtpVersion {
		return invalidPacket(h.Type, "bad version")
	}

	h.Padding = padding == 1
	h.Count = uint8(count)
	r.Skip(2)
	h.Length = r.ReadUint16()
	return nil
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
