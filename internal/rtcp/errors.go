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

	errors "golang.org/x/xerrors"
)

var (
	// ErrInvalidPacket matches every decode failure, so callers can drop the
	// datagram with a single check.
	ErrInvalidPacket = errors.New("rtcp: invalid packet")

	// ErrNotREMB is returned when payload-specific feedback with format 15
	// does not carry the "REMB" signature.
	ErrNotREMB = errors.New("rtcp: not a REMB message")
)

var (
	errInvalidHeader   = errors.New("rtcp: invalid header")
	errTooManyReports  = errors.New("rtcp: too many reports")
	errTooManyChunks   = errors.New("rtcp: too many chunks")
	errTooManySources  = errors.New("rtcp: too many sources")
	errSDESTextTooLong = errors.New("rtcp: sdes must be < 255 octets long")
	errSDESMissingType = errors.New("rtcp: sdes item missing type")
	errReasonTooLong   = errors.New("rtcp: reason must be < 255 octets long")
	errFCIAlignment    = errors.New("rtcp: fci must be a multiple of 4 octets")
	errInvalidReport   = errors.New("rtcp: report field out of range")
	errPacketTooLong   = errors.New("rtcp: packet too long for length field")
)

// InvalidPacketError describes why one sub-packet of a compound packet could
// not be decoded.
type InvalidPacketError struct {
	Type   PacketType
	Reason string
}

func (e *InvalidPacketError) Error() string {
	return fmt.Sprintf("rtcp: invalid %v packet: %s", e.Type, e.Reason)
}

func (e *InvalidPacketError) Is(target error) bool {
	return target == ErrInvalidPacket
}

func invalidPacket(t PacketType, reason string) error {
	return &InvalidPacketError{t, reason}
}
