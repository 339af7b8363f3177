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

package srtp

import (
	"encoding/binary"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/packet"
)

const (
	// Size of the fixed RTCP header that stays in the clear.
	rtcpHeaderSize = 8

	srtcpIndexSize = 4

	// E-flag that gets combined with SRTCP index.
	eFlagMask = 1 << 31

	// MaxSRTCPIndex is the largest 31-bit SRTCP index.
	MaxSRTCPIndex = eFlagMask - 1
)

// EncryptRTCP encrypts the RTCP packet held in w in place, then appends
// E || SRTCP index and the authentication tag. Everything after the first
// 8 bytes is encrypted, as in RFC 5506.
// See https://tools.ietf.org/html/rfc3711#section-3.4
func (c *Context) EncryptRTCP(w *packet.Writer, index uint32) error {
	buf := w.Bytes()
	if len(buf) < rtcpHeaderSize {
		return errors.Errorf("%d byte RTCP packet: %w", len(buf), ErrShortPacket)
	}
	if err := w.CheckCapacity(srtcpIndexSize + c.tagLen); err != nil {
		return err
	}

	index &= MaxSRTCPIndex
	ssrc := binary.BigEndian.Uint32(buf[4:8])
	if err := c.Cipher(buf[8:], buf[8:], ssrc, uint64(index)); err != nil {
		return err
	}

	// From https://tools.ietf.org/html/rfc3711#section-4.2:
	//   in the case of SRTCP, M SHALL consist of the Authenticated Portion (as
	//   specified in Figure 2) only.
	w.WriteUint32(eFlagMask | index)
	tag, err := c.AuthTag(w.Bytes())
	if err != nil {
		return err
	}
	return w.WriteSlice(tag)
}

// DecryptRTCP verifies the auth tag of an SRTCP packet, then decrypts it in
// place. It returns the clear compound RTCP packet (without the index and
// tag), the SRTCP index, and whether the E-flag was set. This is the inverse
// of EncryptRTCP. On failure the context is left as it was.
func (c *Context) DecryptRTCP(buf []byte) (out []byte, index uint32, encrypted bool, err error) {
	if len(buf) < rtcpHeaderSize+srtcpIndexSize+c.tagLen {
		return nil, 0, false, errors.Errorf("%d byte SRTCP packet: %w", len(buf), ErrShortPacket)
	}

	tagStart := len(buf) - c.tagLen
	indexStart := tagStart - srtcpIndexSize
	word := binary.BigEndian.Uint32(buf[indexStart:])
	index = word &^ eFlagMask
	encrypted = word&eFlagMask != 0

	if err = c.VerifyAt(uint64(index), buf[tagStart:], buf[:tagStart]); err != nil {
		return nil, 0, false, err
	}

	out = buf[:indexStart]
	if encrypted {
		ssrc := binary.BigEndian.Uint32(out[4:8])
		if err = c.Cipher(out[8:], out[8:], ssrc, uint64(index)); err != nil {
			return nil, 0, false, err
		}
	}
	return out, index, encrypted, nil
}
