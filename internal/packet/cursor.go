// Package packet has the cursors and bit helpers the RTP, RTCP and SRTP
// codecs are built on. All multi-byte fields are big-endian.
package packet

import (
	"encoding/binary"

	errors "golang.org/x/xerrors"
)

var ErrShortBuffer = errors.New("packet: short buffer")

var networkOrder = binary.BigEndian

// Position within a fixed buffer, shared by Reader and Writer.
type cursor struct {
	buf []byte
	off int
}

// Offset returns the number of bytes read or written so far.
func (c *cursor) Offset() int {
	return c.off
}

func (c *cursor) left() int {
	return len(c.buf) - c.off
}

func (c *cursor) need(n int, verb string) error {
	if c.left() < n {
		return errors.Errorf("%d bytes %s, %d needed: %w", c.left(), verb, n, ErrShortBuffer)
	}
	return nil
}

// Advance n bytes and return the span passed over.
func (c *cursor) take(n int) []byte {
	v := c.buf[c.off : c.off+n]
	c.off += n
	return v
}

// Distance to the next multiple of width.
func (c *cursor) padding(width int) int {
	return (width - c.off%width) % width
}
