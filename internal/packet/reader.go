package packet

// A Reader walks a received packet. Callers check CheckRemaining before a
// run of fixed-size reads; the Read methods themselves do not check bounds.
type Reader struct {
	cursor
}

func NewReader(buf []byte) *Reader {
	return &Reader{cursor{buf: buf}}
}

func (r *Reader) ReadByte() byte {
	return r.take(1)[0]
}

func (r *Reader) ReadUint16() uint16 {
	return networkOrder.Uint16(r.take(2))
}

func (r *Reader) ReadUint24() uint32 {
	b := r.take(3)
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func (r *Reader) ReadUint32() uint32 {
	return networkOrder.Uint32(r.take(4))
}

func (r *Reader) ReadUint64() uint64 {
	return networkOrder.Uint64(r.take(8))
}

// ReadSlice returns the next n bytes without copying.
func (r *Reader) ReadSlice(n int) []byte {
	return r.take(n)
}

func (r *Reader) ReadString(n int) string {
	return string(r.take(n))
}

// PeekBits reads an n-bit field that starts bit bits past the cursor, without
// moving the cursor. Header fields are peeked, then skipped as whole bytes.
func (r *Reader) PeekBits(bit, n int) (uint16, error) {
	return CopyBitsFromBuffer(r.buf[r.off:], bit, n)
}

func (r *Reader) Skip(n int) {
	r.off += n
}

// Align skips to the next multiple of width, e.g. past the padding after an
// SDES chunk.
func (r *Reader) Align(width int) {
	r.off += r.padding(width)
}

// ReadRemaining returns everything after the cursor without copying.
func (r *Reader) ReadRemaining() []byte {
	return r.take(r.left())
}

func (r *Reader) Remaining() int {
	return r.left()
}

func (r *Reader) CheckRemaining(needed int) error {
	return r.need(needed, "remaining")
}
