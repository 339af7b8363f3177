package packet

// A Writer fills a fixed-size output buffer. As with Reader, the fixed-size
// Write methods assume the caller has checked capacity first.
type Writer struct {
	cursor
}

func NewWriter(buf []byte) *Writer {
	return &Writer{cursor{buf: buf}}
}

func NewWriterSize(n int) *Writer {
	return NewWriter(make([]byte, n))
}

func (w *Writer) WriteByte(v byte) {
	w.take(1)[0] = v
}

func (w *Writer) WriteUint16(v uint16) {
	networkOrder.PutUint16(w.take(2), v)
}

func (w *Writer) WriteUint24(v uint32) {
	b := w.take(3)
	b[0], b[1], b[2] = byte(v>>16), byte(v>>8), byte(v)
}

func (w *Writer) WriteUint32(v uint32) {
	networkOrder.PutUint32(w.take(4), v)
}

func (w *Writer) WriteUint64(v uint64) {
	networkOrder.PutUint64(w.take(8), v)
}

// WriteSlice copies p at the cursor, if it fits.
func (w *Writer) WriteSlice(p []byte) error {
	if err := w.CheckCapacity(len(p)); err != nil {
		return err
	}
	copy(w.take(len(p)), p)
	return nil
}

func (w *Writer) WriteString(s string) error {
	if err := w.CheckCapacity(len(s)); err != nil {
		return err
	}
	copy(w.take(len(s)), s)
	return nil
}

// Next reserves the next n bytes and returns them for in-place filling, e.g.
// with the bit codec.
func (w *Writer) Next(n int) ([]byte, error) {
	if err := w.CheckCapacity(n); err != nil {
		return nil, err
	}
	return w.take(n), nil
}

// ZeroPad writes n zero bytes. The buffer may be reused, so they are written
// explicitly.
func (w *Writer) ZeroPad(n int) {
	b := w.take(n)
	for i := range b {
		b[i] = 0
	}
}

// Align zero-pads up to the next multiple of width.
func (w *Writer) Align(width int) {
	w.ZeroPad(w.padding(width))
}

// Length returns the number of bytes written so far.
func (w *Writer) Length() int {
	return w.off
}

// Capacity returns the number of bytes that can still be written.
func (w *Writer) Capacity() int {
	return w.left()
}

func (w *Writer) CheckCapacity(needed int) error {
	return w.need(needed, "available")
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.off]
}

func (w *Writer) Reset() {
	w.off = 0
}
