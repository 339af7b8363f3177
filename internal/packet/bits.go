package packet

// Bit-level field packing for big-endian wire headers. Bits are numbered as if
// the byte slice were one long bit string, most significant bit first within
// each byte, so bit 0 is the top bit (0x80) of buf[0]. For example the first
// byte of an RTCP header
//    0 1 2 3 4 5 6 7
//   +-+-+-+-+-+-+-+-+
//   |V=2|P|  count  |
//   +-+-+-+-+-+-+-+-+
// is written with
//    next, _ := CopyBitsToBuffer(2, 2, buf, 0)
//    next, _ = CopyBitsToBuffer(padding, 1, buf, next)
//    next, _ = CopyBitsToBuffer(count, 5, buf, next)

import (
	errors "golang.org/x/xerrors"
)

var (
	ErrBitIndexOutOfRange = errors.New("packet: bit index out of range")
	ErrBitCountTooLarge   = errors.New("packet: bit count too large")
)

const (
	maxWriteBits = 32
	maxReadBits  = 16
)

func locate(buf []byte, bit int) (int, byte, error) {
	if bit < 0 || bit >= 8*len(buf) {
		return 0, 0, errors.Errorf("bit %d of %d: %w", bit, 8*len(buf), ErrBitIndexOutOfRange)
	}
	return bit / 8, byte(0x80 >> uint(bit%8)), nil
}

// SetBit sets a single bit to one.
func SetBit(buf []byte, bit int) error {
	i, mask, err := locate(buf, bit)
	if err != nil {
		return err
	}
	buf[i] |= mask
	return nil
}

func clearBit(buf []byte, bit int) error {
	i, mask, err := locate(buf, bit)
	if err != nil {
		return err
	}
	buf[i] &^= mask
	return nil
}

// GetBit returns the value (0 or 1) of a single bit.
func GetBit(buf []byte, bit int) (uint8, error) {
	i, mask, err := locate(buf, bit)
	if err != nil {
		return 0, err
	}
	if buf[i]&mask != 0 {
		return 1, nil
	}
	return 0, nil
}

// CopyBitsToBuffer writes the low n bits of v, most significant first, starting
// at bit position start. It returns the position just past the written field,
// so that consecutive fields can be chained. Unlike SetBit, zero bits are
// cleared, which makes it safe to pack into a reused buffer.
func CopyBitsToBuffer(v uint32, n int, buf []byte, start int) (int, error) {
	if n < 0 || n > maxWriteBits {
		return start, errors.Errorf("write %d bits: %w", n, ErrBitCountTooLarge)
	}
	if n > 0 {
		// Check the whole field up front so a failed write leaves buf untouched.
		if _, _, err := locate(buf, start+n-1); err != nil {
			return start, err
		}
	}
	pos := start
	for i := n - 1; i >= 0; i-- {
		var err error
		if v>>uint(i)&1 == 1 {
			err = SetBit(buf, pos)
		} else {
			err = clearBit(buf, pos)
		}
		if err != nil {
			return pos, err
		}
		pos++
	}
	return pos, nil
}

// CopyBitsFromBuffer reads an n-bit field (n <= 16) starting at bit position
// start. This is the inverse of CopyBitsToBuffer.
func CopyBitsFromBuffer(buf []byte, start, n int) (uint16, error) {
	if n < 0 || n > maxReadBits {
		return 0, errors.Errorf("read %d bits: %w", n, ErrBitCountTooLarge)
	}
	var v uint16
	for i := 0; i < n; i++ {
		b, err := GetBit(buf, start+i)
		if err != nil {
			return 0, err
		}
		v = v<<1 | uint16(b)
	}
	return v, nil
}
