package srtp

import (
	"crypto/aes"
	"crypto/cipher"

	errors "golang.org/x/xerrors"
)

// Labels select which of the six session keys a Context derives. SRTP and
// SRTCP share one derivation and differ only in these constants.
// See https://tools.ietf.org/html/rfc3711#section-4.3.2
type Labels struct {
	Encryption byte
	Auth       byte
	Salt       byte
}

var (
	RTPLabels  = Labels{Encryption: 0x00, Auth: 0x01, Salt: 0x02}
	RTCPLabels = Labels{Encryption: 0x03, Auth: 0x04, Salt: 0x05}
)

// SRTP key derivation algorithm.
//  * master is the AES cipher keyed with the master key.
//  * r = index DIV key_derivation_rate is the 48-bit packet index divided by
//    the key derivation rate (or 0 if the rate is 0).
//  * label indicates which type of key to produce.
//  * n is the length of the output key in bytes.
// See https://tools.ietf.org/html/rfc3711#section-4.3
func deriveKey(master cipher.Block, masterSalt []byte, r uint64, label byte, n int) ([]byte, error) {
	if len(masterSalt) < 8 || len(masterSalt) > aes.BlockSize-2 {
		return nil, errors.Errorf("salt length %d: %w", len(masterSalt), ErrInvalidMasterKey)
	}

	// From https://tools.ietf.org/html/rfc3711#section-4.3:
	//   x = key_id XOR master_salt,
	// where
	//   key_id = <label> || r.
	// Then (https://tools.ietf.org/html/rfc3711#section-4.3.3) the IV for key
	// derivation is x*2^16. Pictorally, this looks like:
	//   xxxxxxxxxxxxxx00  <- salt (112 bits = 14 bytes)
	//   0000000x00000000  <- label
	//   00000000xxxxxx00  <- r
	var iv [aes.BlockSize]byte
	x := iv[:len(masterSalt)]
	copy(x, masterSalt)
	xor64(x[len(x)-8:], trunc(r, 48))
	x[len(x)-7] ^= label

	// The derived key is the PRF keystream itself, i.e. the keystream XOR'ed
	// with zeros.
	key := make([]byte, n)
	xorKeyStream(master, iv, key, key)
	return key, nil
}

// Truncate a 64-bit value to its lowest n bits.
func trunc(v uint64, n uint8) uint64 {
	return v & ((1 << n) - 1)
}

// XOR the bytes of a buffer with the given value.
func xor32(buf []byte, v uint32) {
	buf[0] ^= byte(v >> 24)
	buf[1] ^= byte(v >> 16)
	buf[2] ^= byte(v >> 8)
	buf[3] ^= byte(v)
}

func xor64(buf []byte, v uint64) {
	xor32(buf[0:4], uint32(v>>32))
	xor32(buf[4:8], uint32(v))
}
