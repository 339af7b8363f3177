package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"hash"
	"sync"

	"github.com/pion/transport/v3/utils/xor"
)

// AES in counter mode (the default encryption transform for SRTP).
// See https://tools.ietf.org/html/rfc3711#section-4.1.1
//
// From the RFC:
//   The 128-bit integer value IV SHALL be defined by the SSRC, the SRTP
//   packet index i, and the SRTP session salting key k_s, as below.
//       IV = (k_s * 2^16) XOR (SSRC * 2^64) XOR (i * 2^16)
//
// Pictorally, this looks like:
//   xxxxxxxxxxxxxx00  <- salt (112 bits = 14 bytes)
//   0000xxxx00000000  <- SSRC (32 bits = 4 bytes)
//   00000000xxxxxx00  <- index (48 bits = 6 bytes)
func counterIV(salt []byte, ssrc uint32, index uint64) [aes.BlockSize]byte {
	var iv [aes.BlockSize]byte
	copy(iv[:], salt)
	xor32(iv[4:], ssrc)
	xor64(iv[6:], trunc(index, 48))
	return iv
}

// xorKeyStream XORs src with the counter-mode keystream starting at iv and
// stores the result in dst. Encryption and decryption are the same operation.
func xorKeyStream(block cipher.Block, iv [aes.BlockSize]byte, dst, src []byte) {
	var stream [aes.BlockSize]byte
	ctr := iv
	for i := 0; i < len(src); i += aes.BlockSize {
		block.Encrypt(stream[:], ctr[:])
		incrementCounter(ctr[:])
		end := i + aes.BlockSize
		if end > len(src) {
			end = len(src)
		}
		xor.XorBytes(dst[i:end], src[i:end], stream[:end-i])
	}
}

// Increment a big-endian integer of arbitrary size.
func incrementCounter(ctr []byte) {
	for i := len(ctr) - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			break
		}
	}
}

// HMAC-SHA1 (the default authentication transform for SRTP), truncated to
// tagLen bytes.
// See https://tools.ietf.org/html/rfc3711#section-4.2
type authFunc func(tagLen int, M ...[]byte) []byte

func hmacSHA1(authKey []byte) authFunc {
	// A pool of reusable HMAC-SHA1 hash instances, to reduce heap allocations.
	hashPool := sync.Pool{
		New: func() interface{} {
			return hmac.New(sha1.New, authKey)
		},
	}
	return func(tagLen int, M ...[]byte) []byte {
		mac := hashPool.Get().(hash.Hash)
		for _, m := range M {
			mac.Write(m)
		}
		tag := mac.Sum(nil)[0:tagLen]

		mac.Reset()
		hashPool.Put(mac)
		return tag
	}
}
