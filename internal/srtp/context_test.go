package srtp

import (
	"crypto/aes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/packet"
)

// AES-CM Test Vectors: https://tools.ietf.org/html/rfc3711#appendix-B.2
func TestCounterModeKeystream(t *testing.T) {
	sessionKey := mustHex("2B7E151628AED2A6ABF7158809CF4F3C")
	sessionSalt := mustHex("F0F1F2F3F4F5F6F7F8F9FAFBFCFD")
	block, err := aes.NewCipher(sessionKey)
	require.NoError(t, err)

	// Encrypt a block of zeros to get the keystream.
	keystream := make([]byte, 1044512)
	xorKeyStream(block, counterIV(sessionSalt, 0, 0), keystream, keystream)

	assert.Equal(t, strings.ToLower(
		"E03EAD0935C95E80E166B16DD92B4EB4"+
			"D23513162B02D0F72A43A2FE4A5F97AB"+
			"41E95B3BB0A2E8DD477901E4FCA894C0"),
		hex.EncodeToString(keystream[0:48]))
	assert.Equal(t, strings.ToLower(
		"EC8CDF7398607CB0F2D21675EA9EA1E4"+
			"362B7C3C6773516318A077D7FC5073AE"+
			"6A2CC3787889374FBEB4C81B17BA6C44"),
		hex.EncodeToString(keystream[len(keystream)-48:]))
}

// Key Derivation Test Vectors: https://tools.ietf.org/html/rfc3711#appendix-B.3
func TestDeriveKey(t *testing.T) {
	master, err := aes.NewCipher(mustHex("E1F97A0D3E018BE0D64FA32C06DE4139"))
	require.NoError(t, err)
	masterSalt := mustHex("0EC675AD498AFEEBB6960B3AABE6")

	tests := []struct {
		label byte
		n     int
		want  string
	}{
		{RTPLabels.Encryption, 16, "C61E7A93744F39EE10734AFE3FF7A087"},
		{RTPLabels.Salt, 14, "30CBBC08863D8C85D49DB34A9AE1"},
		{RTPLabels.Auth, 94, "CEBE321F6FF7716B6FD4AB49AF256A15" +
			"6D38BAA48F0A0ACF3C34E2359E6CDBCE" +
			"E049646C43D9327AD175578EF7227098" +
			"6371C10C9A369AC2F94A8C5FBCDDDC25" +
			"6D6E919A48B610EF17C2041E47403576" +
			"6B68642C59BBFC2F34DB60DBDFB2"},
	}
	for _, tt := range tests {
		key, err := deriveKey(master, masterSalt, 0, tt.label, tt.n)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(tt.want), hex.EncodeToString(key), "label %d", tt.label)
	}
}

func TestCipherRTP(t *testing.T) {
	c, err := NewRTPContext(ProfileAES128CMHMACSHA1_80,
		mustHex("E1F97A0D3E018BE0D64FA32C06DE4139"), mustHex("0EC675AD498AFEEBB6960B3AABE6"))
	require.NoError(t, err)

	plaintext := mustHex("000102030405060708090a0b0c0d0e0f")
	ciphertext := mustHex("7c640603e81d440df23ddbe5b07f887a")

	out := make([]byte, len(plaintext))
	require.NoError(t, c.Cipher(out, plaintext, 12345678, 1))
	assert.Equal(t, ciphertext, out)

	// Counter mode is its own inverse.
	require.NoError(t, c.Cipher(out, out, 12345678, 1))
	assert.Equal(t, plaintext, out)
}

func TestRTPRoundTrip(t *testing.T) {
	for _, profile := range []ProtectionProfile{ProfileAES128CMHMACSHA1_80, ProfileAES128CMHMACSHA1_32} {
		t.Run(profile.String(), func(t *testing.T) {
			masterKey := []byte("TopSecret128bits")
			masterSalt := []byte("SodiumChloride")
			sender, err := NewRTPContext(profile, masterKey, masterSalt)
			require.NoError(t, err)
			receiver, err := NewRTPContext(profile, masterKey, masterSalt)
			require.NoError(t, err)

			header := mustHex("80640001034fb5e31337d00d")
			payload := []byte("abcdefghijklmnopqrstuvwxyz")
			index := uint64(123456)

			w := packet.NewWriterSize(512)
			require.NoError(t, w.WriteSlice(header))
			require.NoError(t, w.WriteSlice(payload))
			require.NoError(t, sender.EncryptRTP(w, len(header), 0x1337d00d, index))
			assert.Equal(t, len(header)+len(payload)+profile.AuthTagLen(), w.Length())

			buf := append([]byte(nil), w.Bytes()...)

			// The ROC is authenticated, so a wrong guess fails.
			_, err = receiver.DecryptRTP(append([]byte(nil), buf...), len(header), 0x1337d00d, index+65536)
			assert.True(t, errors.Is(err, ErrAuthenticationFailed))

			out, err := receiver.DecryptRTP(buf, len(header), 0x1337d00d, index)
			require.NoError(t, err)
			assert.Equal(t, payload, out)
		})
	}
}

func TestKeyDerivationRate(t *testing.T) {
	c, err := NewRTCPContext(ProfileAES128CMHMACSHA1_80, rtcpTestMasterKey, rtcpTestMasterSalt, KeyDerivationRate(4))
	require.NoError(t, err)

	require.NoError(t, c.DeriveKeys(0))
	first := c.keys
	require.NoError(t, c.DeriveKeys(3))
	assert.Same(t, first, c.keys)
	require.NoError(t, c.DeriveKeys(4))
	assert.NotSame(t, first, c.keys)
	assert.NotEqual(t, first.salt, c.keys.salt)
	assert.Equal(t, uint64(1), c.keyID)

	// Rate 0 derives once, for every index.
	c, err = NewRTCPContext(ProfileAES128CMHMACSHA1_80, rtcpTestMasterKey, rtcpTestMasterSalt)
	require.NoError(t, err)
	require.NoError(t, c.DeriveKeys(0))
	first = c.keys
	require.NoError(t, c.DeriveKeys(1<<40))
	assert.Same(t, first, c.keys)

	for _, rate := range []uint64{3, 1<<24 + 1, 1 << 25} {
		_, err = NewRTCPContext(ProfileAES128CMHMACSHA1_80, rtcpTestMasterKey, rtcpTestMasterSalt, KeyDerivationRate(rate))
		assert.Error(t, err, "rate %d", rate)
	}
}

func TestVerifyAtRollsBack(t *testing.T) {
	c, err := NewRTCPContext(ProfileAES128CMHMACSHA1_80, rtcpTestMasterKey, rtcpTestMasterSalt, KeyDerivationRate(1))
	require.NoError(t, err)
	require.NoError(t, c.DeriveKeys(7))
	keys := c.keys

	err = c.VerifyAt(8, make([]byte, 10), []byte("forged"))
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	assert.Same(t, keys, c.keys)
	assert.Equal(t, uint64(7), c.keyID)
}

func TestNewContextErrors(t *testing.T) {
	_, err := NewRTPContext(ProtectionProfile(0x0007), make([]byte, 16), make([]byte, 14))
	assert.True(t, errors.Is(err, ErrUnsupportedProfile))

	_, err = NewRTPContext(ProfileAES128CMHMACSHA1_80, make([]byte, 15), make([]byte, 14))
	assert.True(t, errors.Is(err, ErrInvalidMasterKey))

	_, err = NewRTCPContext(ProfileAES128CMHMACSHA1_80, make([]byte, 16), make([]byte, 12))
	assert.True(t, errors.Is(err, ErrInvalidMasterKey))
}

func TestProfiles(t *testing.T) {
	p, err := ProfileFromName("AES_CM_128_HMAC_SHA1_32")
	require.NoError(t, err)
	assert.Equal(t, ProfileAES128CMHMACSHA1_32, p)
	assert.Equal(t, 4, p.AuthTagLen())
	assert.Equal(t, 10, p.RTCPAuthTagLen())
	assert.Equal(t, 16, p.KeyLen())
	assert.Equal(t, 14, p.SaltLen())

	_, err = ProfileFromName("AEAD_AES_256_GCM")
	assert.True(t, errors.Is(err, ErrUnsupportedProfile))
	assert.Equal(t, "unknown", ProtectionProfile(9).String())
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
