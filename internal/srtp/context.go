package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/logging"
)

var log = logging.DefaultLogger.WithTag("srtp")

// Largest key derivation rate allowed by RFC 3711 section 4.3.1.
const maxKeyDerivationRate = 1 << 24

// A Context holds the cryptographic state for one direction of one SRTP or
// SRTCP session: the master key and salt, and the session keys most recently
// derived from them. (Note that in contrast to RFC 3711, the rollover counter
// and SRTCP index are *not* stored here; they must be maintained elsewhere,
// and passed in as parameters to all operations.)
//
// A Context is not safe for concurrent use.
type Context struct {
	profile    ProtectionProfile
	labels     Labels
	tagLen     int
	master     cipher.Block
	masterSalt []byte
	kdr        uint64

	keys  *sessionKeys
	keyID uint64
}

// Session keys for one key derivation epoch. Immutable once derived.
type sessionKeys struct {
	block cipher.Block
	salt  []byte
	auth  authFunc
}

type ContextOption func(*Context) error

// KeyDerivationRate sets how many packet indices share one set of session
// keys. The rate must be zero (derive once) or a power of 2 up to 2^24.
func KeyDerivationRate(rate uint64) ContextOption {
	return func(c *Context) error {
		if rate > maxKeyDerivationRate || rate&(rate-1) != 0 {
			return errors.Errorf("srtp: invalid key derivation rate %d", rate)
		}
		c.kdr = rate
		return nil
	}
}

// NewRTPContext creates a context that protects RTP packets.
func NewRTPContext(profile ProtectionProfile, masterKey, masterSalt []byte, opts ...ContextOption) (*Context, error) {
	params, err := profile.params()
	if err != nil {
		return nil, err
	}
	return newContext(profile, RTPLabels, params.rtpTagLen, masterKey, masterSalt, opts)
}

// NewRTCPContext creates a context that protects RTCP packets. It derives its
// session keys from the same master key and salt as the RTP context, using
// the SRTCP labels.
func NewRTCPContext(profile ProtectionProfile, masterKey, masterSalt []byte, opts ...ContextOption) (*Context, error) {
	params, err := profile.params()
	if err != nil {
		return nil, err
	}
	return newContext(profile, RTCPLabels, params.rtcpTagLen, masterKey, masterSalt, opts)
}

func newContext(profile ProtectionProfile, labels Labels, tagLen int, masterKey, masterSalt []byte, opts []ContextOption) (*Context, error) {
	params, _ := profile.params()
	if len(masterKey) != params.keyLen || len(masterSalt) != params.saltLen {
		return nil, errors.Errorf("%s needs %d+%d bytes, got %d+%d: %w", profile,
			params.keyLen, params.saltLen, len(masterKey), len(masterSalt), ErrInvalidMasterKey)
	}

	master, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, &KeyDerivationError{labels.Encryption, err}
	}

	c := &Context{
		profile:    profile,
		labels:     labels,
		tagLen:     tagLen,
		master:     master,
		masterSalt: append([]byte(nil), masterSalt...),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Context) Profile() ProtectionProfile {
	return c.profile
}

// AuthTagLen returns the length in bytes of the authentication tags this
// context produces.
func (c *Context) AuthTagLen() int {
	return c.tagLen
}

// DeriveKeys makes sure the session keys match the key derivation epoch of
// the given packet index, re-deriving them only when the epoch changes.
func (c *Context) DeriveKeys(index uint64) error {
	var keyID uint64
	if c.kdr != 0 {
		keyID = trunc(index, 48) / c.kdr
	}
	if c.keys != nil && keyID == c.keyID {
		return nil
	}

	params, _ := c.profile.params()
	encKey, err := deriveKey(c.master, c.masterSalt, keyID, c.labels.Encryption, params.keyLen)
	if err != nil {
		return &KeyDerivationError{c.labels.Encryption, err}
	}
	authKey, err := deriveKey(c.master, c.masterSalt, keyID, c.labels.Auth, params.authKeyLen)
	if err != nil {
		return &KeyDerivationError{c.labels.Auth, err}
	}
	salt, err := deriveKey(c.master, c.masterSalt, keyID, c.labels.Salt, params.saltLen)
	if err != nil {
		return &KeyDerivationError{c.labels.Salt, err}
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return &KeyDerivationError{c.labels.Encryption, err}
	}

	log.Trace(4, "derived session keys for labels %v, key id %d", c.labels, keyID)
	c.keys = &sessionKeys{block, salt, hmacSHA1(authKey)}
	c.keyID = keyID
	return nil
}

// Cipher applies the keystream for (ssrc, index) to src and stores the result
// in dst, which may alias src. Counter mode is its own inverse, so this both
// encrypts and decrypts.
func (c *Context) Cipher(dst, src []byte, ssrc uint32, index uint64) error {
	if len(dst) < len(src) {
		return errors.Errorf("srtp: cipher output %d bytes, input %d bytes", len(dst), len(src))
	}
	if err := c.DeriveKeys(index); err != nil {
		return err
	}
	xorKeyStream(c.keys.block, counterIV(c.keys.salt, ssrc, index), dst, src)
	return nil
}

// AuthTag computes the truncated authentication tag over the concatenation
// of M, using the most recently derived session keys.
func (c *Context) AuthTag(M ...[]byte) ([]byte, error) {
	if c.keys == nil {
		if err := c.DeriveKeys(0); err != nil {
			return nil, err
		}
	}
	return c.keys.auth(c.tagLen, M...), nil
}

// VerifyTag recomputes the tag over M and compares it to the claimed one.
func (c *Context) VerifyTag(claimed []byte, M ...[]byte) error {
	tag, err := c.AuthTag(M...)
	if err != nil {
		return err
	}
	if !hmac.Equal(tag, claimed) {
		return ErrAuthenticationFailed
	}
	return nil
}

// VerifyAt derives the session keys for index and verifies the tag. If
// verification fails the previous session keys are restored, so that forged
// packets leave no trace in the context.
func (c *Context) VerifyAt(index uint64, claimed []byte, M ...[]byte) error {
	keys, keyID := c.keys, c.keyID
	err := c.DeriveKeys(index)
	if err == nil {
		err = c.VerifyTag(claimed, M...)
	}
	if err != nil {
		c.keys, c.keyID = keys, keyID
	}
	return err
}
