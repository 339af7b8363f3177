package srtp

import (
	errors "golang.org/x/xerrors"
)

// ProtectionProfile identifies an SRTP crypto suite, in the manner of a TLS
// cipher suite. Values match the DTLS-SRTP profile registry (RFC 5764).
type ProtectionProfile uint16

const (
	ProfileAES128CMHMACSHA1_80 ProtectionProfile = 0x0001
	ProfileAES128CMHMACSHA1_32 ProtectionProfile = 0x0002
)

// Default SRTP key management parameters.
// See https://tools.ietf.org/html/rfc3711#section-8.2
type profileParams struct {
	name       string
	keyLen     int // n_e
	saltLen    int // n_s
	authKeyLen int // n_a
	rtpTagLen  int // n_tag for SRTP
	rtcpTagLen int // n_tag for SRTCP
}

// Per RFC 4568 section 6.2.1, the _32 suite still uses an 80-bit SRTCP tag.
var profiles = map[ProtectionProfile]profileParams{
	ProfileAES128CMHMACSHA1_80: {"AES_CM_128_HMAC_SHA1_80", 16, 14, 20, 10, 10},
	ProfileAES128CMHMACSHA1_32: {"AES_CM_128_HMAC_SHA1_32", 16, 14, 20, 4, 10},
}

// ProfileFromName looks up a profile by its SDES crypto-suite name, e.g.
// "AES_CM_128_HMAC_SHA1_80".
func ProfileFromName(name string) (ProtectionProfile, error) {
	for p, params := range profiles {
		if params.name == name {
			return p, nil
		}
	}
	return 0, errors.Errorf("%q: %w", name, ErrUnsupportedProfile)
}

func (p ProtectionProfile) params() (profileParams, error) {
	params, ok := profiles[p]
	if !ok {
		return profileParams{}, errors.Errorf("%#04x: %w", uint16(p), ErrUnsupportedProfile)
	}
	return params, nil
}

func (p ProtectionProfile) String() string {
	if params, ok := profiles[p]; ok {
		return params.name
	}
	return "unknown"
}

// KeyLen returns the master key length in bytes, or 0 for an unknown profile.
func (p ProtectionProfile) KeyLen() int {
	return profiles[p].keyLen
}

// SaltLen returns the master salt length in bytes, or 0 for an unknown profile.
func (p ProtectionProfile) SaltLen() int {
	return profiles[p].saltLen
}

// AuthTagLen returns the SRTP authentication tag length in bytes.
func (p ProtectionProfile) AuthTagLen() int {
	return profiles[p].rtpTagLen
}

// RTCPAuthTagLen returns the SRTCP authentication tag length in bytes.
func (p ProtectionProfile) RTCPAuthTagLen() int {
	return profiles[p].rtcpTagLen
}
