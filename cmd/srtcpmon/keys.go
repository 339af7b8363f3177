package main

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"github.com/lanikai/srtplight/internal/srtp"
)

// Parse SDES key parameters (RFC 4568, section 6.1) into master key and
// salt. Lifetime and MKI fields after the key are ignored. Plain hex is
// accepted too.
//
//   key-params = "inline:" <base64 key||salt> ["|" lifetime] ["|" MKI ":" length]
func parseKeyParams(s string, profile srtp.ProtectionProfile) (key, salt []byte, err error) {
	var raw []byte
	if strings.HasPrefix(s, "inline:") {
		s = strings.TrimPrefix(s, "inline:")
		if i := strings.IndexByte(s, '|'); i >= 0 {
			s = s[:i]
		}
		raw, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid inline key")
		}
	} else {
		raw, err = hex.DecodeString(strings.ReplaceAll(s, " ", ""))
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid hex key")
		}
	}

	n := profile.KeyLen() + profile.SaltLen()
	if len(raw) != n {
		return nil, nil, errors.Errorf("key parameters are %d bytes, %v needs %d", len(raw), profile, n)
	}
	return raw[:profile.KeyLen()], raw[profile.KeyLen():], nil
}
