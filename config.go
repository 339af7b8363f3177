//////////////////////////////////////////////////////////////////////////////
//
// Config contains the keying and stream parameters for an SRTP session
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package srtplight

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/srtp"
)

const (
	// Crypto suite names as they appear in SDES a=crypto lines (RFC 4568).
	SuiteAES128CMHMACSHA1_80 = "AES_CM_128_HMAC_SHA1_80"
	SuiteAES128CMHMACSHA1_32 = "AES_CM_128_HMAC_SHA1_32"

	// Keeps an SRTP packet with a full tag inside a 1280 byte IPv6 minimum MTU.
	defaultMaxPacketSize = 1280

	// Number of remote SSRCs whose rollover counters are remembered.
	defaultMaxStreams = 64
)

type Config struct {
	// Crypto suite name. Defaults to AES_CM_128_HMAC_SHA1_80.
	Suite string

	// Master key and salt used for everything this side sends.
	LocalKey  []byte
	LocalSalt []byte

	// Master key and salt the remote side sends with.
	RemoteKey  []byte
	RemoteSalt []byte

	// Key derivation rate, 0 or a power of 2 up to 2^24. With 0, session keys
	// are derived once.
	KeyDerivationRate uint64

	// SSRC of the local RTP stream, also used as the sender SSRC of feedback
	// messages.
	LocalSSRC uint32

	// First sequence number of the local RTP stream.
	InitialSequenceNumber uint16

	// First SRTCP index used for outbound packets.
	InitialIndex uint32

	// Maximum size of outgoing packets, factoring in MTU and protocol overhead.
	MaxPacketSize int

	// Maximum number of remote RTP streams tracked at once.
	MaxStreams int

	// Size of the replay window for inbound SRTP streams and SRTCP. 0 turns
	// replay protection off.
	ReplayWindow uint
}

func (c *Config) setDefaults() {
	if c.Suite == "" {
		c.Suite = SuiteAES128CMHMACSHA1_80
	}
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = defaultMaxPacketSize
	}
	if c.MaxStreams == 0 {
		c.MaxStreams = defaultMaxStreams
	}
}

func (c *Config) profile() (srtp.ProtectionProfile, error) {
	return srtp.ProfileFromName(c.Suite)
}

func (c *Config) validate() error {
	profile, err := c.profile()
	if err != nil {
		return err
	}
	for _, k := range []struct {
		name      string
		key, salt []byte
	}{
		{"local", c.LocalKey, c.LocalSalt},
		{"remote", c.RemoteKey, c.RemoteSalt},
	} {
		if len(k.key) != profile.KeyLen() {
			return errors.Errorf("%s master key is %d bytes, %v needs %d: %w", k.name, len(k.key), profile, profile.KeyLen(), srtp.ErrInvalidMasterKey)
		}
		if len(k.salt) != profile.SaltLen() {
			return errors.Errorf("%s master salt is %d bytes, %v needs %d: %w", k.name, len(k.salt), profile, profile.SaltLen(), srtp.ErrInvalidMasterKey)
		}
	}
	if c.InitialIndex > srtp.MaxSRTCPIndex {
		return errors.Errorf("initial SRTCP index %d exceeds 31 bits", c.InitialIndex)
	}
	if c.MaxPacketSize < 64 {
		return errors.Errorf("maximum packet size %d too small", c.MaxPacketSize)
	}
	return nil
}

func (c *Config) contextOptions() []srtp.ContextOption {
	return []srtp.ContextOption{srtp.KeyDerivationRate(c.KeyDerivationRate)}
}
