package srtp

import (
	"fmt"

	errors "golang.org/x/xerrors"
)

var (
	ErrAuthenticationFailed = errors.New("srtp: authentication failed")
	ErrUnsupportedProfile   = errors.New("srtp: unsupported protection profile")
	ErrShortPacket          = errors.New("srtp: packet too short")
	ErrInvalidMasterKey     = errors.New("srtp: invalid master key or salt length")
	ErrReplayed             = errors.New("srtp: replayed packet")
)

// KeyDerivationError reports a failure to derive one of the session keys.
// Engines treat it as fatal.
type KeyDerivationError struct {
	Label byte
	Err   error
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("srtp: key derivation failed for label %#02x: %v", e.Label, e.Err)
}

func (e *KeyDerivationError) Unwrap() error {
	return e.Err
}
