package srtplight

import (
	"fmt"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/packet"
	"github.com/lanikai/srtplight/internal/rtcp"
	"github.com/lanikai/srtplight/internal/rtp"
	"github.com/lanikai/srtplight/internal/srtp"
)

var (
	// ErrInvalidPacket means a datagram was malformed. Drop it and carry on.
	ErrInvalidPacket = errors.New("srtplight: invalid packet")

	// ErrAuthenticationFailed means a datagram's tag did not verify. Drop it
	// and carry on; no rollover or index state was touched.
	ErrAuthenticationFailed = errors.New("srtplight: authentication failed")

	// ErrReplayed means a datagram authenticated but its index was already
	// accepted or is too old for the replay window. Drop it and carry on.
	ErrReplayed = errors.New("srtplight: replayed packet")

	// ErrKeyDerivation means session keys could not be derived. The engine
	// that hit it is unusable.
	ErrKeyDerivation = errors.New("srtplight: key derivation failed")

	// ErrEngineFailed is returned by every call on an engine after a key
	// derivation failure.
	ErrEngineFailed = errors.New("srtplight: engine failed")
)

// PacketError maps a failure from one of the protocol layers onto one of the
// kinds above. errors.Is matches the kind, and Unwrap gives the cause.
type PacketError struct {
	Kind error
	Err  error
}

func (e *PacketError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *PacketError) Is(target error) bool {
	return target == e.Kind
}

func (e *PacketError) Unwrap() error {
	return e.Err
}

// Wrap err in a PacketError of the matching kind. Errors of no known kind are
// returned as is.
func classify(err error) error {
	var kde *srtp.KeyDerivationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &kde):
		return &PacketError{ErrKeyDerivation, err}
	case errors.Is(err, srtp.ErrAuthenticationFailed):
		return &PacketError{ErrAuthenticationFailed, err}
	case errors.Is(err, srtp.ErrReplayed):
		return &PacketError{ErrReplayed, err}
	case errors.Is(err, rtcp.ErrInvalidPacket),
		errors.Is(err, rtp.ErrInvalidPacket),
		errors.Is(err, srtp.ErrShortPacket),
		errors.Is(err, packet.ErrShortBuffer):
		return &PacketError{ErrInvalidPacket, err}
	default:
		return err
	}
}
