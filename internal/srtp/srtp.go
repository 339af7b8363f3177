package srtp

// srtp.go implements the Secure RTP transform from RFC 3711 for RTP packets.
// Header parsing is left to the caller, which passes the payload offset.

import (
	"encoding/binary"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/packet"
)

// EncryptRTP encrypts the payload of the RTP packet held in w in place, then
// computes and appends the authentication tag. payloadStart is the offset to
// the RTP payload (i.e. just after the RTP header), ssrc is the packet's SSRC
// field, and index is the extended sequence number (i.e. ROC*2^16 + SEQ).
// See https://tools.ietf.org/html/rfc3711#section-3.1
// and https://tools.ietf.org/html/rfc3711#section-3.3
func (c *Context) EncryptRTP(w *packet.Writer, payloadStart int, ssrc uint32, index uint64) error {
	if err := w.CheckCapacity(c.tagLen); err != nil {
		return err
	}
	buf := w.Bytes()
	if payloadStart > len(buf) {
		return errors.Errorf("payload offset %d past %d byte packet: %w", payloadStart, len(buf), ErrShortPacket)
	}
	if err := c.Cipher(buf[payloadStart:], buf[payloadStart:], ssrc, index); err != nil {
		return err
	}

	// From https://tools.ietf.org/html/rfc3711#section-4.2:
	//   In the case of SRTP, M SHALL consist of the Authenticated Portion of
	//   the packet (as specified in Figure 1) concatenated with the ROC,
	//	 M = Authenticated Portion || ROC;
	tag, err := c.AuthTag(buf, rocBytes(index))
	if err != nil {
		return err
	}
	return w.WriteSlice(tag)
}

// DecryptRTP verifies the auth tag of the SRTP packet in buf, then decrypts
// and returns the payload in place. This is the inverse of EncryptRTP. On
// failure the context is left as it was.
func (c *Context) DecryptRTP(buf []byte, payloadStart int, ssrc uint32, index uint64) ([]byte, error) {
	tagStart := len(buf) - c.tagLen
	if tagStart < payloadStart {
		return nil, errors.Errorf("%d byte SRTP packet: %w", len(buf), ErrShortPacket)
	}

	if err := c.VerifyAt(index, buf[tagStart:], buf[:tagStart], rocBytes(index)); err != nil {
		return nil, err
	}

	payload := buf[payloadStart:tagStart]
	if err := c.Cipher(payload, payload, ssrc, index); err != nil {
		return nil, err
	}
	return payload, nil
}

// The ROC is just the high bits of the index.
func rocBytes(index uint64) []byte {
	roc := make([]byte, 4)
	binary.BigEndian.PutUint32(roc, uint32(trunc(index, 48)>>16))
	return roc
}
