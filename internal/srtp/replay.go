package srtp

import (
	"github.com/pion/transport/v3/replaydetector"
)

// MaxSRTPIndex is the largest 48-bit SRTP packet index (ROC || SEQ).
const MaxSRTPIndex = 1<<48 - 1

// Replay lists, as in https://tools.ietf.org/html/rfc3711#section-3.3.2.
// A window of 0 disables replay protection and returns nil.
func NewSRTPReplayDetector(window uint) replaydetector.ReplayDetector {
	if window == 0 {
		return nil
	}
	return replaydetector.New(window, MaxSRTPIndex)
}

// The SRTCP index wraps from MaxSRTCPIndex to 0, so its list does too.
func NewSRTCPReplayDetector(window uint) replaydetector.ReplayDetector {
	if window == 0 {
		return nil
	}
	return replaydetector.WithWrap(window, MaxSRTCPIndex)
}
