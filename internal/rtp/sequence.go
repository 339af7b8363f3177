package rtp

// A SequenceTracker extends 16-bit RTP sequence numbers into 48-bit packet
// indices by counting rollovers, as in RFC 3711 Appendix A. Keep one tracker
// per SSRC and direction.
//
// Extend only estimates; Observe commits. On the receive path, call Extend to
// get the index to authenticate with, and Observe only once the packet has
// been authenticated, so that forged packets cannot move the rollover counter.
// A SequenceTracker is not safe for concurrent use.
type SequenceTracker struct {
	last    uint16 // s_l, the highest sequence number seen
	roc     uint32
	started bool
}

// NewSequenceTracker returns a tracker whose rollover counter starts at roc.
func NewSequenceTracker(roc uint32) *SequenceTracker {
	return &SequenceTracker{roc: roc}
}

// Guess the rollover counter for seq, relative to the last observed sequence
// number. A distance of exactly +32768 counts as a packet from before the
// last wrap, and -32768 as no wrap at all.
func (t *SequenceTracker) guess(seq uint16) uint32 {
	if !t.started {
		return t.roc
	}
	diff := int(seq) - int(t.last)
	switch {
	case diff < -32768:
		return t.roc + 1
	case diff > 32767:
		if t.roc == 0 {
			// Nothing has wrapped yet; seq is simply ahead.
			return 0
		}
		return t.roc - 1
	default:
		return t.roc
	}
}

// Extend returns the packet index for seq without changing the tracker.
func (t *SequenceTracker) Extend(seq uint16) uint64 {
	return uint64(t.guess(seq))<<16 | uint64(seq)
}

// Observe commits seq as the latest accepted sequence number and returns its
// packet index.
func (t *SequenceTracker) Observe(seq uint16) uint64 {
	t.roc = t.guess(seq)
	t.last = seq
	t.started = true
	return uint64(t.roc)<<16 | uint64(seq)
}

// ROC returns the current rollover counter.
func (t *SequenceTracker) ROC() uint32 {
	return t.roc
}

// LastSequence returns the most recently observed sequence number.
func (t *SequenceTracker) LastSequence() uint16 {
	return t.last
}
