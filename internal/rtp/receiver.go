package rtp

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/pion/transport/v3/replaydetector"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/srtplight/internal/packet"
	"github.com/lanikai/srtplight/internal/srtp"
)

const defaultMaxStreams = 64

// A Receiver authenticates and decrypts inbound SRTP packets, keeping one
// SequenceTracker per remote SSRC. The least recently seen streams are
// forgotten once more than maxStreams are active. With a non-zero replay
// window, packets already accepted on a stream are rejected.
type Receiver struct {
	mu           sync.Mutex
	crypto       *srtp.Context
	trackers     *lru.Cache
	replayWindow uint
}

// Per-SSRC receive state.
type stream struct {
	tracker *SequenceTracker
	replay  replaydetector.ReplayDetector
}

func NewReceiver(crypto *srtp.Context, maxStreams int, replayWindow uint) *Receiver {
	if maxStreams <= 0 {
		maxStreams = defaultMaxStreams
	}
	trackers := lru.New(maxStreams)
	trackers.OnEvicted = func(key lru.Key, _ interface{}) {
		log.Debug("forgetting rollover state for SSRC %08x", key)
	}
	return &Receiver{crypto: crypto, trackers: trackers, replayWindow: replayWindow}
}

// ReadPacket verifies and decrypts the SRTP packet in buf, in place. The
// returned packet's payload aliases buf. The stream's rollover counter only
// moves once the packet has been authenticated.
func (r *Receiver) ReadPacket(buf []byte) (*Packet, uint64, error) {
	p := new(Packet)
	if err := p.Header.UnmarshalFrom(packet.NewReader(buf)); err != nil {
		return nil, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stream(p.SSRC)
	index := s.tracker.Extend(p.SequenceNumber)
	var accept func()
	if s.replay != nil {
		markValid, ok := s.replay.Check(index)
		if !ok {
			return nil, 0, errors.Errorf("ssrc=%08x index=%d: %w", p.SSRC, index, srtp.ErrReplayed)
		}
		accept = func() { markValid() }
	}
	payload, err := r.crypto.DecryptRTP(buf, p.Header.Length(), p.SSRC, index)
	if err != nil {
		log.Debug("dropping SRTP packet: ssrc=%08x seq=%d: %v", p.SSRC, p.SequenceNumber, err)
		return nil, 0, err
	}
	s.tracker.Observe(p.SequenceNumber)
	if accept != nil {
		accept()
	}
	r.trackers.Add(p.SSRC, s)

	if err := p.setPayload(payload); err != nil {
		return nil, 0, err
	}
	return p, index, nil
}

// State for unauthenticated streams is not cached until ReadPacket succeeds.
func (r *Receiver) stream(ssrc uint32) *stream {
	if v, ok := r.trackers.Get(ssrc); ok {
		return v.(*stream)
	}
	return &stream{
		tracker: new(SequenceTracker),
		replay:  srtp.NewSRTPReplayDetector(r.replayWindow),
	}
}

// ROC returns the rollover counter for the given stream, if it is known.
func (r *Receiver) ROC(ssrc uint32) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.trackers.Get(ssrc); ok {
		return v.(*stream).tracker.ROC(), true
	}
	return 0, false
}
