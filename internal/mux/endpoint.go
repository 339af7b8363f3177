package mux

import (
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// A ring of packet slots. Slots are swapped rather than copied on the way in,
// so the mux read loop never allocates.
type ring struct {
	slots [][]byte
	head  int // oldest packet
	size  int // packets held
}

func newRing(slots, slotSize int) ring {
	pool := make([]byte, slots*slotSize)
	r := ring{slots: make([][]byte, slots)}
	for i := range r.slots {
		r.slots[i] = pool[i*slotSize : (i+1)*slotSize : (i+1)*slotSize]
	}
	return r
}

// Store buf and return a spare buffer for the caller to reuse. When the ring
// is full the oldest packet is evicted, and dropped is true.
func (r *ring) push(buf []byte) (spare []byte, dropped bool) {
	if r.size == len(r.slots) {
		spare = r.slots[r.head]
		r.slots[r.head] = buf
		r.head = (r.head + 1) % len(r.slots)
		return spare, true
	}
	tail := (r.head + r.size) % len(r.slots)
	spare = r.slots[tail]
	r.slots[tail] = buf
	r.size++
	return spare, false
}

// Copy the oldest packet into p, truncating if p is short.
func (r *ring) pop(p []byte) (int, bool) {
	if r.size == 0 {
		return 0, false
	}
	n := copy(p, r.slots[r.head])
	r.head = (r.head + 1) % len(r.slots)
	r.size--
	return n, true
}

// Endpoint is a net.Conn carrying the subset of a Mux's traffic accepted by
// its MatchFunc. Reads come from a bounded queue filled by the Mux; writes go
// straight to the shared connection.
type Endpoint struct {
	mux   *Mux
	match MatchFunc

	mu       sync.Mutex
	queue    ring
	dropped  uint64
	deadline time.Time

	// Holds a token while the queue is non-empty.
	ready chan struct{}

	// Closed with the endpoint.
	closed    chan struct{}
	closeOnce sync.Once
}

func newEndpoint(m *Mux, match MatchFunc, slots, slotSize int) *Endpoint {
	return &Endpoint{
		mux:    m,
		match:  match,
		queue:  newRing(slots, slotSize),
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Close detaches the endpoint from its Mux. The shared connection stays open.
func (e *Endpoint) Close() error {
	e.shutdown()
	e.mux.RemoveEndpoint(e)
	return nil
}

func (e *Endpoint) shutdown() {
	e.closeOnce.Do(func() { close(e.closed) })
}

// Dropped returns how many packets were discarded because the reader fell
// behind.
func (e *Endpoint) Dropped() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Hand buf to the endpoint in exchange for a spare buffer.
func (e *Endpoint) deliver(buf []byte) []byte {
	select {
	case <-e.closed:
		return buf
	default:
	}

	e.mu.Lock()
	spare, dropped := e.queue.push(buf)
	if dropped {
		e.dropped++
		log.Debug("endpoint queue full, dropped oldest packet (%d so far)", e.dropped)
	}
	e.mu.Unlock()

	e.signal()
	return spare
}

func (e *Endpoint) signal() {
	select {
	case e.ready <- struct{}{}:
	default:
	}
}

func (e *Endpoint) tryRead(p []byte) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.queue.pop(p)
	if ok && e.queue.size > 0 {
		e.signal()
	}
	return n, ok
}

// Read blocks until a packet is queued, then copies it into p. A packet
// longer than p is truncated. Read returns io.EOF once the endpoint is
// closed, and os.ErrDeadlineExceeded after the read deadline.
func (e *Endpoint) Read(p []byte) (int, error) {
	if n, ok := e.tryRead(p); ok {
		return n, nil
	}

	e.mu.Lock()
	deadline := e.deadline
	e.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if n, ok := e.tryRead(p); ok {
			return n, nil
		}
		select {
		case <-e.closed:
			return 0, io.EOF
		case <-timeout:
			return 0, os.ErrDeadlineExceeded
		case <-e.ready:
		}
	}
}

// Write sends p as one datagram on the shared connection.
func (e *Endpoint) Write(p []byte) (int, error) {
	return e.mux.conn.Write(p)
}

func (e *Endpoint) LocalAddr() net.Addr {
	return e.mux.conn.LocalAddr()
}

func (e *Endpoint) RemoteAddr() net.Addr {
	return e.mux.conn.RemoteAddr()
}

// SetDeadline sets the read deadline and the shared connection's write
// deadline.
func (e *Endpoint) SetDeadline(t time.Time) error {
	e.SetReadDeadline(t)
	return e.SetWriteDeadline(t)
}

// SetReadDeadline applies to this endpoint only. It does not wake a Read that
// is already waiting.
func (e *Endpoint) SetReadDeadline(t time.Time) error {
	e.mu.Lock()
	e.deadline = t
	e.mu.Unlock()
	return nil
}

// SetWriteDeadline applies to the shared connection, and so to every
// endpoint.
func (e *Endpoint) SetWriteDeadline(t time.Time) error {
	return e.mux.conn.SetWriteDeadline(t)
}
