// Package mux splits the datagrams arriving on one connection between several
// consumers, e.g. SRTP and SRTCP sharing a port as in RFC 5761.
package mux

import (
	"net"
	"sync"

	"github.com/lanikai/srtplight/internal/logging"
)

var log = logging.DefaultLogger.WithTag("mux")

// Packets queued per endpoint before the oldest is dropped.
const queueLength = 32

// Mux reads datagrams from a connection and hands each to the first endpoint,
// in creation order, whose MatchFunc accepts it. Datagrams nobody accepts are
// discarded.
type Mux struct {
	conn       net.Conn
	bufferSize int

	mu        sync.Mutex
	endpoints []*Endpoint

	closeOnce sync.Once
	closeErr  error
}

// NewMux starts reading from conn, which the Mux now owns. Datagrams longer
// than bufferSize are truncated.
func NewMux(conn net.Conn, bufferSize int) *Mux {
	m := &Mux{conn: conn, bufferSize: bufferSize}
	go m.readLoop()
	return m
}

// NewEndpoint adds an endpoint that receives the datagrams accepted by match
// and not claimed by an earlier endpoint.
func (m *Mux) NewEndpoint(match MatchFunc) *Endpoint {
	e := newEndpoint(m, match, queueLength, m.bufferSize)
	m.mu.Lock()
	m.endpoints = append(m.endpoints, e)
	m.mu.Unlock()
	return e
}

// RemoveEndpoint stops dispatching to e.
func (m *Mux) RemoveEndpoint(e *Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.endpoints {
		if other == e {
			m.endpoints = append(m.endpoints[:i], m.endpoints[i+1:]...)
			return
		}
	}
}

// Close closes every endpoint and the connection. Only the first call closes
// the connection; later calls return the same result.
func (m *Mux) Close() error {
	m.mu.Lock()
	endpoints := m.endpoints
	m.endpoints = nil
	m.mu.Unlock()

	for _, e := range endpoints {
		e.shutdown()
	}
	m.closeOnce.Do(func() {
		m.closeErr = m.conn.Close()
	})
	return m.closeErr
}

// Runs until the connection fails or is closed.
func (m *Mux) readLoop() {
	defer m.Close()

	buf := make([]byte, m.bufferSize)
	for {
		n, err := m.conn.Read(buf)
		if err != nil {
			log.Debug("read loop exiting: %v", err)
			return
		}
		// The endpoint keeps buf and gives back one of its spare slots.
		buf = m.dispatch(buf[:n])
		buf = buf[:cap(buf)]
	}
}

func (m *Mux) dispatch(buf []byte) []byte {
	m.mu.Lock()
	var target *Endpoint
	for _, e := range m.endpoints {
		if e.match(buf) {
			target = e
			break
		}
	}
	m.mu.Unlock()

	if target == nil {
		if len(buf) > 0 {
			log.Trace(1, "no endpoint for %d byte packet, first byte %d", len(buf), buf[0])
		}
		return buf
	}
	return target.deliver(buf)
}
