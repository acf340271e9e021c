// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"

	"levels/internal/level"
)

// Transport delivers extracted level frames somewhere outside the process.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(f level.Frame) error
	Close() error
}

// Message is the wire form of a frame for text protocols.
type Message struct {
	Index   int     `json:"index"`
	Start   int     `json:"start"`
	Seconds float64 `json:"seconds"`
	Level   float32 `json:"level"`
}

// NewMessage attaches the frame's start time, in seconds, at sampleRate.
// Seconds is 0 when the rate is unknown.
func NewMessage(f level.Frame, sampleRate float64) Message {
	m := Message{Index: f.Index, Start: f.Start, Level: f.Level}
	if sampleRate > 0 {
		m.Seconds = float64(f.Start) / sampleRate
	}
	return m
}

// Multi fans every frame out to all of its transports.
type Multi struct {
	mu         sync.Mutex
	transports []Transport
}

// NewMulti returns a fan-out over ts. Nil entries are skipped.
func NewMulti(ts ...Transport) *Multi {
	m := &Multi{}
	for _, t := range ts {
		if t != nil {
			m.transports = append(m.transports, t)
		}
	}
	return m
}

// Add registers another transport.
func (m *Multi) Add(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transports = append(m.transports, t)
}

// Len returns the number of transports.
func (m *Multi) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transports)
}

// Send delivers f to every transport, even if some fail, and joins the
// errors.
func (m *Multi) Send(f level.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, t := range m.transports {
		if err := t.Send(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins the errors.
func (m *Multi) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, t := range m.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.transports = nil
	return errors.Join(errs...)
}

var _ Transport = (*Multi)(nil)
