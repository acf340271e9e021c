// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"io"
	"sync"

	"levels/internal/level"
)

// WriterTransport writes one JSON Message per line to an io.Writer.
type WriterTransport struct {
	mu         sync.Mutex
	enc        *json.Encoder
	sampleRate float64
}

// NewWriterTransport creates a WriterTransport on w.
func NewWriterTransport(w io.Writer, sampleRate float64) *WriterTransport {
	return &WriterTransport{enc: json.NewEncoder(w), sampleRate: sampleRate}
}

// Send encodes f as a single line.
func (wt *WriterTransport) Send(f level.Frame) error {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	return wt.enc.Encode(NewMessage(f, wt.sampleRate))
}

// Close is a no-op; the writer belongs to the caller.
func (wt *WriterTransport) Close() error {
	return nil
}

var _ Transport = (*WriterTransport)(nil)
