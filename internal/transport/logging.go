// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"levels/internal/level"
	applog "levels/internal/log"
)

// LoggingTransport implements the Transport interface by logging frames at
// debug level.
type LoggingTransport struct {
	sampleRate float64
	count      atomic.Int64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport(sampleRate float64) *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{sampleRate: sampleRate}
}

// Send logs the frame. It never fails.
func (lt *LoggingTransport) Send(f level.Frame) error {
	lt.count.Add(1)
	m := NewMessage(f, lt.sampleRate)
	applog.Debugf("LOG_TRANSPORT: frame %d @ %.3fs (sample %d) level %.6g", m.Index, m.Seconds, m.Start, m.Level)
	return nil
}

// Count returns the number of frames seen.
func (lt *LoggingTransport) Count() int64 {
	return lt.count.Load()
}

// Close reports how many frames were logged.
func (lt *LoggingTransport) Close() error {
	applog.Infof("LOG_TRANSPORT: Close called after %d frames.", lt.count.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
