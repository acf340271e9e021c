// SPDX-License-Identifier: MIT
package level

// Streamer produces the frames of a signal that arrives in chunks. Feeding a
// signal through Write and then Flush yields exactly the frames that
// Extractor.Frames returns for the concatenated signal.
//
// A Streamer is not safe for concurrent use.
type Streamer struct {
	params Params

	buf   []float64 // samples [base, total)
	base  int       // absolute index of buf[0]
	total int       // samples written since the last reset
	next  int       // absolute start of the next frame
	index int       // index of the next frame
}

// NewStreamer validates p and returns an empty Streamer.
func NewStreamer(p Params) (*Streamer, *Warning, error) {
	warn, err := p.Validate()
	if err != nil {
		return nil, nil, err
	}
	return &Streamer{
		params: p,
		buf:    make([]float64, 0, 2*p.FrameSize),
	}, warn, nil
}

// Params returns the streamer configuration.
func (s *Streamer) Params() Params {
	return s.params
}

// Written returns the number of samples written since the last reset.
func (s *Streamer) Written() int {
	return s.total
}

// Write appends samples and calls emit for every frame whose window is now
// complete.
func (s *Streamer) Write(samples []float32, emit func(Frame)) {
	for _, v := range samples {
		if s.total < s.next {
			// Between frames when HopSize > FrameSize; never read.
			s.total++
			s.base = s.total
			continue
		}
		s.buf = append(s.buf, float64(v))
		s.total++
	}

	frameSize := s.params.FrameSize
	for s.next+frameSize <= s.total {
		off := s.next - s.base
		s.emit(emit, s.buf[off:off+frameSize])
	}
	s.compact()
}

// Flush emits the trailing frames that overrun the end of the signal, then
// resets the Streamer. It returns ErrEmptyInput if nothing was written.
func (s *Streamer) Flush(emit func(Frame)) error {
	if s.total == 0 {
		return ErrEmptyInput
	}

	limit := s.total - s.params.FrameSize + s.params.HopSize
	for s.next < limit || s.index == 0 {
		lo := min(s.next, s.total) - s.base
		hi := min(s.next+s.params.FrameSize, s.total) - s.base
		s.emit(emit, s.buf[lo:hi])
	}

	s.Reset()
	return nil
}

// Reset discards buffered samples and restarts frame numbering.
func (s *Streamer) Reset() {
	s.buf = s.buf[:0]
	s.base = 0
	s.total = 0
	s.next = 0
	s.index = 0
}

func (s *Streamer) emit(emit func(Frame), window []float64) {
	f := Frame{Index: s.index, Start: s.next, Level: float32(Level(window))}
	s.index++
	s.next += s.params.HopSize
	if emit != nil {
		emit(f)
	}
}

// compact drops samples that precede the next frame once they make up at
// least half of the buffer.
func (s *Streamer) compact() {
	drop := min(s.next, s.total) - s.base
	if drop <= 0 || 2*drop < len(s.buf) {
		return
	}
	n := copy(s.buf, s.buf[drop:])
	s.buf = s.buf[:n]
	s.base += drop
}
