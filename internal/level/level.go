// SPDX-License-Identifier: MIT
/*
Package level implements frame-based level extraction.

A signal is cut into frames of FrameSize samples whose start indices advance
by HopSize samples. Each frame is reduced to one value, its energy raised to
the power 0.67:

	energy = Σ x[k]²   for k in [start, min(start+FrameSize, N))
	level  = energy^0.67

Frame starts are 0, HopSize, 2*HopSize, ... for every start i satisfying
i < N - FrameSize + HopSize. The last frame may run past the end of the
signal; past-end positions contribute zero energy. A non-empty signal always
produces at least one frame.

Extractor works on a complete signal; Streamer produces the same frames from
a signal delivered in chunks.
*/
package level

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultFrameSize is 2 seconds at 44.1 kHz.
	DefaultFrameSize = 88200
	// DefaultHopSize is 1 second at 44.1 kHz.
	DefaultHopSize = 44100

	// Exponent applied to frame energy.
	Exponent = 0.67
)

var (
	// ErrInvalidParameter is wrapped by every configuration error.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptyInput is returned when there is no signal to process.
	ErrEmptyInput = errors.New("empty input")
)

// ParameterError reports a rejected configuration value.
type ParameterError struct {
	Name  string
	Value int
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s must be positive, got %d", ErrInvalidParameter, e.Name, e.Value)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// Warning is a non-fatal advisory about an accepted configuration.
type Warning struct {
	Message string
}

func (w *Warning) String() string { return w.Message }

// Params is the extractor configuration, in samples.
type Params struct {
	FrameSize int `yaml:"frame_size" json:"frame_size"`
	HopSize   int `yaml:"hop_size" json:"hop_size"`
}

// DefaultParams returns the 2 s / 1 s windows at 44.1 kHz.
func DefaultParams() Params {
	return Params{FrameSize: DefaultFrameSize, HopSize: DefaultHopSize}
}

// Validate rejects non-positive sizes. A hop larger than the frame is
// accepted with a Warning because samples between frames are never read.
func (p Params) Validate() (*Warning, error) {
	if p.FrameSize <= 0 {
		return nil, &ParameterError{Name: "frameSize", Value: p.FrameSize}
	}
	if p.HopSize <= 0 {
		return nil, &ParameterError{Name: "hopSize", Value: p.HopSize}
	}
	if p.HopSize > p.FrameSize {
		return &Warning{Message: fmt.Sprintf(
			"hopSize (%d) is larger than frameSize (%d): %d samples between frames will be skipped",
			p.HopSize, p.FrameSize, p.HopSize-p.FrameSize)}, nil
	}
	return nil, nil
}

// Frame is one extracted value together with its position.
type Frame struct {
	Index int     `json:"index" yaml:"index" msgpack:"index"`
	Start int     `json:"start" yaml:"start" msgpack:"start"`
	Level float32 `json:"level" yaml:"level" msgpack:"level"`
}

// NumFrames returns how many frames a signal of n samples produces.
func NumFrames(n, frameSize, hopSize int) int {
	if n <= 0 || frameSize <= 0 || hopSize <= 0 {
		return 0
	}
	limit := n - frameSize + hopSize
	if limit <= 0 {
		return 1
	}
	return (limit + hopSize - 1) / hopSize
}

// Level returns the energy of frame raised to Exponent.
func Level(frame []float64) float64 {
	energy := floats.Dot(frame, frame)
	if energy <= 0 {
		return 0
	}
	return math.Pow(energy, Exponent)
}

// Extractor computes levels over whole signals. The zero value is not
// usable; construct with New.
//
// Configure must not run concurrently with Process or Frames on the same
// instance. Separate instances share nothing.
type Extractor struct {
	params Params
}

// New returns an Extractor with DefaultParams.
func New() *Extractor {
	return &Extractor{params: DefaultParams()}
}

// NewWithParams returns a configured Extractor, or the validation error.
func NewWithParams(p Params) (*Extractor, *Warning, error) {
	e := New()
	warn, err := e.Configure(p)
	if err != nil {
		return nil, nil, err
	}
	return e, warn, nil
}

// Configure replaces the active parameters. On error the previous
// parameters stay in effect.
func (e *Extractor) Configure(p Params) (*Warning, error) {
	warn, err := p.Validate()
	if err != nil {
		return nil, err
	}
	e.params = p
	return warn, nil
}

// Params returns the active parameters.
func (e *Extractor) Params() Params {
	return e.params
}

// Process returns one level per frame of signal. The input is not modified
// or retained.
func (e *Extractor) Process(signal []float32) ([]float32, error) {
	if len(signal) == 0 {
		return nil, ErrEmptyInput
	}

	x := widen(signal)
	out := make([]float32, 0, NumFrames(len(x), e.params.FrameSize, e.params.HopSize))
	e.frames(x, func(f Frame) {
		out = append(out, f.Level)
	})
	return out, nil
}

// Frames is Process with frame positions attached.
func (e *Extractor) Frames(signal []float32) ([]Frame, error) {
	if len(signal) == 0 {
		return nil, ErrEmptyInput
	}

	x := widen(signal)
	out := make([]Frame, 0, NumFrames(len(x), e.params.FrameSize, e.params.HopSize))
	e.frames(x, func(f Frame) {
		out = append(out, f)
	})
	return out, nil
}

func (e *Extractor) frames(x []float64, emit func(Frame)) {
	n := len(x)
	frameSize, hopSize := e.params.FrameSize, e.params.HopSize
	limit := n - frameSize + hopSize

	index := 0
	for i := 0; i < limit || index == 0; i += hopSize {
		emit(Frame{Index: index, Start: i, Level: float32(Level(window(x, i, frameSize)))})
		index++
	}
}

// window returns x[start:start+size] clamped to the bounds of x.
func window(x []float64, start, size int) []float64 {
	n := len(x)
	end := min(start+size, n)
	start = min(start, n)
	return x[start:end]
}

func widen(signal []float32) []float64 {
	x := make([]float64, len(signal))
	for i, v := range signal {
		x[i] = float64(v)
	}
	return x
}
