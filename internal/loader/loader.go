// SPDX-License-Identifier: MIT
/*
Package loader decodes audio files into mono float32 signals.

Decoders are registered by file extension. Every decoder returns interleaved
samples in [-1, 1]; Load averages the channels down to mono. Samples are
returned at the file's native rate, no resampling is applied.
*/
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFile       = errors.New("invalid audio file")
)

// Signal is a decoded, downmixed audio signal.
type Signal struct {
	Samples    []float32 // mono samples in [-1, 1]
	SampleRate int       // Hz
	Channels   int       // channel count of the source before downmixing
	Source     string    // path or name the signal was loaded from
}

// Duration returns the signal length in seconds, or 0 if the rate is unknown.
func (s *Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// PCM is the raw output of a Decoder.
type PCM struct {
	Interleaved []float32
	SampleRate  int
	Channels    int
}

// Decoder turns an encoded stream into interleaved PCM.
type Decoder interface {
	Decode(r io.ReadSeeker) (*PCM, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.ReadSeeker) (*PCM, error)

func (f DecoderFunc) Decode(r io.ReadSeeker) (*PCM, error) { return f(r) }

// Registry maps format keys (lower-case extensions without the dot) to
// decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry knows wav, mp3 and ogg.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("wav", WAVDecoder{})
	r.Register("wave", WAVDecoder{})
	r.Register("mp3", MP3Decoder{})
	r.Register("ogg", VorbisDecoder{})
	r.Register("oga", VorbisDecoder{})
	return r
}

func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[strings.ToLower(format)]
	return d, ok
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load decodes the file at path with the decoder registered for its
// extension.
func (r *Registry) Load(path string) (*Signal, error) {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sig, err := r.Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sig.Source = path
	return sig, nil
}

// Decode decodes rs as format and downmixes it to mono.
func (r *Registry) Decode(rs io.ReadSeeker, format string) (*Signal, error) {
	dec, ok := r.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	pcm, err := dec.Decode(rs)
	if err != nil {
		return nil, err
	}
	if pcm.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFile, pcm.Channels)
	}

	return &Signal{
		Samples:    Downmix(pcm.Interleaved, pcm.Channels),
		SampleRate: pcm.SampleRate,
		Channels:   pcm.Channels,
	}, nil
}

var defaultRegistry = DefaultRegistry()

// Load decodes path with the default registry.
func Load(path string) (*Signal, error) {
	return defaultRegistry.Load(path)
}

// Downmix averages interleaved channels into one. A trailing partial frame
// is dropped. Mono input is returned as is.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	out := make([]float32, frames)
	inv := 1 / float32(channels)

	switch channels {
	case 2:
		for f := range frames {
			idx := f << 1
			out[f] = (interleaved[idx] + interleaved[idx+1]) * 0.5
		}
	default:
		for f := range frames {
			var sum float32
			base := f * channels
			for c := range channels {
				sum += interleaved[base+c]
			}
			out[f] = sum * inv
		}
	}
	return out
}

// DownmixInto is Downmix writing into dst, which must hold
// len(interleaved)/channels samples. It returns the number of samples
// written.
func DownmixInto(dst, interleaved []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}
	frames := min(len(interleaved)/channels, len(dst))
	inv := 1 / float32(channels)
	for f := range frames {
		var sum float32
		base := f * channels
		for c := range channels {
			sum += interleaved[base+c]
		}
		dst[f] = sum * inv
	}
	return frames
}
