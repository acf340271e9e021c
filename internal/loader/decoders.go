// SPDX-License-Identifier: MIT
package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// WAV audio format tags.
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder reads integer PCM and 32-bit IEEE float WAV files through
// go-audio/wav.
type WAVDecoder struct{}

func (WAVDecoder) Decode(r io.ReadSeeker) (*PCM, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidFile)
	}

	bitDepth := int(d.BitDepth)
	isFloat := false
	switch d.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
	case wavFormatFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float wav", ErrUnsupportedFormat, bitDepth)
		}
		isFloat = true
	default:
		return nil, fmt.Errorf("%w: wav audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidFile, bitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}

	out := make([]float32, len(buf.Data))
	switch {
	case isFloat:
		// go-audio hands back the raw 32-bit words as integers.
		for i, v := range buf.Data {
			out[i] = math.Float32frombits(uint32(v))
		}
	case bitDepth == 8:
		// 8-bit WAV is unsigned with a 128 offset.
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
	default:
		scale := 1 / float64(int64(1)<<(bitDepth-1))
		for i, v := range buf.Data {
			out[i] = float32(float64(v) * scale)
		}
	}

	return &PCM{
		Interleaved: out,
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
	}, nil
}

// MP3Decoder reads MPEG-1/2 layer III through go-mp3, which always yields
// 16-bit little-endian stereo.
type MP3Decoder struct{}

func (MP3Decoder) Decode(r io.ReadSeeker) (*PCM, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	samples := len(raw) / 2
	out := make([]float32, samples)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		out[i] = float32(v) / 32768
	}

	return &PCM{
		Interleaved: out,
		SampleRate:  dec.SampleRate(),
		Channels:    2,
	}, nil
}

// VorbisDecoder reads Ogg Vorbis through jfreymuth/oggvorbis.
type VorbisDecoder struct{}

func (VorbisDecoder) Decode(r io.ReadSeeker) (*PCM, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return &PCM{
		Interleaved: data,
		SampleRate:  format.SampleRate,
		Channels:    format.Channels,
	}, nil
}
