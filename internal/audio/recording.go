// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "levels/internal/log"
)

// StartRecording writes the raw interleaved capture to a WAV file at the
// configured bit depth until StopRecording.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	bitDepth := e.config.Recording.BitDepth
	encoder := wav.NewEncoder(file, int(e.config.Audio.SampleRate),
		bitDepth, e.channels, 1)

	sampleBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data:           make([]int, len(e.inputBuffer)),
		SourceBitDepth: bitDepth,
	}

	e.recordMu.Lock()
	e.outputFile = file
	e.wavEncoder = encoder
	e.sampleBuf = sampleBuf
	e.sampleMax = fullScale(bitDepth)
	e.recordMu.Unlock()

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("Recording to %s (%d-bit)", filename, bitDepth)

	return nil
}

// record converts float samples to integers and appends them to the file.
func (e *Engine) record(buf []float32) {
	e.recordMu.Lock()
	defer e.recordMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	data := e.sampleBuf.Data[:cap(e.sampleBuf.Data)]
	if len(buf) > len(data) {
		data = make([]int, len(buf))
	}
	for i, sample := range buf {
		data[i] = toPCM(sample, e.sampleMax)
	}
	e.sampleBuf.Data = data[:len(buf)]

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Error writing to WAV file: %v", err)
	}
}

// StopRecording finalises the WAV file. It waits for an in-flight write
// from the audio callback.
func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	e.recordMu.Lock()
	defer e.recordMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

// IsRecording reports whether the capture is being written to disk.
func (e *Engine) IsRecording() bool {
	return atomic.LoadInt32(&e.isRecording) == 1
}

func clampUnit(v float32) float32 {
	return max(-1, min(1, v))
}

// fullScale is the largest sample value at bitDepth.
func fullScale(bitDepth int) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}

// toPCM scales v in [-1, 1] to an integer sample. The product is formed in
// float64 so that +1 stays at full scale instead of wrapping at 32 bits.
func toPCM(v float32, scale float64) int {
	return int(float64(clampUnit(v)) * scale)
}
