// SPDX-License-Identifier: MIT
/*
Package audio captures live input with PortAudio and turns it into level
frames:
- Interleaved float32 capture, downmixed to mono
- Streaming level extraction with pre-allocated buffers
- A dispatcher goroutine that hands frames to a transport
- WAV recording with atomic state management

Thread Safety:
- The PortAudio callback never blocks; frames are dropped when the queue is full
- Uses atomic operations for recording state
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"levels/internal/config"
	"levels/internal/level"
	"levels/internal/loader"
	applog "levels/internal/log"
	"levels/internal/transport"
)

type Engine struct {
	// Core configuration and state.
	config   *config.Config
	channels int

	// Audio input handling.
	inputBuffer  []float32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Level extraction.
	monoBuffer []float32
	streamer   *level.Streamer
	emitFn     func(level.Frame) // e.enqueue, bound once

	// Frame delivery.
	frames    chan level.Frame
	transport transport.Transport
	dropped   atomic.Uint64
	emitted   atomic.Uint64
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Recording state and buffers. recordMu guards the fields after it; the
	// callback only takes it while isRecording is set.
	isRecording int32 // Atomic flag for thread-safe state
	recordMu    sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	sampleMax   float64          // Full scale for the recording bit depth
}

// NewEngine opens the configured input device and prepares an engine that
// delivers frames to t. The returned warning is non-nil when the frame
// parameters are accepted but unusual.
func NewEngine(cfg *config.Config, t transport.Transport) (*Engine, *level.Warning, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Audio.InputChannels > inputDevice.MaxInputChannels {
		return nil, nil, fmt.Errorf("device %s has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Audio.InputChannels)
	}

	engine, warn, err := newEngine(cfg, t)
	if err != nil {
		return nil, nil, err
	}
	engine.inputDevice = inputDevice

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, warn, nil
}

// newEngine builds everything except the device binding and starts the
// dispatcher.
func newEngine(cfg *config.Config, t transport.Transport) (*Engine, *level.Warning, error) {
	if t == nil {
		return nil, nil, fmt.Errorf("audio engine: transport cannot be nil")
	}
	streamer, warn, err := level.NewStreamer(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	queue := cfg.Audio.FrameQueue
	if queue <= 0 {
		queue = config.DefaultFrameQueue
	}

	e := &Engine{
		config:      cfg,
		channels:    cfg.Audio.InputChannels,
		inputBuffer: make([]float32, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		monoBuffer:  make([]float32, cfg.Audio.FramesPerBuffer),
		streamer:    streamer,
		frames:      make(chan level.Frame, queue),
		transport:   t,
	}
	e.emitFn = e.enqueue

	e.wg.Add(1)
	go e.dispatch()

	return e, warn, nil
}

func (e *Engine) StartInputStream() error {
	if e.inputDevice == nil {
		return fmt.Errorf("audio engine: no input device")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}

	applog.Infof("Audio engine: capturing from %s at %.0f Hz (%d ch, %d frames/buffer)",
		e.inputDevice.Name, e.config.Audio.SampleRate, e.channels, e.config.Audio.FramesPerBuffer)
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// Dropped returns the number of frames discarded because the queue was full.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// Emitted returns the number of frames produced so far.
func (e *Engine) Emitted() uint64 {
	return e.emitted.Load()
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	buf := e.inputBuffer
	if len(in) <= len(buf) {
		n := copy(buf, in)
		buf = buf[:n]
	} else {
		buf = in
	}
	e.processBuffer(buf)

	if atomic.LoadInt32(&e.isRecording) == 1 {
		e.record(buf)
	}
}

// processBuffer downmixes an interleaved buffer and feeds the streamer.
func (e *Engine) processBuffer(buffer []float32) {
	mono := e.monoBuffer
	if need := len(buffer) / e.channels; need > len(mono) {
		// Larger callback than configured; grow once.
		mono = make([]float32, need)
		e.monoBuffer = mono
	}
	n := loader.DownmixInto(mono, buffer, e.channels)
	e.streamer.Write(mono[:n], e.emitFn)
}

// enqueue hands a frame to the dispatcher without blocking.
func (e *Engine) enqueue(f level.Frame) {
	e.emitted.Add(1)
	select {
	case e.frames <- f:
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) dispatch() {
	defer e.wg.Done()
	for f := range e.frames {
		if err := e.transport.Send(f); err != nil {
			applog.Debugf("Audio engine: transport error for frame %d: %v", f.Index, err)
		}
	}
}

// Close stops capture, then recording, emits the frames that overrun the
// end of the captured signal and waits for the dispatcher to drain. The
// transport is left open for the caller to close.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		// The callback must be gone before the recording is finalised.
		err = e.StopInputStream()

		if rerr := e.StopRecording(); rerr != nil && err == nil {
			err = rerr
		}

		// Nothing captured is not an error on shutdown.
		_ = e.streamer.Flush(e.emitFn)

		close(e.frames)
		e.wg.Wait()

		if dropped := e.dropped.Load(); dropped > 0 {
			applog.Warnf("Audio engine: dropped %d of %d frames", dropped, e.emitted.Load())
		}
	})
	return err
}
