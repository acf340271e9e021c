package utils

import (
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"levels/internal/level"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu     sync.Mutex
	Frames []level.Frame
	Closed bool
}

// Send records the frame for later inspection instead of transmitting.
func (m *MockTransport) Send(f level.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, f)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Received returns a copy of the frames sent so far.
func (m *MockTransport) Received() []level.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]level.Frame, len(m.Frames))
	copy(out, m.Frames)
	return out
}

// GenerateComplexWave returns a 440Hz tone with two harmonics scaled to
// 0.9 full scale.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateSineWave returns a sine at frequency scaled by amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// Interleave repeats each mono sample across channels.
func Interleave(mono []float32, channels int) []float32 {
	out := make([]float32, len(mono)*channels)
	for i, v := range mono {
		for c := range channels {
			out[i*channels+c] = v
		}
	}
	return out
}

// WriteWAV writes interleaved float samples as 16-bit PCM.
func WriteWAV(path string, interleaved []float32, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, len(interleaved)),
		SourceBitDepth: 16,
	}
	for i, v := range interleaved {
		buf.Data[i] = int(math.Round(float64(clamp(v)) * 32767))
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// RMS returns the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func clamp(v float32) float32 {
	return max(-1, min(1, v))
}
