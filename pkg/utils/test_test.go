// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"levels/internal/level"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestMockTransport(t *testing.T) {
	tests := []struct {
		name   string
		frames []level.Frame
	}{
		{"Empty", nil},
		{"Single Frame", []level.Frame{{Index: 0, Start: 0, Level: 0.5}}},
		{"Multiple Frames", []level.Frame{{Index: 0, Start: 0, Level: 0.1}, {Index: 1, Start: 128, Level: 0.2}, {Index: 2, Start: 256, Level: 0.3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := &MockTransport{}
			for _, f := range tt.frames {
				if err := mt.Send(f); err != nil {
					t.Errorf("MockTransport.Send() error = %v", err)
				}
			}

			got := mt.Received()
			if len(got) != len(tt.frames) {
				t.Fatalf("MockTransport stored %d frames, want %d", len(got), len(tt.frames))
			}
			for i := range got {
				if got[i] != tt.frames[i] {
					t.Errorf("frame %d = %+v, want %+v", i, got[i], tt.frames[i])
				}
			}

			if len(got) > 0 {
				got[0].Level = 999
				if mt.Received()[0].Level == 999 {
					t.Error("Received() returned internal storage instead of a copy")
				}
			}

			if err := mt.Close(); err != nil || !mt.Closed {
				t.Errorf("Close() = %v, Closed = %v", err, mt.Closed)
			}
		})
	}
}

func TestGenerateSineWave(t *testing.T) {
	wave := GenerateSineWave(testSampleRate, testSampleRate, testFrequency, 1)
	if len(wave) != testSampleRate {
		t.Fatalf("len = %d, want %d", len(wave), testSampleRate)
	}
	// One second of a full-scale sine has RMS 1/sqrt(2).
	if got := RMS(wave); math.Abs(got-1/math.Sqrt2) > 1e-3 {
		t.Errorf("RMS = %f, want %f", got, 1/math.Sqrt2)
	}
}

func TestGenerateComplexWave(t *testing.T) {
	wave := GenerateComplexWave(testSize, testSampleRate)
	for i, v := range wave {
		if v > 1 || v < -1 {
			t.Fatalf("sample %d = %f out of range", i, v)
		}
	}
	if RMS(wave) == 0 {
		t.Error("complex wave is silent")
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]float32{1, 2}, 3)
	want := []float32{1, 1, 1, 2, 2, 2}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAV(path, GenerateSineWave(testSize, testSampleRate, testFrequency, 0.5), testSampleRate, 1); err != nil {
		t.Fatalf("WriteWAV error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error = %v", err)
	}
	// 44-byte header plus 2 bytes per sample.
	if info.Size() < 44+2*testSize {
		t.Errorf("file size = %d, want at least %d", info.Size(), 44+2*testSize)
	}
}

func TestRMSEmpty(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("RMS(nil) should be 0")
	}
}
