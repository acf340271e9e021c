// SPDX-License-Identifier: MIT
package level

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
)

// referenceLevels sums squares over signal[i:i+frameSize] for i stepping by
// hopSize while i < len(signal)-frameSize+hopSize.
func referenceLevels(signal []float32, frameSize, hopSize int) []float64 {
	var out []float64
	for i := 0; i < len(signal)-frameSize+hopSize; i += hopSize {
		sum := 0.0
		for k := i; k < i+frameSize && k < len(signal); k++ {
			sum += float64(signal[k]) * float64(signal[k])
		}
		out = append(out, math.Pow(sum, 0.67))
	}
	return out
}

func randomSignal(n int, seed uint64) []float32 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(r.Float64()*2 - 1)
	}
	return s
}

func relClose(got, want, tol float64) bool {
	if want == 0 {
		return math.Abs(got) <= tol
	}
	return math.Abs(got-want)/math.Abs(want) <= tol
}

func TestProcessEmpty(t *testing.T) {
	params := []Params{
		DefaultParams(),
		{FrameSize: 2, HopSize: 1},
		{FrameSize: 44100, HopSize: 88200},
	}
	for _, p := range params {
		e, _, err := NewWithParams(p)
		if err != nil {
			t.Fatalf("NewWithParams(%+v) error = %v", p, err)
		}
		if _, err := e.Process(nil); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Process(nil) with %+v error = %v, want ErrEmptyInput", p, err)
		}
		if _, err := e.Frames([]float32{}); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Frames([]) with %+v error = %v, want ErrEmptyInput", p, err)
		}
	}
}

func TestProcessSilence(t *testing.T) {
	for _, n := range []int{1, 100, 44100, 88200} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			res, err := New().Process(make([]float32, n))
			if err != nil {
				t.Fatalf("Process error = %v", err)
			}
			if len(res) != 1 {
				t.Fatalf("len(res) = %d, want 1", len(res))
			}
			if math.Abs(float64(res[0])) > 1e-5 {
				t.Errorf("res[0] = %g, want 0", res[0])
			}
		})
	}
}

func TestConfigureIllegal(t *testing.T) {
	tests := []struct {
		frameSize, hopSize int
		name               string
	}{
		{-1, -1, "frameSize"},
		{-1, 44100, "frameSize"},
		{88200, -1, "hopSize"},
		{0, 0, "frameSize"},
		{88200, 0, "hopSize"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.frameSize, tt.hopSize), func(t *testing.T) {
			e := New()
			warn, err := e.Configure(Params{FrameSize: tt.frameSize, HopSize: tt.hopSize})
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("Configure error = %v, want ErrInvalidParameter", err)
			}
			if warn != nil {
				t.Errorf("Configure warning = %v, want nil on error", warn)
			}

			var perr *ParameterError
			if !errors.As(err, &perr) || perr.Name != tt.name {
				t.Errorf("ParameterError = %+v, want name %q", perr, tt.name)
			}

			if got := e.Params(); got != DefaultParams() {
				t.Errorf("Params after failed Configure = %+v, want defaults", got)
			}
		})
	}
}

func TestConfigureKeepsPreviousOnError(t *testing.T) {
	e := New()
	good := Params{FrameSize: 512, HopSize: 128}
	if _, err := e.Configure(good); err != nil {
		t.Fatalf("Configure(%+v) error = %v", good, err)
	}
	if _, err := e.Configure(Params{FrameSize: 512, HopSize: 0}); err == nil {
		t.Fatal("Configure with zero hop succeeded")
	}
	if e.Params() != good {
		t.Errorf("Params = %+v, want %+v", e.Params(), good)
	}
}

func TestConfigureWarning(t *testing.T) {
	e := New()
	warn, err := e.Configure(Params{FrameSize: 44100, HopSize: 88200})
	if err != nil {
		t.Fatalf("Configure error = %v", err)
	}
	if warn == nil {
		t.Fatal("expected a warning for hopSize > frameSize")
	}

	signal := randomSignal(100000, 7)
	res, err := e.Process(signal)
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if want := NumFrames(len(signal), 44100, 88200); len(res) != want {
		t.Errorf("len(res) = %d, want %d", len(res), want)
	}

	ref := referenceLevels(signal, 44100, 88200)
	for i := range ref {
		if !relClose(float64(res[i]), ref[i], 1e-4) {
			t.Errorf("res[%d] = %g, want %g", i, res[i], ref[i])
		}
	}
}

func TestConfigureSilent(t *testing.T) {
	for _, p := range []Params{{44100, 22050}, {2, 1}, {512, 512}} {
		warn, err := New().Configure(p)
		if err != nil || warn != nil {
			t.Errorf("Configure(%+v) = (%v, %v), want (nil, nil)", p, warn, err)
		}
	}
}

func TestProcessRandomFirstFrame(t *testing.T) {
	for seed := range uint64(10) {
		signal := randomSignal(DefaultFrameSize, seed)
		res, err := New().Process(signal)
		if err != nil {
			t.Fatalf("Process error = %v", err)
		}

		sum := 0.0
		for _, v := range signal {
			sum += float64(v) * float64(v)
		}
		want := math.Pow(sum, 0.67)
		if !relClose(float64(res[0]), want, 1e-4) {
			t.Errorf("seed %d: res[0] = %g, want %g", seed, res[0], want)
		}
	}
}

func TestProcessMatchesReference(t *testing.T) {
	signal := recording(44100)

	params := []Params{
		{44100, 22050},
		{88200, 44100},
		{88200, 9999},
		{2, 1},
		{512, 128},
		{44100 * 4, 44100},
	}

	for _, p := range params {
		t.Run(fmt.Sprintf("%d/%d", p.FrameSize, p.HopSize), func(t *testing.T) {
			e, _, err := NewWithParams(p)
			if err != nil {
				t.Fatalf("NewWithParams error = %v", err)
			}
			res, err := e.Process(signal)
			if err != nil {
				t.Fatalf("Process error = %v", err)
			}

			ref := referenceLevels(signal, p.FrameSize, p.HopSize)
			if len(ref) == 0 {
				// The reference loop yields nothing when the signal is
				// shorter than FrameSize-HopSize; the first frame is still
				// produced.
				ref = []float64{math.Pow(energy(signal), 0.67)}
			}
			if len(res) != len(ref) {
				t.Fatalf("len(res) = %d, want %d", len(res), len(ref))
			}
			for i := range ref {
				if !relClose(float64(res[i]), ref[i], 1e-4) {
					t.Fatalf("res[%d] = %g, want %g", i, res[i], ref[i])
				}
			}
		})
	}
}

func TestFrameBoundary(t *testing.T) {
	ones := func(n int) []float32 {
		s := make([]float32, n)
		for i := range s {
			s[i] = 1
		}
		return s
	}
	full := float32(math.Pow(4, 0.67))
	pair := float32(math.Pow(2, 0.67))

	tests := []struct {
		name      string
		n         int
		params    Params
		wantStart []int
		want      []float32
	}{
		{"exact fit", 10, Params{4, 3}, []int{0, 3, 6}, []float32{full, full, full}},
		{"partial tail", 11, Params{4, 3}, []int{0, 3, 6, 9}, []float32{full, full, full, pair}},
		{"start past end", 10, Params{2, 20}, []int{0, 20}, []float32{pair, 0}},
		{"shorter than frame", 3, Params{4, 1}, []int{0}, []float32{float32(math.Pow(3, 0.67))}},
		{"single sample hop", 5, Params{2, 1}, []int{0, 1, 2, 3}, []float32{pair, pair, pair, pair}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, err := NewWithParams(tt.params)
			if err != nil {
				t.Fatalf("NewWithParams error = %v", err)
			}
			frames, err := e.Frames(ones(tt.n))
			if err != nil {
				t.Fatalf("Frames error = %v", err)
			}
			if len(frames) != len(tt.want) {
				t.Fatalf("got %d frames, want %d", len(frames), len(tt.want))
			}
			for i, f := range frames {
				if f.Index != i || f.Start != tt.wantStart[i] {
					t.Errorf("frame %d at (%d, %d), want (%d, %d)", i, f.Index, f.Start, i, tt.wantStart[i])
				}
				if math.Abs(float64(f.Level-tt.want[i])) > 1e-5 {
					t.Errorf("frame %d level = %g, want %g", i, f.Level, tt.want[i])
				}
			}
		})
	}
}

func TestNumFramesMatchesProcess(t *testing.T) {
	signal := randomSignal(1000, 3)
	for _, n := range []int{1, 2, 7, 64, 999, 1000} {
		for _, frameSize := range []int{1, 2, 5, 64, 1500} {
			for _, hopSize := range []int{1, 3, 64, 2000} {
				e, _, err := NewWithParams(Params{frameSize, hopSize})
				if err != nil {
					t.Fatalf("NewWithParams error = %v", err)
				}
				res, err := e.Process(signal[:n])
				if err != nil {
					t.Fatalf("Process error = %v", err)
				}

				want := 0
				for i := 0; i < n-frameSize+hopSize; i += hopSize {
					want++
				}
				want = max(want, 1)

				if len(res) != want || NumFrames(n, frameSize, hopSize) != want {
					t.Errorf("n=%d frame=%d hop=%d: len=%d NumFrames=%d, want %d",
						n, frameSize, hopSize, len(res), NumFrames(n, frameSize, hopSize), want)
				}
			}
		}
	}
}

func TestNumFramesDegenerate(t *testing.T) {
	if got := NumFrames(0, 2, 1); got != 0 {
		t.Errorf("NumFrames(0, 2, 1) = %d, want 0", got)
	}
	if got := NumFrames(10, 0, 1); got != 0 {
		t.Errorf("NumFrames(10, 0, 1) = %d, want 0", got)
	}
}

func TestProcessDoesNotModifyInput(t *testing.T) {
	signal := randomSignal(2048, 11)
	orig := append([]float32(nil), signal...)

	e, _, _ := NewWithParams(Params{512, 128})
	if _, err := e.Process(signal); err != nil {
		t.Fatalf("Process error = %v", err)
	}
	for i := range signal {
		if signal[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestLevelZeroEnergy(t *testing.T) {
	if got := Level(nil); got != 0 {
		t.Errorf("Level(nil) = %g, want 0", got)
	}
	if got := Level([]float64{0, 0, 0}); got != 0 {
		t.Errorf("Level(zeros) = %g, want 0", got)
	}
}

func BenchmarkProcess(b *testing.B) {
	signal := randomSignal(44100*10, 1)
	e, _, _ := NewWithParams(Params{512, 128})

	b.ReportAllocs()
	for b.Loop() {
		_, _ = e.Process(signal)
	}
}

// recording is a deterministic stand-in for a music excerpt: a decaying
// kick every half second over a detuned pad and some noise.
func recording(n int) []float32 {
	r := rand.New(rand.NewPCG(42, 42))
	s := make([]float32, n)
	for i := range s {
		t := float64(i) / 44100
		beat := math.Mod(t, 0.5)
		kick := math.Exp(-beat*30) * math.Sin(2*math.Pi*55*beat)
		pad := 0.2*math.Sin(2*math.Pi*220*t) + 0.2*math.Sin(2*math.Pi*221.5*t)
		s[i] = float32(0.6*kick + pad + 0.05*(r.Float64()*2-1))
	}
	return s
}

func energy(signal []float32) float64 {
	sum := 0.0
	for _, v := range signal {
		sum += float64(v) * float64(v)
	}
	return sum
}
