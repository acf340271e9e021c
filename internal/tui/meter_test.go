// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"levels/internal/level"
)

func update(t *testing.T, m MeterModel, msg tea.Msg) (MeterModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(MeterModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm, cmd
}

func TestMeterTracksFrames(t *testing.T) {
	m := NewMeterModel("mic", 1000)
	m, _ = update(t, m, frameMsg{Index: 0, Start: 0, Level: 2})
	m, _ = update(t, m, frameMsg{Index: 1, Start: 500, Level: 8})
	m, _ = update(t, m, frameMsg{Index: 2, Start: 1000, Level: 4})

	if m.count != 3 || m.peak != 8 || m.latest.Index != 2 {
		t.Fatalf("count=%d peak=%v latest=%+v", m.count, m.peak, m.latest)
	}

	view := m.View()
	for _, want := range []string{"mic", "frame 2", "t=1.00s", "frames 3", "peak 8"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMeterWaiting(t *testing.T) {
	if !strings.Contains(NewMeterModel("mic", 44100).View(), "Waiting") {
		t.Error("empty meter should show a waiting message")
	}
}

func TestMeterKeys(t *testing.T) {
	m := NewMeterModel("mic", 44100)
	m, _ = update(t, m, frameMsg{Level: 10})
	m, _ = update(t, m, frameMsg{Index: 1, Level: 3})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd != nil || m.peak != 3 {
		t.Errorf("reset: peak=%v cmd=%v", m.peak, cmd)
	}

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := update(t, m, msg)
		if cmd == nil {
			t.Fatalf("%v: expected quit command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v: command did not quit", msg)
		}
	}
}

func TestMeterResize(t *testing.T) {
	m := NewMeterModel("mic", 44100)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	if m.width != 80 {
		t.Errorf("width = %d, want 80", m.width)
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 5, Height: 20})
	if m.width != minBarWidth {
		t.Errorf("width = %d, want %d", m.width, minBarWidth)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		v, peak float32
		width   int
		filled  int
	}{
		{0, 0, 10, 0},
		{5, 10, 10, 5},
		{10, 10, 10, 10},
		{20, 10, 10, 10},
		{1, 3, 4, 1},
	}
	for _, tt := range tests {
		got := bar(tt.v, tt.peak, tt.width)
		if n := strings.Count(got, "█"); n != tt.filled {
			t.Errorf("bar(%v, %v, %d) filled %d, want %d", tt.v, tt.peak, tt.width, n, tt.filled)
		}
		if n := len([]rune(got)); n != tt.width {
			t.Errorf("bar(%v, %v, %d) has %d cells", tt.v, tt.peak, tt.width, n)
		}
	}
}

func TestFrameMsgConversion(t *testing.T) {
	f := level.Frame{Index: 4, Start: 8, Level: 0.5}
	m, _ := update(t, NewMeterModel("x", 0), frameMsg(f))
	if m.latest != f {
		t.Errorf("latest = %+v, want %+v", m.latest, f)
	}
	if !strings.Contains(m.View(), "t=0.00s") {
		t.Error("unknown sample rate should show zero time")
	}
}
