// SPDX-License-Identifier: MIT
// Package tui renders live frame levels in the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"levels/internal/level"
	"levels/internal/transport"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	peakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8B339")).
			Bold(true)
)

const (
	defaultBarWidth = 50
	minBarWidth     = 10
)

type keyMap struct {
	Quit  key.Binding
	Reset key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset peak")),
}

// frameMsg carries one frame into the program.
type frameMsg level.Frame

// MeterModel is the Bubble Tea model of the level meter. The bar is scaled
// to the loudest frame seen since the last reset.
type MeterModel struct {
	title      string
	sampleRate float64
	latest     level.Frame
	peak       float32
	count      int
	width      int
}

// NewMeterModel creates a meter. sampleRate converts frame starts to time.
func NewMeterModel(title string, sampleRate float64) MeterModel {
	return MeterModel{
		title:      title,
		sampleRate: sampleRate,
		width:      defaultBarWidth,
	}
}

// Init implements tea.Model.
func (m MeterModel) Init() tea.Cmd {
	return nil
}

// Update handles frames, resizes and key presses.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.latest = level.Frame(msg)
		m.peak = max(m.peak, msg.Level)
		m.count++

	case tea.WindowSizeMsg:
		m.width = max(msg.Width-20, minBarWidth)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Reset):
			m.peak = m.latest.Level
		}
	}
	return m, nil
}

// View renders the meter.
func (m MeterModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	if m.count == 0 {
		sb.WriteString(infoStyle.Render("Waiting for the first frame..."))
	} else {
		var seconds float64
		if m.sampleRate > 0 {
			seconds = float64(m.latest.Start) / m.sampleRate
		}
		sb.WriteString(barStyle.Render(bar(m.latest.Level, m.peak, m.width)))
		sb.WriteString("\n\n")
		sb.WriteString(infoStyle.Render(fmt.Sprintf("level %.4g  frame %d  t=%.2fs  frames %d  ",
			m.latest.Level, m.latest.Index, seconds, m.count)))
		sb.WriteString(peakStyle.Render(fmt.Sprintf("peak %.4g", m.peak)))
	}

	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("%s: %s • %s: %s",
		keys.Reset.Help().Key, keys.Reset.Help().Desc,
		keys.Quit.Help().Key, keys.Quit.Help().Desc)))
	return sb.String()
}

// bar draws v relative to peak in width cells.
func bar(v, peak float32, width int) string {
	filled := 0
	if peak > 0 {
		filled = int(float32(width)*v/peak + 0.5)
	}
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Meter runs a MeterModel and accepts frames from any goroutine.
type Meter struct {
	program *tea.Program
}

// NewMeter creates the program for m; call Run to start it.
func NewMeter(m MeterModel, opts ...tea.ProgramOption) *Meter {
	return &Meter{program: tea.NewProgram(m, opts...)}
}

// Run blocks until the user quits or Close is called.
func (mt *Meter) Run() error {
	_, err := mt.program.Run()
	return err
}

// Send delivers f to the running program.
func (mt *Meter) Send(f level.Frame) error {
	mt.program.Send(frameMsg(f))
	return nil
}

// Close stops the program.
func (mt *Meter) Close() error {
	mt.program.Quit()
	return nil
}

var _ transport.Transport = (*Meter)(nil)
