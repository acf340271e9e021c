// SPDX-License-Identifier: MIT
// Package report renders extracted frame levels in several output formats.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"levels/internal/level"
)

// Output formats accepted by Write.
const (
	FormatText    = "text"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
)

// ErrUnknownFormat is returned by Write for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats lists the names accepted by Write.
func Formats() []string {
	return []string{FormatText, FormatCSV, FormatJSON, FormatYAML, FormatMsgpack}
}

// Result holds the frames extracted from one source.
type Result struct {
	Source     string        `json:"source" yaml:"source" msgpack:"source"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate" msgpack:"sample_rate"`
	FrameSize  int           `json:"frame_size" yaml:"frame_size" msgpack:"frame_size"`
	HopSize    int           `json:"hop_size" yaml:"hop_size" msgpack:"hop_size"`
	Summary    Summary       `json:"summary" yaml:"summary" msgpack:"summary"`
	Frames     []level.Frame `json:"frames" yaml:"frames" msgpack:"frames"`
}

// NewResult builds a Result and computes its summary.
func NewResult(source string, sampleRate int, p level.Params, frames []level.Frame) Result {
	return Result{
		Source:     source,
		SampleRate: sampleRate,
		FrameSize:  p.FrameSize,
		HopSize:    p.HopSize,
		Summary:    Summarize(frames),
		Frames:     frames,
	}
}

// Seconds returns the start time of f, or 0 when the sample rate is unknown.
func (r Result) Seconds(f level.Frame) float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(f.Start) / float64(r.SampleRate)
}

// Summary describes the distribution of frame levels.
type Summary struct {
	Count  int     `json:"count" yaml:"count" msgpack:"count"`
	Mean   float64 `json:"mean" yaml:"mean" msgpack:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev" msgpack:"std_dev"`
	Min    float64 `json:"min" yaml:"min" msgpack:"min"`
	Max    float64 `json:"max" yaml:"max" msgpack:"max"`
}

// Summarize computes level statistics. The standard deviation is the
// unbiased sample estimate and is 0 for fewer than two frames.
func Summarize(frames []level.Frame) Summary {
	if len(frames) == 0 {
		return Summary{}
	}
	levels := make([]float64, len(frames))
	for i, f := range frames {
		levels[i] = float64(f.Level)
	}

	s := Summary{
		Count: len(levels),
		Mean:  stat.Mean(levels, nil),
		Min:   floats.Min(levels),
		Max:   floats.Max(levels),
	}
	if len(levels) > 1 {
		s.StdDev = stat.StdDev(levels, nil)
	}
	return s
}

// Write renders results to w in the named format.
func Write(w io.Writer, format string, results ...Result) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return writeText(w, results)
	case FormatCSV:
		return writeCSV(w, results)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(results)
	default:
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

func writeText(w io.Writer, results []Result) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d Hz, frame %d, hop %d)\n", r.Source, r.SampleRate, r.FrameSize, r.HopSize)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "FRAME\tSTART\tTIME\tLEVEL\t")
		for _, f := range r.Frames {
			fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.6g\t\n", f.Index, f.Start, r.Seconds(f), f.Level)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		s := r.Summary
		if _, err := fmt.Fprintf(w, "frames=%d mean=%.6g std=%.6g min=%.6g max=%.6g\n",
			s.Count, s.Mean, s.StdDev, s.Min, s.Max); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "frame", "start", "seconds", "level"}); err != nil {
		return err
	}
	for _, r := range results {
		for _, f := range r.Frames {
			if err := cw.Write([]string{
				r.Source,
				strconv.Itoa(f.Index),
				strconv.Itoa(f.Start),
				strconv.FormatFloat(r.Seconds(f), 'f', -1, 64),
				strconv.FormatFloat(float64(f.Level), 'g', -1, 32),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
