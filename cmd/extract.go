// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"levels/internal/config"
	"levels/internal/level"
	"levels/internal/loader"
	applog "levels/internal/log"
	"levels/internal/report"
)

func newExtractCommand(root *rootOptions) *cobra.Command {
	var (
		format  string
		output  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "extract <file>...",
		Short: "Extract frame levels from audio files",
		Long: "Decode each file, downmix it to mono and report the level of every frame.\n" +
			"Supported formats: " + fmt.Sprint(loader.DefaultRegistry().Formats()),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("format") {
				cfg.Output.Format = format
			}
			if flags.Changed("output") {
				cfg.Output.Path = output
			}
			if flags.Changed("workers") {
				cfg.Output.Workers = workers
			}

			results, err := extractFiles(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if cfg.Output.Path != "" {
				f, err := os.Create(cfg.Output.Path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := report.Write(w, cfg.Output.Format, results...); err != nil {
				return err
			}
			if cfg.Output.Path != "" {
				applog.Infof("Wrote %d results to %s", len(results), cfg.Output.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", config.DefaultOutputFormat,
		"Output format: text, csv, json, yaml or msgpack")
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0,
		"Files decoded concurrently (0 uses GOMAXPROCS)")

	return cmd
}

// extractFiles decodes and processes files concurrently. Results keep the
// order of paths.
func extractFiles(ctx context.Context, cfg *config.Config, paths []string) ([]report.Result, error) {
	warn, err := cfg.Level.Validate()
	if err != nil {
		return nil, err
	}
	if warn != nil {
		applog.Warnf("%s", warn)
	}

	workers := cfg.Output.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]report.Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			sig, err := loader.Load(path)
			if err != nil {
				return err
			}

			// An Extractor is not shared between goroutines.
			ex, _, err := level.NewWithParams(cfg.Level)
			if err != nil {
				return err
			}
			frames, err := ex.Frames(sig.Samples)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			applog.Debugf("%s: %d samples at %d Hz, %d frames", path, len(sig.Samples), sig.SampleRate, len(frames))
			results[i] = report.NewResult(path, sig.SampleRate, cfg.Level, frames)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
