// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"levels/internal/build"
	"levels/internal/config"
	applog "levels/internal/log"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	frameSize  int
	hopSize    int

	// cfg is loaded in PersistentPreRunE.
	cfg *config.Config
}

// NewRootCommand builds the levels command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.Get()
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to a YAML configuration file (default ./"+config.DefaultConfigFile+" if present)")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")
	flags.IntVarP(&opts.frameSize, "frame-size", "f", config.DefaultFrameSize,
		"Frame length in samples")
	flags.IntVarP(&opts.hopSize, "hop-size", "p", config.DefaultHopSize,
		"Distance between frame starts in samples")

	rootCmd.AddCommand(
		newExtractCommand(opts),
		newLiveCommand(opts),
		newListCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads the configuration file and environment, then applies
// the flags the user actually set.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("frame-size") {
		cfg.Level.FrameSize = o.frameSize
	}
	if flags.Changed("hop-size") {
		cfg.Level.HopSize = o.hopSize
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if !applog.SetLevelString(cfg.LogLevel) {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
