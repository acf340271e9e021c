// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"levels/internal/audio"
	"levels/internal/config"
	applog "levels/internal/log"
	"levels/internal/transport"
	"levels/internal/transport/udp"
	"levels/internal/tui"
)

type liveOptions struct {
	device          int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	ws              string
	udp             string
	tui             bool
	record          string
}

func newLiveCommand(root *rootOptions) *cobra.Command {
	opts := &liveOptions{}

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Extract frame levels from a live input device",
		Long: "Capture from an input device and publish each frame as soon as it is complete.\n" +
			"Without --ws, --udp or --tui frames are printed to stdout as JSON lines.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.apply(cmd, root.cfg)
			if err := root.cfg.Validate(); err != nil {
				return err
			}
			return runLive(cmd.Context(), root.cfg, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	flags.IntVarP(&opts.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (downmixed to mono)")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	flags.StringVar(&opts.ws, "ws", "",
		"Serve frames over WebSocket on this address, e.g. :8080")
	flags.StringVar(&opts.udp, "udp", "",
		"Send frames as UDP packets to host:port")
	flags.BoolVar(&opts.tui, "tui", false,
		"Show a terminal level meter")
	flags.StringVarP(&opts.record, "record", "r", "",
		"Record the capture to this WAV file")

	return cmd
}

// apply copies the flags the user set onto cfg.
func (o *liveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.device
	}
	if flags.Changed("channels") {
		cfg.Audio.InputChannels = o.channels
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = o.framesPerBuffer
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if flags.Changed("ws") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = o.ws
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = o.udp
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = true
	}
}

// recordingPath returns the --record file, or a timestamped name in the
// configured recording directory.
func (o *liveOptions) recordingPath(cfg *config.Config) string {
	if o.record != "" {
		return o.record
	}
	return filepath.Join(cfg.Recording.OutputDir,
		"recording-"+time.Now().UTC().Format("02-01-2006-150405")+".wav")
}

// buildSinks assembles the transports selected in cfg. stdout receives JSON
// lines when nothing else is selected.
func buildSinks(cfg *config.Config, meter transport.Transport, stdout io.Writer) (*transport.Multi, error) {
	sampleRate := cfg.Audio.SampleRate
	sinks := transport.NewMulti(meter)

	if cfg.Transport.LogFrames {
		sinks.Add(transport.NewLoggingTransport(sampleRate))
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, sampleRate)
		ws.Start()
		sinks.Add(ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		publisher, err := udp.NewUDPPublisher(sender)
		if err != nil {
			sender.Close()
			sinks.Close()
			return nil, err
		}
		sinks.Add(publisher)
	}

	if meter == nil && !cfg.Transport.WebSocketEnabled && !cfg.Transport.UDPEnabled {
		sinks.Add(transport.NewWriterTransport(stdout, sampleRate))
	}
	return sinks, nil
}

func runLive(ctx context.Context, cfg *config.Config, opts *liveOptions, stdout io.Writer) error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	var meter *tui.Meter
	var meterSink transport.Transport
	if opts.tui {
		meter = tui.NewMeter(tui.NewMeterModel("Input level", cfg.Audio.SampleRate))
		meterSink = meter
		// Log lines would tear the meter apart.
		applog.SetOutput(io.Discard)
		defer applog.SetOutput(os.Stderr)
	}

	sinks, err := buildSinks(cfg, meterSink, stdout)
	if err != nil {
		return err
	}
	defer closeSinks(sinks, cfg.Transport.ShutdownTimeout)

	engine, warn, err := audio.NewEngine(cfg, sinks)
	if err != nil {
		return err
	}
	if warn != nil {
		applog.Warnf("%s", warn)
	}
	// Close stops the stream before it finalises the recording.
	var recorded string
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
		if recorded != "" {
			applog.Infof("Recording saved to: %s", recorded)
		}
	}()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The first call to StartInputStream triggers PortAudio to begin
	// calling the callback function.
	if err := engine.StartInputStream(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		filename := opts.recordingPath(cfg)
		if err := engine.StartRecording(filename); err != nil {
			return err
		}
		recorded = filename
	}

	if meter != nil {
		go func() {
			<-ctx.Done()
			meter.Close()
		}()
		if err := meter.Run(); err != nil {
			return err
		}
	} else {
		<-ctx.Done()
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	applog.Infof("Shutting down after %d frames (%d dropped)", engine.Emitted(), engine.Dropped())
	return nil
}

// closeSinks closes the transports, giving up after timeout.
func closeSinks(sinks *transport.Multi, timeout time.Duration) {
	done := make(chan error, 1)
	go func() { done <- sinks.Close() }()

	select {
	case err := <-done:
		if err != nil {
			applog.Warnf("Error closing transports: %v", err)
		}
	case <-time.After(timeout):
		applog.Warnf("Transports did not close within %s", timeout)
	}
}
