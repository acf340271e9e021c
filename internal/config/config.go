// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"levels/internal/level"
)

// Core configuration constants that define the boundaries and defaults
// for level extraction and live capture.
const (
	// Extraction defaults
	DefaultFrameSize    = level.DefaultFrameSize // 2 s at 44.1 kHz
	DefaultHopSize      = level.DefaultHopSize   // 1 s at 44.1 kHz
	DefaultOutputFormat = "text"                 // Human readable table
	DefaultLogLevel     = "info"

	// Live capture defaults
	DefaultChannels        = 1           // Mono audio
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFrameQueue      = 256         // Frames buffered between capture and transports

	// Recording defaults
	DefaultRecordingDir = "./recordings"
	DefaultBitDepth     = 16

	// Transport defaults
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultWebSocketAddress = ":8080"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer

	// DefaultConfigFile is searched for in the working directory when no
	// path is given.
	DefaultConfigFile = "levels.yaml"
)

// Config represents the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Level     level.Params    `yaml:"level"`     // Frame and hop size in samples.
	Output    OutputConfig    `yaml:"output"`    // Report settings for extract.
	Audio     AudioConfig     `yaml:"audio"`     // Live capture settings.
	Recording RecordingConfig `yaml:"recording"` // Capture recording settings.
	Transport TransportConfig `yaml:"transport"` // Where live frames are published.
}

// OutputConfig controls how extracted levels are reported.
type OutputConfig struct {
	Format  string `yaml:"format"`  // text, csv, json, yaml or msgpack.
	Path    string `yaml:"path"`    // Output file; empty writes to stdout.
	Workers int    `yaml:"workers"` // Files extracted concurrently; 0 uses GOMAXPROCS.
}

// AudioConfig holds settings related to live audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device.
	InputChannels   int     `yaml:"input_channels"`    // Channels captured before downmixing.
	FrameQueue      int     `yaml:"frame_queue"`       // Frames queued for transports before dropping.
}

// RecordingConfig holds settings related to recording the live input.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the capture to WAV.
	OutputDir string `yaml:"output_dir"` // Directory for recordings.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds settings related to publishing live frames.
type TransportConfig struct {
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send frames as UDP packets.
	UDPTargetAddress string `yaml:"udp_target_address"` // host:port for UDP packets.
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve frames over WebSocket.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	LogFrames        bool   `yaml:"log_frames"`         // Log every frame at debug level.
	// ShutdownTimeout bounds how long transports get to drain on exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NewConfig creates a new Config instance with default values.
// This is the base configuration before a config file, environment
// variables and command line flags are applied.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Level:    level.DefaultParams(),
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
			FrameQueue:      DefaultFrameQueue,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			WebSocketAddress: DefaultWebSocketAddress,
			ShutdownTimeout:  2 * time.Second,
		},
	}
}
