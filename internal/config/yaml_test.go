// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"levels/internal/level"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "levels.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Level != level.DefaultParams() {
		t.Errorf("Level = %+v, want defaults", cfg.Level)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
level:
  frame_size: 512
  hop_size: 128
output:
  format: csv
audio:
  sample_rate: 48000
  frames_per_buffer: 256
  input_channels: 2
transport:
  websocket_enabled: true
  shutdown_timeout: 5s
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}

	if cfg.Level != (level.Params{FrameSize: 512, HopSize: 128}) {
		t.Errorf("Level = %+v", cfg.Level)
	}
	if cfg.LogLevel != "debug" || cfg.Output.Format != "csv" {
		t.Errorf("LogLevel = %q, Output.Format = %q", cfg.LogLevel, cfg.Output.Format)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 256 || cfg.Audio.InputChannels != 2 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if !cfg.Transport.WebSocketEnabled || cfg.Transport.ShutdownTimeout != 5*time.Second {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	// Unset keys keep their defaults.
	if cfg.Recording.BitDepth != DefaultBitDepth || cfg.Transport.WebSocketAddress != DefaultWebSocketAddress {
		t.Errorf("defaults lost: Recording = %+v, Transport = %+v", cfg.Recording, cfg.Transport)
	}
}

func TestLoadConfig_InvalidLevelParams(t *testing.T) {
	t.Parallel()
	tests := []string{
		"level:\n  frame_size: 0\n  hop_size: 0\n",
		"level:\n  frame_size: -1\n  hop_size: 44100\n",
		"level:\n  frame_size: 88200\n  hop_size: -1\n",
	}
	for _, content := range tests {
		_, err := LoadConfig(writeTempConfig(t, content))
		if !errors.Is(err, level.ErrInvalidParameter) {
			t.Errorf("LoadConfig(%q) error = %v, want ErrInvalidParameter", content, err)
		}
	}
}

func TestLoadConfig_HopLargerThanFrameIsAccepted(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(writeTempConfig(t, "level:\n  frame_size: 44100\n  hop_size: 88200\n"))
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}
	if cfg.Level.HopSize != 88200 {
		t.Errorf("HopSize = %d, want 88200", cfg.Level.HopSize)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_FRAME_SIZE", "1024")
	t.Setenv("ENV_HOP_SIZE", "256")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.1:7000")
	t.Setenv("ENV_WS_ADDRESS", ":9999")
	t.Setenv("ENV_SHUTDOWN_TIMEOUT", "250ms")

	cfg, err := LoadConfig(writeTempConfig(t, "level:\n  frame_size: 512\n  hop_size: 128\n"))
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}
	if !cfg.Debug {
		t.Error("Debug not overridden")
	}
	if cfg.Level != (level.Params{FrameSize: 1024, HopSize: 256}) {
		t.Errorf("Level = %+v, want env values", cfg.Level)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("UDP = (%v, %q)", cfg.Transport.UDPEnabled, cfg.Transport.UDPTargetAddress)
	}
	if cfg.Transport.WebSocketAddress != ":9999" || cfg.Transport.ShutdownTimeout != 250*time.Millisecond {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
}

func TestLoadConfig_EnvInvalidIgnored(t *testing.T) {
	t.Setenv("ENV_FRAME_SIZE", "lots")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}
	if cfg.Level.FrameSize != DefaultFrameSize {
		t.Errorf("FrameSize = %d, want default", cfg.Level.FrameSize)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"low sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, "sample_rate"},
		{"huge buffer", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }, "frames_per_buffer"},
		{"no channels", func(c *Config) { c.Audio.InputChannels = 0 }, "input_channels"},
		{"bad device", func(c *Config) { c.Audio.InputDevice = -2 }, "input_device"},
		{"bad bit depth", func(c *Config) { c.Recording.BitDepth = 12 }, "bit_depth"},
		{"udp without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "udp_target_address"},
		{"negative workers", func(c *Config) { c.Output.Workers = -1 }, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.errMsg)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	cfg.Level = level.Params{FrameSize: 2048, HopSize: 512}

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	back := NewConfig()
	if err := yaml.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if back.Level != cfg.Level || back.Transport.ShutdownTimeout != cfg.Transport.ShutdownTimeout {
		t.Errorf("round trip = %+v, want %+v", back, cfg)
	}
}
