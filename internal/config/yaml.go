// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "levels/internal/log"
)

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it looks for DefaultConfigFile in the working directory and falls
// back to built-in defaults when there is none. Environment overrides are
// applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration. Frame and hop sizes go through the
// extractor's own validation; its advisory warning is not an error here.
func (c *Config) Validate() error {
	if _, err := c.Level.Validate(); err != nil {
		return err
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside [1, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.InputChannels <= 0 {
		return errors.New("audio.input_channels must be positive")
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid", c.Audio.InputDevice)
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth %d is not one of 16, 24, 32", c.Recording.BitDepth)
	}

	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
	}
	if c.Output.Workers < 0 {
		return errors.New("output.workers must not be negative")
	}

	return nil
}

// applyEnvOverrides applies ENV_* variables on top of file values.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("configuration: overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("configuration: overriding log_level from env: %s", val)
	}

	// ENV_FRAME_SIZE, ENV_HOP_SIZE
	if val, ok := os.LookupEnv("ENV_FRAME_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Level.FrameSize = iVal
			applog.Debugf("configuration: overriding level.frame_size from env: %d", iVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_HOP_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Level.HopSize = iVal
			applog.Debugf("configuration: overriding level.hop_size from env: %d", iVal)
		}
	}

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Debugf("configuration: overriding transport.websocket_address from env: %s", val)
	}
	// ENV_SHUTDOWN_TIMEOUT
	if val, ok := os.LookupEnv("ENV_SHUTDOWN_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.ShutdownTimeout = dur
			applog.Debugf("configuration: overriding transport.shutdown_timeout from env: %s", dur)
		}
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
