// Package audioio plays PCM audio on the local speaker.
//
// Backends:
//   - ALSA (Linux) via the aplay utility
//   - sox via its play utility (macOS, or Linux without alsa-utils)
//   - Mock for CI and tests, records everything written
//
// Unless set explicitly, the first installed player is used.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects the best available backend for the platform.
	BackendAuto Backend = "auto"
	// BackendALSA pipes PCM into aplay.
	BackendALSA Backend = "alsa"
	// BackendSox pipes PCM into sox's play.
	BackendSox Backend = "sox"
	// BackendMock keeps written audio in memory.
	BackendMock Backend = "mock"
)

// ParseBackend converts a configuration string into a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendAuto, BackendALSA, BackendSox, BackendMock:
		return b, nil
	case "":
		return BackendAuto, nil
	default:
		return "", fmt.Errorf("unknown audio backend %q", s)
	}
}

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the playback sample rate in Hz.
	// Default: 16000, plenty for alarm tones up to a few kHz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// BufferDuration is the length of each chunk handed to the sink.
	// Default: 50ms
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`

	// Device is the platform-specific device identifier.
	// Examples:
	//   - ALSA: "default", "plughw:1,0"
	//   - sox: ignored, play uses the default output
	//   - Mock: ignored
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 50 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
