// Package camera captures webcam frames for the analyzer and keeps the
// capture settings adjustable at runtime.
package camera

import "strconv"

// Config holds the webcam capture settings.
type Config struct {
	// Device is a V4L2/AVFoundation index ("0") or a device path / stream URL.
	Device string `json:"device" yaml:"device"`

	Width     int `json:"width" yaml:"width"`         // Frame width in pixels
	Height    int `json:"height" yaml:"height"`       // Frame height in pixels
	Framerate int `json:"framerate" yaml:"framerate"` // Requested FPS
	Quality   int `json:"quality" yaml:"quality"`     // JPEG quality 1-100

	// Brightness offset (-1.0 to +1.0), 0 leaves the driver default.
	Brightness float64 `json:"brightness" yaml:"brightness"`

	// Mirror flips frames horizontally, like a selfie preview.
	Mirror bool `json:"mirror" yaml:"mirror"`
}

// Capture limits.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 60
)

// DefaultConfig returns VGA capture, which is plenty for presence and
// expression analysis at one frame per second.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   80,
	}
}

// DeviceID returns the device as an index when it is numeric, otherwise
// the raw string.
func (c *Config) DeviceID() interface{} {
	if n, err := strconv.Atoi(c.Device); err == nil {
		return n
	}
	return c.Device
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must not be empty")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}

	return errors
}

// Capabilities describes what the settings API accepts.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"presets":       PresetNames(),
	}
}
