// Package config loads focusguard settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults.
const (
	DefaultPort         = "8080"
	DefaultAnalyzerURL  = "http://localhost:8000"
	DefaultTickInterval = time.Second
	DefaultJournalPath  = "focusguard.db"
	DefaultAudioBackend = "auto"
	DefaultCameraDevice = "0"
	DefaultLogLevel     = "info"
)

// Config holds runtime settings.
type Config struct {
	Port         string
	AnalyzerURL  string
	TickInterval time.Duration
	TuningFile   string
	HintsFile    string
	JournalPath  string // empty disables the journal
	AudioBackend string
	AudioDevice  string
	CameraDevice string
	YOLOModel    string // empty disables local presence detection
	LogLevel     string
}

// Load reads env vars and applies defaults.
func Load() Config {
	return Config{
		Port:         getEnv("FOCUSGUARD_PORT", DefaultPort),
		AnalyzerURL:  getEnv("ANALYZER_URL", DefaultAnalyzerURL),
		TickInterval: getEnvDuration("TICK_INTERVAL", DefaultTickInterval),
		TuningFile:   os.Getenv("TUNING_FILE"),
		HintsFile:    os.Getenv("HINTS_FILE"),
		JournalPath:  getEnv("JOURNAL_PATH", DefaultJournalPath),
		AudioBackend: getEnv("AUDIO_BACKEND", DefaultAudioBackend),
		AudioDevice:  os.Getenv("AUDIO_DEVICE"),
		CameraDevice: getEnv("CAMERA_DEVICE", DefaultCameraDevice),
		YOLOModel:    os.Getenv("YOLO_MODEL"),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("config: invalid port %q", c.Port)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("500ms") or plain milliseconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
