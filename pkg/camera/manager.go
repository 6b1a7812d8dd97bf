package camera

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Update is a partial settings change. Nil fields keep their value; a
// preset, if named, replaces the whole config before the other fields are
// applied on top.
type Update struct {
	Preset     *string  `json:"preset,omitempty"`
	Device     *string  `json:"device,omitempty"`
	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Framerate  *int     `json:"framerate,omitempty"`
	Quality    *int     `json:"quality,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Mirror     *bool    `json:"mirror,omitempty"`
}

// ParseUpdate decodes a JSON update. Unknown settings are an error. The
// device may be given as a number or a string.
func ParseUpdate(data []byte) (Update, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Update{}, fmt.Errorf("camera: parse update: %w", err)
	}
	if dev, ok := raw["device"]; ok {
		if d := bytes.TrimSpace(dev); len(d) > 0 && d[0] >= '0' && d[0] <= '9' {
			raw["device"] = json.RawMessage(`"` + string(d) + `"`)
		}
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return Update{}, fmt.Errorf("camera: parse update: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	var u Update
	if err := dec.Decode(&u); err != nil {
		return Update{}, fmt.Errorf("camera: parse update: %w", err)
	}
	return u, nil
}

// apply returns cfg with u applied.
func (u Update) apply(cfg Config) (Config, error) {
	if u.Preset != nil {
		p, ok := Preset(*u.Preset)
		if !ok {
			return cfg, fmt.Errorf("camera: unknown preset %q", *u.Preset)
		}
		cfg = p
	}
	if u.Device != nil {
		cfg.Device = *u.Device
	}
	if u.Width != nil {
		cfg.Width = *u.Width
	}
	if u.Height != nil {
		cfg.Height = *u.Height
	}
	if u.Framerate != nil {
		cfg.Framerate = *u.Framerate
	}
	if u.Quality != nil {
		cfg.Quality = *u.Quality
	}
	if u.Brightness != nil {
		cfg.Brightness = *u.Brightness
	}
	if u.Mirror != nil {
		cfg.Mirror = *u.Mirror
	}
	return cfg, nil
}

// Manager holds the live capture settings. Changes are validated and
// handed to OnConfigChange before they become current.
type Manager struct {
	mu     sync.Mutex
	config Config

	// OnConfigChange applies new settings to the device. A failure leaves
	// the current settings in place.
	OnConfigChange func(cfg Config) error
}

// NewManager creates a manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// Config returns the current settings.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set replaces the settings.
func (m *Manager) Set(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(cfg)
}

// Apply applies a partial update and returns the resulting settings.
func (m *Manager) Apply(u Update) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := u.apply(m.config)
	if err != nil {
		return m.config, err
	}
	if err := m.setLocked(cfg); err != nil {
		return m.config, err
	}
	return cfg, nil
}

// setLocked holds mu across the device callback so updates apply in order.
func (m *Manager) setLocked(cfg Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("camera: invalid settings: %s", strings.Join(problems, "; "))
	}
	if m.OnConfigChange != nil {
		if err := m.OnConfigChange(cfg); err != nil {
			return fmt.Errorf("camera: apply settings: %w", err)
		}
	}
	m.config = cfg
	return nil
}
