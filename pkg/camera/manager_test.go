package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	for name, cfg := range Presets() {
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %s invalid: %v", name, errs)
		}
	}
	if len(PresetNames()) != len(Presets()) {
		t.Error("PresetNames and Presets disagree")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errs   int
	}{
		{"default", func(c *Config) {}, 0},
		{"tiny width", func(c *Config) { c.Width = 100 }, 1},
		{"quality zero", func(c *Config) { c.Quality = 0 }, 1},
		{"bad brightness and fps", func(c *Config) { c.Brightness = 2; c.Framerate = 0 }, 2},
		{"no device", func(c *Config) { c.Device = "" }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if got := cfg.Validate(); len(got) != tt.errs {
				t.Errorf("Validate() = %v, want %d errors", got, tt.errs)
			}
		})
	}
}

func TestConfig_DeviceID(t *testing.T) {
	cfg := DefaultConfig()
	if id, ok := cfg.DeviceID().(int); !ok || id != 0 {
		t.Errorf("DeviceID() = %v, want 0", cfg.DeviceID())
	}
	cfg.Device = "/dev/video2"
	if id, ok := cfg.DeviceID().(string); !ok || id != "/dev/video2" {
		t.Errorf("DeviceID() = %v, want path", cfg.DeviceID())
	}
}

func ptr[T any](v T) *T { return &v }

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		check   func(Update) bool
		wantErr bool
	}{
		{"numeric device", `{"device":1}`, func(u Update) bool { return *u.Device == "1" }, false},
		{"path device", `{"device":"/dev/video2"}`, func(u Update) bool { return *u.Device == "/dev/video2" }, false},
		{"fields", `{"width":1280,"mirror":true,"brightness":0.25}`, func(u Update) bool {
			return *u.Width == 1280 && *u.Mirror && *u.Brightness == 0.25 && u.Height == nil
		}, false},
		{"unknown setting", `{"zoom":2}`, nil, true},
		{"wrong type", `{"width":"wide"}`, nil, true},
		{"not an object", `[1]`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUpdate([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(u) {
				t.Errorf("ParseUpdate() = %+v", u)
			}
		})
	}
}

func TestManager_Apply(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	cfg, err := m.Apply(Update{
		Width:      ptr(1280),
		Height:     ptr(720),
		Quality:    ptr(90),
		Brightness: ptr(0.25),
		Mirror:     ptr(true),
		Device:     ptr("1"),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if cfg != m.Config() {
		t.Errorf("returned %+v, current %+v", cfg, m.Config())
	}
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.Quality != 90 || !cfg.Mirror || cfg.Device != "1" || cfg.Brightness != 0.25 {
		t.Errorf("config = %+v", cfg)
	}
	if len(applied) != 1 {
		t.Errorf("callback ran %d times, want 1", len(applied))
	}
}

func TestManager_Preset(t *testing.T) {
	m := NewManager(DefaultConfig())

	cfg, err := m.Apply(Update{Preset: ptr("720p"), Quality: ptr(60)})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if cfg.Width != 1280 || cfg.Quality != 60 {
		t.Errorf("config = %+v, want 720p with quality override", cfg)
	}

	if _, err := m.Apply(Update{Preset: ptr("8k")}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestManager_RejectsInvalid(t *testing.T) {
	m := NewManager(DefaultConfig())
	before := m.Config()

	if _, err := m.Apply(Update{Width: ptr(50)}); err == nil {
		t.Error("expected validation error")
	}
	if err := m.Set(Config{}); err == nil {
		t.Error("expected validation error for empty config")
	}
	if m.Config() != before {
		t.Error("config changed after rejected update")
	}
}

func TestManager_CallbackFailureKeepsConfig(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.OnConfigChange = func(cfg Config) error { return errors.New("device busy") }

	if _, err := m.Apply(Update{Width: ptr(1280)}); err == nil {
		t.Fatal("expected apply error")
	}
	if m.Config().Width != 640 {
		t.Error("config should not change when it cannot be applied")
	}
}

func TestPresetNames(t *testing.T) {
	want := []string{"1080p", "720p", "default", "dim", "low"}
	got := PresetNames()
	if len(got) != len(want) {
		t.Fatalf("PresetNames() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PresetNames()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if _, ok := Preset("default"); !ok {
		t.Error("default preset missing")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	for name, data := range map[string]string{
		"b.jpg":     "second",
		"a.jpeg":    "first",
		"notes.txt": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src, err := NewFileSource(dir)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", src.Len())
	}

	want := []string{"first", "second", "first"}
	for i, w := range want {
		got, err := src.CaptureJPEG(context.Background())
		if err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
		if string(got) != w {
			t.Errorf("capture %d = %q, want %q", i, got, w)
		}
	}
}

func TestFileSource_Empty(t *testing.T) {
	if _, err := NewFileSource(t.TempDir()); err == nil {
		t.Error("expected error for a directory without JPEGs")
	}
}
