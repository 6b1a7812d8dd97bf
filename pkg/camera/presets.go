package camera

import "sort"

// presets are named capture profiles, each a variation on DefaultConfig.
var presets = map[string]func(*Config){
	"default": func(*Config) {},
	// Less bandwidth for remote analyzers on slow links.
	"low": func(c *Config) {
		c.Width, c.Height = 320, 240
		c.Framerate = 15
		c.Quality = 70
	},
	"720p": func(c *Config) {
		c.Width, c.Height = 1280, 720
	},
	// Helps phone detection when the user sits far from the camera.
	"1080p": func(c *Config) {
		c.Width, c.Height = 1920, 1080
		c.Quality = 85
	},
	// Evening sessions.
	"dim": func(c *Config) {
		c.Brightness = 0.3
		c.Framerate = 15
	},
}

// Preset returns the named profile.
func Preset(name string) (Config, bool) {
	tweak, ok := presets[name]
	if !ok {
		return Config{}, false
	}
	cfg := DefaultConfig()
	tweak(&cfg)
	return cfg, true
}

// Presets returns every profile by name.
func Presets() map[string]Config {
	out := make(map[string]Config, len(presets))
	for name := range presets {
		out[name], _ = Preset(name)
	}
	return out
}

// PresetNames returns the profile names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
