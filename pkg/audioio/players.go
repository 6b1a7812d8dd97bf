package audioio

import (
	"errors"
	"os/exec"
	"runtime"
	"strconv"
)

// ErrNoPlayer is returned when no command-line player is installed.
var ErrNoPlayer = errors.New("audioio: no audio player found")

// player describes a command that reads raw PCM16 from stdin.
type player struct {
	bin  string
	args func(cfg Config) []string
}

var players = map[Backend]player{
	// aplay ships with alsa-utils.
	BackendALSA: {bin: "aplay", args: func(cfg Config) []string {
		device := cfg.Device
		if device == "" {
			device = "default"
		}
		return []string{
			"-q", "-t", "raw", "-f", "S16_LE",
			"-r", strconv.Itoa(cfg.SampleRate),
			"-c", strconv.Itoa(cfg.Channels),
			"-D", device,
			"-",
		}
	}},
	// sox's play writes to the default output (CoreAudio, PulseAudio...).
	BackendSox: {bin: "play", args: func(cfg Config) []string {
		return []string{
			"-q", "-t", "raw", "-e", "signed-integer", "-b", "16", "-L",
			"-r", strconv.Itoa(cfg.SampleRate),
			"-c", strconv.Itoa(cfg.Channels),
			"-",
		}
	}},
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// preference lists the backends worth trying on this platform, best first.
func preference(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{BackendALSA, BackendSox}
	default:
		return []Backend{BackendSox}
	}
}

// detectBackend returns the first preferred backend whose player is
// installed.
func detectBackend() (Backend, error) {
	for _, b := range preference(runtime.GOOS) {
		if _, err := lookPath(players[b].bin); err == nil {
			return b, nil
		}
	}
	return "", ErrNoPlayer
}

// AvailableBackends returns the backends usable on this machine. Mock is
// always available.
func AvailableBackends() []Backend {
	out := []Backend{BackendMock}
	for _, b := range preference(runtime.GOOS) {
		if _, err := lookPath(players[b].bin); err == nil {
			out = append(out, b)
		}
	}
	return out
}
