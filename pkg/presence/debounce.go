package presence

import (
	"fmt"
	"sync"
)

// DefaultConfirmations is how many consecutive identical frames confirm a status.
const DefaultConfirmations = 3

// Config holds debouncer tuning.
type Config struct {
	// Confirmations is the run length needed before a status is confirmed.
	Confirmations int `yaml:"confirmations" json:"confirmations"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{Confirmations: DefaultConfirmations}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Confirmations < 1 {
		return fmt.Errorf("confirmations must be at least 1, got %d", c.Confirmations)
	}
	return nil
}

// Run is the last raw status seen and how many consecutive frames repeated it.
type Run struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// State is the whole debouncer memory: the current run and the confirmed status.
type State struct {
	Run       Run    `json:"run"`
	Confirmed Status `json:"confirmed"`
}

// NewState returns the initial state: an empty ok run and ok confirmed.
func NewState() State {
	return State{
		Run:       Run{Status: StatusOK, Count: 0},
		Confirmed: StatusOK,
	}
}

// Debounce folds one raw status into the state.
//
// Matching the current run extends it, and a run reaching the confirmation
// count is confirmed. A different status starts a new run of one; if that
// status is ok it is confirmed at once. Unknown statuses always restart the
// run and are never confirmed.
func Debounce(s State, raw Status, cfg Config) State {
	if !raw.Known() {
		s.Run = Run{Status: raw, Count: 1}
		return s
	}

	if raw == s.Run.Status {
		s.Run.Count++
		if s.Run.Count >= cfg.Confirmations {
			s.Confirmed = raw
		}
		return s
	}

	s.Run = Run{Status: raw, Count: 1}
	if raw == StatusOK || cfg.Confirmations <= 1 {
		s.Confirmed = raw
	}
	return s
}

// Debouncer owns a State for one monitoring session.
type Debouncer struct {
	mu    sync.Mutex
	cfg   Config
	state State
}

// NewDebouncer creates a debouncer in the initial ok state.
func NewDebouncer(cfg Config) *Debouncer {
	return &Debouncer{cfg: cfg, state: NewState()}
}

// Observe processes one raw status and returns the confirmed status.
func (d *Debouncer) Observe(raw Status) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Debounce(d.state, raw, d.cfg)
	return d.state.Confirmed
}

// State returns a copy of the current state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Confirmed returns the current confirmed status.
func (d *Debouncer) Confirmed() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Confirmed
}

// Reset returns to the initial state: confirmed ok with an empty run. It also
// serves a manual dismissal of an alert.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = NewState()
}
