// Package session runs one monitoring session: it feeds analyzer
// observations through the affect classifier, the presence debouncer and
// the alarm controller, in arrival order, and reports what changed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// Config holds the tuning for every stage of a session.
type Config struct {
	Thresholds affect.Thresholds `yaml:"thresholds" json:"thresholds"`
	Debounce   presence.Config   `yaml:"debounce" json:"debounce"`
}

// DefaultConfig returns production tuning.
func DefaultConfig() Config {
	return Config{
		Thresholds: affect.DefaultThresholds(),
		Debounce:   presence.DefaultConfig(),
	}
}

// Validate checks every stage's tuning.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := c.Debounce.Validate(); err != nil {
		return fmt.Errorf("debounce: %w", err)
	}
	return nil
}

// Observation is one analyzer result entering the session.
// A nil Scores means the analyzer had no emotion update for this frame.
// A non-empty SessionID restricts the observation to that session.
type Observation struct {
	SessionID string          `json:"session_id,omitempty"`
	Status    presence.Status `json:"status"`
	Scores    affect.Reading  `json:"scores,omitempty"`
	At        time.Time       `json:"at"`
}

// Session owns all per-session state. Ticks are processed one at a time in
// the order they are delivered.
type Session struct {
	cfg    Config
	alarm  *alarm.Controller
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	id         string
	active     bool
	startedAt  time.Time
	lastAt     time.Time
	seq        uint64
	classifier *affect.Classifier
	debouncer  *presence.Debouncer
	rawStatus  presence.Status
	analysis   *affect.Analysis
	alarmError string

	obsMu     sync.RWMutex
	observers []Observer

	// emitMu is taken before mu is released and held until the operation's
	// events are delivered, so observers see operations in processing order.
	emitMu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates an inactive session driving the given alarm controller.
func New(cfg Config, ctrl *alarm.Controller, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:        cfg,
		alarm:      ctrl,
		logger:     logger,
		now:        time.Now,
		classifier: affect.NewClassifier(cfg.Thresholds),
		debouncer:  presence.NewDebouncer(cfg.Debounce),
		rawStatus:  presence.StatusOK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer for all future events. Events are
// delivered synchronously, one operation at a time, in the order the
// operations were processed. Observers must not call Start, Stop, Tick or
// Acknowledge.
func (s *Session) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// unlockForEmit releases mu while holding emitMu. Every call must be
// followed by emit.
func (s *Session) unlockForEmit() {
	s.emitMu.Lock()
	s.mu.Unlock()
}

func (s *Session) emit(events []Event) {
	defer s.emitMu.Unlock()
	if len(events) == 0 {
		return
	}
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	for _, ev := range events {
		for _, o := range observers {
			o(ev)
		}
	}
}

// Start begins a new session from the initial state and returns its ID.
func (s *Session) Start() (string, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return "", ErrAlreadyActive
	}

	s.resetLocked()
	s.id = uuid.NewString()
	s.active = true
	s.startedAt = s.now()
	s.lastAt = s.startedAt
	id, at := s.id, s.startedAt
	s.unlockForEmit()

	s.logger.Info("session started", "session", id)
	s.emit([]Event{{Kind: EventStarted, SessionID: id, At: at}})
	return id, nil
}

// Stop ends the session: ticks are refused from now on, all per-session
// state returns to its initial value and the alarm is released before
// Stop returns. The release error, if any, is returned after the session
// has stopped.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNotActive
	}

	id := s.id
	at := s.now()
	prevAlarm := s.alarm.State()
	ticks := s.seq
	elapsed := at.Sub(s.startedAt)

	s.active = false
	s.resetLocked()
	releaseErr := s.alarm.Release()
	s.unlockForEmit()

	var events []Event
	if prevAlarm != alarm.StateIdle {
		events = append(events, Event{Kind: EventAlarm, SessionID: id, At: at, From: string(prevAlarm), To: string(alarm.StateIdle)})
	}
	if releaseErr != nil {
		events = append(events, Event{Kind: EventAlarmError, SessionID: id, At: at, Detail: releaseErr.Error()})
	}
	events = append(events, Event{Kind: EventStopped, SessionID: id, At: at, Detail: fmt.Sprintf("%d ticks", ticks)})

	s.logger.Info("session stopped", "session", id, "ticks", ticks, "elapsed", elapsed.Round(time.Second))
	s.emit(events)
	return releaseErr
}

func (s *Session) resetLocked() {
	s.classifier.Reset()
	s.debouncer.Reset()
	s.rawStatus = presence.StatusOK
	s.analysis = nil
	s.alarmError = ""
	s.seq = 0
}

// Tick processes one observation and returns the resulting snapshot.
//
// The classifier only runs when the observation carries scores; the
// debouncer and alarm always run. An alarm failure does not abort the
// tick: the snapshot is still returned, along with the error.
func (s *Session) Tick(ctx context.Context, obs Observation) (Snapshot, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return Snapshot{}, ErrNotActive
	}
	if obs.SessionID != "" && obs.SessionID != s.id {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionMismatch
	}

	if obs.At.IsZero() {
		obs.At = s.now()
	}

	id := s.id
	prevMode := s.classifier.Affect().Mode
	prevConfirmed := s.debouncer.Confirmed()
	prevAlarm := s.alarm.State()

	if obs.Scores != nil {
		s.classifier.Observe(obs.Scores, obs.At)
		a := affect.Summarize(obs.Scores)
		s.analysis = &a
	}

	s.rawStatus = obs.Status
	confirmed := s.debouncer.Observe(obs.Status)

	alarmState, alarmErr := s.alarm.Apply(ctx, confirmed)
	s.alarmError = ""
	if alarmErr != nil {
		s.alarmError = alarmErr.Error()
	}

	s.seq++
	s.lastAt = obs.At
	snap := s.snapshotLocked()
	s.unlockForEmit()

	var events []Event
	if snap.Affect.Mode != prevMode {
		s.logger.Info("mode changed", "session", id, "from", prevMode, "to", snap.Affect.Mode)
		events = append(events, Event{Kind: EventMode, SessionID: id, At: obs.At, From: string(prevMode), To: string(snap.Affect.Mode)})
	}
	if confirmed != prevConfirmed {
		s.logger.Info("status changed", "session", id, "from", prevConfirmed, "to", confirmed)
		events = append(events, Event{Kind: EventStatus, SessionID: id, At: obs.At, From: string(prevConfirmed), To: string(confirmed)})
	}
	if alarmState != prevAlarm {
		events = append(events, Event{Kind: EventAlarm, SessionID: id, At: obs.At, From: string(prevAlarm), To: string(alarmState)})
	}
	if alarmErr != nil {
		events = append(events, Event{Kind: EventAlarmError, SessionID: id, At: obs.At, Detail: alarmErr.Error()})
	}
	events = append(events, Event{Kind: EventTick, SessionID: id, At: obs.At, Snapshot: &snap})
	s.emit(events)

	if alarmErr != nil {
		return snap, fmt.Errorf("tick %d: %w", snap.Seq, alarmErr)
	}
	return snap, nil
}

// Acknowledge dismisses the current alert: the confirmed status returns to
// ok and the alarm is released. Affect state is left untouched.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNotActive
	}

	id := s.id
	at := s.now()
	prevConfirmed := s.debouncer.Confirmed()
	prevAlarm := s.alarm.State()

	s.debouncer.Reset()
	releaseErr := s.alarm.Release()
	s.unlockForEmit()

	events := []Event{{Kind: EventAcknowledged, SessionID: id, At: at}}
	if prevConfirmed != presence.StatusOK {
		events = append(events, Event{Kind: EventStatus, SessionID: id, At: at, From: string(prevConfirmed), To: string(presence.StatusOK)})
	}
	if prevAlarm != alarm.StateIdle {
		events = append(events, Event{Kind: EventAlarm, SessionID: id, At: at, From: string(prevAlarm), To: string(alarm.StateIdle)})
	}
	if releaseErr != nil {
		events = append(events, Event{Kind: EventAlarmError, SessionID: id, At: at, Detail: releaseErr.Error()})
	}

	s.logger.Info("alert acknowledged", "session", id, "status", prevConfirmed)
	s.emit(events)
	return releaseErr
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.classifier.State()
	deb := s.debouncer.State()

	snap := Snapshot{
		SessionID:  s.id,
		Active:     s.active,
		StartedAt:  s.startedAt,
		At:         s.lastAt,
		Seq:        s.seq,
		RawStatus:  s.rawStatus,
		Confirmed:  deb.Confirmed,
		Run:        deb.Run,
		Affect:     st.Affect,
		Timers:     st.Timers,
		Alarm:      s.alarm.State(),
		AlarmError: s.alarmError,
	}
	if s.analysis != nil {
		a := *s.analysis
		snap.Analysis = &a
	}
	if s.active {
		snap.Elapsed = s.now().Sub(s.startedAt).Seconds()
	}
	return snap
}

// ID returns the current or most recent session ID.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Active reports whether a session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Config returns the session tuning.
func (s *Session) Config() Config {
	return s.cfg
}

// IsInactive reports whether err means no session was running.
func IsInactive(err error) bool {
	return errors.Is(err, ErrNotActive)
}
