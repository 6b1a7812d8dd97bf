package session

import (
	"time"

	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// EventKind identifies what changed.
type EventKind string

const (
	EventStarted      EventKind = "session_started"
	EventStopped      EventKind = "session_stopped"
	EventTick         EventKind = "tick"
	EventMode         EventKind = "mode_changed"
	EventStatus       EventKind = "status_changed"
	EventAlarm        EventKind = "alarm_changed"
	EventAlarmError   EventKind = "alarm_error"
	EventAcknowledged EventKind = "acknowledged"
)

// Event is delivered to observers after the session state has changed.
// From and To carry the old and new value for change events; Tick events
// carry the full snapshot instead.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}

// Observer receives session events. Observers run on the goroutine that
// caused the event and must not block.
type Observer func(Event)

// Snapshot is the externally visible state of a session after a tick.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"started_at"`
	At        time.Time `json:"at"`
	Elapsed   float64   `json:"elapsed_seconds"`
	Seq       uint64    `json:"seq"`

	RawStatus presence.Status `json:"raw_status"`
	Confirmed presence.Status `json:"confirmed_status"`
	Run       presence.Run    `json:"run"`

	Affect   affect.AffectState `json:"affect"`
	Timers   affect.Timers      `json:"timers"`
	Analysis *affect.Analysis   `json:"analysis,omitempty"`

	Alarm      alarm.State `json:"alarm"`
	AlarmError string      `json:"alarm_error,omitempty"`
}
