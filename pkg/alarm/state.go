// Package alarm turns the confirmed presence status into an audible alarm.
//
// The Controller is a three-state machine (idle, loud, mild) that owns at most
// one live tone at a time. Tones are produced by an Emitter; ToneEmitter
// synthesizes them onto an audioio.Sink.
package alarm

import (
	"context"

	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// Kind selects which tone an Emitter plays.
type Kind string

const (
	// KindLoud is the continuous urgent tone used when the user is missing.
	KindLoud Kind = "loud"

	// KindMild is the double-pulse tone used when a phone is detected.
	KindMild Kind = "mild"
)

// State is the alarm controller state.
type State string

const (
	StateIdle State = "idle"
	StateLoud State = "loud_alarm"
	StateMild State = "mild_alarm"
)

// StateFor maps a confirmed status to the alarm state it demands.
// Anything other than no_user or mobile_detected is idle.
func StateFor(s presence.Status) State {
	switch s {
	case presence.StatusNoUser:
		return StateLoud
	case presence.StatusMobileDetected:
		return StateMild
	default:
		return StateIdle
	}
}

// Kind returns the tone kind for an active state. ok is false for idle.
func (s State) Kind() (k Kind, ok bool) {
	switch s {
	case StateLoud:
		return KindLoud, true
	case StateMild:
		return KindMild, true
	default:
		return "", false
	}
}

// Active reports whether the state holds a tone.
func (s State) Active() bool {
	_, ok := s.Kind()
	return ok
}

// Emitter produces alarm tones. Both methods must be idempotent: starting
// the kind already playing and stopping when silent are no-ops.
type Emitter interface {
	Start(ctx context.Context, kind Kind) error
	Stop() error
}
