package alarm

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrEmitterFailed wraps any failure to start or stop a tone.
	ErrEmitterFailed = errors.New("alarm: emitter failed")

	// ErrUnknownKind is returned when a tone is requested for an unknown kind.
	ErrUnknownKind = errors.New("alarm: unknown tone kind")

	// ErrInvalidTone is returned when tone parameters cannot be synthesized.
	ErrInvalidTone = errors.New("alarm: invalid tone")
)
