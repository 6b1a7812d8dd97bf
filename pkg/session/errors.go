package session

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNotActive is returned by operations that need a running session.
	ErrNotActive = errors.New("session: not active")

	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("session: already active")

	// ErrSessionMismatch is returned by Tick when the observation names a
	// session other than the running one.
	ErrSessionMismatch = errors.New("session: session mismatch")
)
