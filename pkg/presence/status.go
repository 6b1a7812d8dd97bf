// Package presence debounces the raw presence/distraction status reported by
// the frame analyzer.
//
// A degraded status must be observed on several consecutive frames before it
// is confirmed, while a return to ok is confirmed on the very first frame.
package presence

// Status is a presence/distraction classification of one frame.
type Status string

const (
	// StatusOK means the user is present and not using a phone.
	StatusOK Status = "ok"

	// StatusNoUser means no person was detected.
	StatusNoUser Status = "no_user"

	// StatusMobileDetected means a phone overlaps the user.
	StatusMobileDetected Status = "mobile_detected"
)

// Known reports whether s is one of the statuses the debouncer may confirm.
func (s Status) Known() bool {
	switch s {
	case StatusOK, StatusNoUser, StatusMobileDetected:
		return true
	default:
		return false
	}
}

// String returns the wire name of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a wire string to a Status. Unknown values are returned
// as-is with ok=false so callers can still feed them to the debouncer.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	return s, s.Known()
}
