package analyzer

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyFrame = errors.New("analyzer: empty frame")

	// ErrRejected means the analyzer answered but refused the frame.
	ErrRejected = errors.New("analyzer: frame rejected")

	// ErrNotConnected is returned by Pusher.Push before Connect.
	ErrNotConnected = errors.New("analyzer: not connected")
)

// APIError is a non-2xx answer from a remote analyzer. Message holds the
// trimmed response body.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analyzer: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsRetryable reports whether the same frame could succeed later: the
// analyzer was rate limiting or failing, not refusing the input.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is transient. Transport failures count as
// transient; empty or rejected frames do not.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return !errors.Is(err, ErrEmptyFrame) && !errors.Is(err, ErrRejected)
}
