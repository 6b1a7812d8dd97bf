// Package analyzer talks to Frame Analyzers: services that look at one
// camera frame and report whether the user is present, whether a phone is
// in use and, when available, the user's facial emotion scores.
package analyzer

import (
	"context"

	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// Result is one frame's analysis.
type Result struct {
	Status presence.Status `json:"status"`

	// Scores is nil when the analyzer had no emotion update for this frame.
	Scores affect.Reading `json:"scores,omitempty"`

	// Analysis is the analyzer's own summary when it sent one.
	Analysis *affect.Analysis `json:"analysis,omitempty"`

	// DebugImage is an annotated frame as a data URL, if the analyzer sent one.
	DebugImage string `json:"-"`
}

// Analyzer analyzes a JPEG frame.
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte) (Result, error)
}

// Func adapts a function to the Analyzer interface.
type Func func(ctx context.Context, jpeg []byte) (Result, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, jpeg []byte) (Result, error) {
	return f(ctx, jpeg)
}

// PresenceDetector classifies presence locally, without emotion scores.
type PresenceDetector interface {
	DetectPresence(ctx context.Context, jpeg []byte) (presence.Status, error)
}
