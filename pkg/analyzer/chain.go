package analyzer

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// Chain runs a local presence check first and only asks the emotion
// analyzer about frames where the user is present without a phone.
type Chain struct {
	Presence PresenceDetector
	Emotion  Analyzer
}

// Analyze implements Analyzer.
func (c *Chain) Analyze(ctx context.Context, jpeg []byte) (Result, error) {
	if len(jpeg) == 0 {
		return Result{}, ErrEmptyFrame
	}

	status := presence.StatusOK
	if c.Presence != nil {
		s, err := c.Presence.DetectPresence(ctx, jpeg)
		if err != nil {
			return Result{}, fmt.Errorf("analyzer: presence: %w", err)
		}
		status = s
	}
	if status != presence.StatusOK || c.Emotion == nil {
		return Result{Status: status}, nil
	}

	return c.Emotion.Analyze(ctx, jpeg)
}

var _ Analyzer = (*Chain)(nil)
