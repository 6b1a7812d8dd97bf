package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-focusguard/pkg/analyzer"
)

// DefaultInterval is the capture period of a Runner.
const DefaultInterval = time.Second

// FrameSource produces JPEG frames. camera.Webcam satisfies it.
type FrameSource interface {
	CaptureJPEG(ctx context.Context) ([]byte, error)
}

// FromResult converts an analyzer result into a session observation.
func FromResult(res analyzer.Result, at time.Time) Observation {
	return Observation{Status: res.Status, Scores: res.Scores, At: at}
}

// Runner drives a session from a frame source: every interval it captures a
// frame, analyzes it and ticks the session with the result.
type Runner struct {
	session  *Session
	source   FrameSource
	analyzer analyzer.Analyzer
	interval time.Duration
	logger   *slog.Logger

	// OnResult, if set, sees every analyzer result before it is ticked.
	OnResult func(res analyzer.Result, at time.Time)
}

// NewRunner creates a runner. A non-positive interval uses DefaultInterval.
func NewRunner(s *Session, src FrameSource, a analyzer.Analyzer, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		session:  s,
		source:   src,
		analyzer: a,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the session if needed and ticks it until ctx is cancelled or
// the session is stopped elsewhere. The session is stopped on return, which
// releases any live alarm.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.session.Start(); err != nil && !errors.Is(err, ErrAlreadyActive) {
		return err
	}
	return r.loop(ctx, true)
}

// Follow ticks the session whenever it is active and idles otherwise, so
// sessions can be started and stopped from the dashboard. It returns when
// ctx is cancelled, stopping any session still running.
func (r *Runner) Follow(ctx context.Context) error {
	return r.loop(ctx, false)
}

func (r *Runner) loop(ctx context.Context, exitInactive bool) error {
	defer func() {
		if err := r.session.Stop(); err != nil && !IsInactive(err) {
			r.logger.Warn("session stop failed", "error", err)
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("capture loop started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("capture loop stopped")
			return nil
		case <-ticker.C:
			err := r.step(ctx)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return nil
			case IsInactive(err):
				if exitInactive {
					return nil
				}
			case analyzer.IsRetryable(err):
				r.logger.Warn("tick skipped", "error", err)
			default:
				r.logger.Error("frame refused", "error", err)
			}
		}
	}
}

// step performs one capture-analyze-tick cycle.
func (r *Runner) step(ctx context.Context) error {
	if !r.session.Active() {
		return ErrNotActive
	}

	jpeg, err := r.source.CaptureJPEG(ctx)
	if err != nil {
		return err
	}
	at := time.Now()

	res, err := r.analyzer.Analyze(ctx, jpeg)
	if err != nil {
		return err
	}
	if r.OnResult != nil {
		r.OnResult(res, at)
	}

	if _, err := r.session.Tick(ctx, FromResult(res, at)); err != nil {
		// An alarm error still advanced the session.
		if IsInactive(err) {
			return err
		}
		r.logger.Error("alarm failed", "error", err)
	}
	return nil
}
