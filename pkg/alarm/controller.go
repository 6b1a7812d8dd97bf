package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// Controller drives an Emitter from confirmed presence statuses.
//
// It holds at most one tone. Moving to a different state stops the held tone
// before anything new is started, and re-applying the current state does
// nothing. A failed Start leaves the controller idle so the next Apply
// retries.
type Controller struct {
	emitter Emitter
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// NewController creates an idle controller.
func NewController(emitter Emitter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		emitter: emitter,
		logger:  logger,
		state:   StateIdle,
	}
}

// Apply moves the controller to the state demanded by status and returns the
// resulting state. Emitter failures are returned wrapped in ErrEmitterFailed.
func (c *Controller) Apply(ctx context.Context, status presence.Status) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := StateFor(status)
	if target == c.state {
		return c.state, nil
	}

	var errs []error
	if c.state.Active() {
		if err := c.emitter.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%w: stop %s: %w", ErrEmitterFailed, c.state, err))
		}
		// The tone is treated as gone even if Stop complained.
		c.state = StateIdle
	}

	if kind, ok := target.Kind(); ok {
		if err := c.emitter.Start(ctx, kind); err != nil {
			errs = append(errs, fmt.Errorf("%w: start %s: %w", ErrEmitterFailed, kind, err))
		} else {
			c.state = target
		}
	}

	if len(errs) > 0 {
		c.logger.Warn("alarm transition failed", "target", target, "state", c.state, "error", errors.Join(errs...))
	} else {
		c.logger.Debug("alarm transition", "state", c.state)
	}

	return c.state, errors.Join(errs...)
}

// Release forces the controller to idle and always asks the emitter to stop,
// whatever the current state.
func (c *Controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.state
	c.state = StateIdle

	if err := c.emitter.Stop(); err != nil {
		c.logger.Warn("alarm release failed", "state", prev, "error", err)
		return fmt.Errorf("%w: release: %w", ErrEmitterFailed, err)
	}
	if prev.Active() {
		c.logger.Debug("alarm released", "was", prev)
	}
	return nil
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
