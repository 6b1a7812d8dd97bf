package affect

import (
	"math"
	"sync"
	"time"
)

// Advance folds one reading into the classifier state and returns the new state.
// dt is the wall-clock time in seconds since the previous reading; negative
// values are treated as zero. Advance never fails: malformed input reads as zero.
func Advance(s State, r Reading, dt float64, th Thresholds) State {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	sc := r.Canonical()

	stress := sc.Angry + sc.Fear + sc.Sad
	confident := sc.Happy - sc.Fear
	confusionBase := sc.Surprise + sc.Fear

	s.History.Push(sc)

	confusion := confusionBase
	if s.History.Len() > th.TrendMinHistory {
		if confusionBase > trendBaseline(s.History.Tail(th.TrendWindow))+th.TrendMargin {
			confusion += th.TrendBoost
		}
	}

	t := s.Timers
	t.Angry = accumulateOrDecay(t.Angry, sc.Angry > th.AngryLevel || stress > th.StressLevel, dt)
	t.Tired = accumulateOrDecay(t.Tired, sc.Sad > th.SadLevel, dt)
	t.Focused = accumulateOrReset(t.Focused, sc.Neutral > th.NeutralLevel, dt)
	t.Calm = accumulateOrReset(t.Calm, sc.Happy > th.HappyLevel || confident > th.ConfidentLevel, dt)
	t.Confused = accumulateOrReset(t.Confused, confusion > th.ConfusionLevel, dt)
	s.Timers = t

	s.Affect = AffectState{
		Stress:    stress,
		Bored:     sc.Neutral,
		Confused:  confusion,
		Confident: confident,
		Mode:      selectMode(t, th),
	}
	return s
}

// selectMode checks dwell timers in fixed priority order. A lower priority
// timer never wins over a qualifying higher priority one, whatever its value.
func selectMode(t Timers, th Thresholds) Mode {
	switch {
	case t.Angry >= th.AngryDwell:
		return ModeAngryFrustrated
	case t.Confused >= th.ConfusedDwell:
		return ModeConfused
	case t.Tired >= th.TiredDwell:
		return ModeTired
	case t.Calm >= th.CalmDwell:
		return ModeCalmExploratory
	case t.Focused >= th.FocusedDwell:
		return ModeFocused
	default:
		return ModeNeutral
	}
}

func trendBaseline(tail []Scores) float64 {
	if len(tail) == 0 {
		return 0
	}
	var sum float64
	for _, s := range tail {
		sum += s.Surprise + s.Fear
	}
	return sum / float64(len(tail))
}

// accumulateOrDecay tolerates brief dips: time spent outside the trigger is
// subtracted instead of discarding the accumulated dwell.
func accumulateOrDecay(timer float64, active bool, dt float64) float64 {
	if active {
		return timer + dt
	}
	timer -= dt
	if timer < 0 {
		return 0
	}
	return timer
}

// accumulateOrReset requires unbroken satisfaction of the trigger.
func accumulateOrReset(timer float64, active bool, dt float64) float64 {
	if active {
		return timer + dt
	}
	return 0
}

// Classifier owns a State and derives dt from reading timestamps.
// It is safe for concurrent use, but readings must still arrive in order.
type Classifier struct {
	mu         sync.Mutex
	thresholds Thresholds
	state      State
	last       time.Time
	primed     bool
}

// NewClassifier creates a classifier in the initial neutral state.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{
		thresholds: th,
		state:      NewState(),
	}
}

// Observe processes a reading captured at the given time. The first reading
// after construction or Reset contributes no dwell time.
func (c *Classifier) Observe(r Reading, at time.Time) AffectState {
	c.mu.Lock()
	defer c.mu.Unlock()

	dt := 0.0
	if c.primed {
		dt = at.Sub(c.last).Seconds()
	}
	c.last = at
	c.primed = true

	c.state = Advance(c.state, r, dt, c.thresholds)
	return c.state.Affect
}

// State returns a copy of the current classifier state.
func (c *Classifier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Affect returns the latest affect state.
func (c *Classifier) Affect() AffectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Affect
}

// Thresholds returns the tuning in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Reset discards history and timers and returns to neutral.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = NewState()
	c.last = time.Time{}
	c.primed = false
}
