package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// fakeEmitter tracks how many tones are live and how often they are
// acquired and released.
type fakeEmitter struct {
	mu       sync.Mutex
	playing  Kind
	live     int
	maxLive  int
	starts   []Kind
	releases int
	stops    int
	startErr error
	stopErr  error
}

func (f *fakeEmitter) Start(ctx context.Context, kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.live > 0 && f.playing == kind {
		return nil
	}
	f.starts = append(f.starts, kind)
	f.playing = kind
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	return nil
}

func (f *fakeEmitter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.live > 0 {
		f.live--
		f.releases++
		f.playing = ""
	}
	return f.stopErr
}

func TestController_StartsToneForDegradedStatus(t *testing.T) {
	tests := []struct {
		status presence.Status
		want   State
		kind   Kind
	}{
		{presence.StatusNoUser, StateLoud, KindLoud},
		{presence.StatusMobileDetected, StateMild, KindMild},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := &fakeEmitter{}
			c := NewController(f, nil)

			got, err := c.Apply(context.Background(), tt.status)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("state = %s, want %s", got, tt.want)
			}
			if len(f.starts) != 1 || f.starts[0] != tt.kind {
				t.Errorf("starts = %v, want [%s]", f.starts, tt.kind)
			}
		})
	}
}

func TestController_SameStatusIsIdempotent(t *testing.T) {
	f := &fakeEmitter{}
	c := NewController(f, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Apply(ctx, presence.StatusNoUser)
	}

	if len(f.starts) != 1 {
		t.Errorf("tone acquired %d times, want 1", len(f.starts))
	}
	if f.stops != 0 {
		t.Errorf("Stop called %d times, want 0", f.stops)
	}
	if f.maxLive > 1 {
		t.Errorf("max live tones = %d, want <= 1", f.maxLive)
	}
}

func TestController_SwitchTearsDownFirst(t *testing.T) {
	f := &fakeEmitter{}
	c := NewController(f, nil)
	ctx := context.Background()

	seq := []presence.Status{
		presence.StatusNoUser,
		presence.StatusMobileDetected,
		presence.StatusNoUser,
		presence.StatusOK,
		presence.StatusOK,
	}
	for _, s := range seq {
		if _, err := c.Apply(ctx, s); err != nil {
			t.Fatalf("Apply(%s) failed: %v", s, err)
		}
	}

	wantStarts := []Kind{KindLoud, KindMild, KindLoud}
	if len(f.starts) != len(wantStarts) {
		t.Fatalf("starts = %v, want %v", f.starts, wantStarts)
	}
	for i := range wantStarts {
		if f.starts[i] != wantStarts[i] {
			t.Errorf("starts[%d] = %s, want %s", i, f.starts[i], wantStarts[i])
		}
	}
	if f.maxLive != 1 {
		t.Errorf("max live tones = %d, want 1", f.maxLive)
	}
	if f.live != 0 {
		t.Errorf("live tones after ok = %d, want 0", f.live)
	}
	if f.releases != 3 {
		t.Errorf("releases = %d, want 3", f.releases)
	}
	if c.State() != StateIdle {
		t.Errorf("State() = %s, want idle", c.State())
	}
}

func TestController_UnknownStatusIsIdle(t *testing.T) {
	f := &fakeEmitter{}
	c := NewController(f, nil)

	got, err := c.Apply(context.Background(), presence.Status("sleeping"))
	if err != nil || got != StateIdle {
		t.Errorf("Apply(unknown) = %s, %v, want idle", got, err)
	}
	if len(f.starts) != 0 {
		t.Errorf("unknown status acquired a tone: %v", f.starts)
	}
}

func TestController_StartFailureLeavesIdle(t *testing.T) {
	boom := errors.New("audio device busy")
	f := &fakeEmitter{startErr: boom}
	c := NewController(f, nil)
	ctx := context.Background()

	got, err := c.Apply(ctx, presence.StatusNoUser)
	if !errors.Is(err, ErrEmitterFailed) || !errors.Is(err, boom) {
		t.Fatalf("Apply error = %v, want ErrEmitterFailed wrapping the cause", err)
	}
	if got != StateIdle {
		t.Errorf("state = %s, want idle after failed start", got)
	}

	// The device recovers; the next apply retries.
	f.mu.Lock()
	f.startErr = nil
	f.mu.Unlock()

	got, err = c.Apply(ctx, presence.StatusNoUser)
	if err != nil || got != StateLoud {
		t.Errorf("retry = %s, %v, want loud_alarm", got, err)
	}
}

func TestController_StopFailureStillMovesOn(t *testing.T) {
	f := &fakeEmitter{}
	c := NewController(f, nil)
	ctx := context.Background()

	c.Apply(ctx, presence.StatusNoUser)
	f.stopErr = errors.New("driver hiccup")

	got, err := c.Apply(ctx, presence.StatusMobileDetected)
	if !errors.Is(err, ErrEmitterFailed) {
		t.Errorf("error = %v, want ErrEmitterFailed", err)
	}
	if got != StateMild {
		t.Errorf("state = %s, want mild_alarm", got)
	}
	if f.maxLive > 1 {
		t.Errorf("max live tones = %d, want <= 1", f.maxLive)
	}
}

func TestController_Release(t *testing.T) {
	f := &fakeEmitter{}
	c := NewController(f, nil)

	c.Apply(context.Background(), presence.StatusNoUser)
	if err := c.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}

	if f.releases != 1 {
		t.Errorf("tone released %d times, want exactly 1", f.releases)
	}
	if f.live != 0 {
		t.Errorf("live tones = %d, want 0", f.live)
	}
	if c.State() != StateIdle {
		t.Errorf("State() = %s, want idle", c.State())
	}
}

func TestController_ReleaseWhenIdleStillStops(t *testing.T) {
	f := &fakeEmitter{}
	c := NewController(f, nil)

	if err := c.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if f.stops != 1 {
		t.Errorf("Stop called %d times, want 1", f.stops)
	}
	if f.releases != 0 {
		t.Errorf("releases = %d, want 0 when nothing was live", f.releases)
	}
}

func TestStateFor(t *testing.T) {
	if StateFor(presence.StatusOK) != StateIdle {
		t.Error("ok should map to idle")
	}
	if k, ok := StateLoud.Kind(); !ok || k != KindLoud {
		t.Errorf("StateLoud.Kind() = %s, %v", k, ok)
	}
	if StateIdle.Active() {
		t.Error("idle should not be active")
	}
}
