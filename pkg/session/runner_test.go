package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/presence"
)

type fakeSource struct {
	frames atomic.Int64
	err    error
}

func (f *fakeSource) CaptureJPEG(ctx context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.frames.Add(1)
	return []byte{0xFF, 0xD8}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunner_DrivesSessionAndReleasesOnExit(t *testing.T) {
	em := &fakeEmitter{}
	ctrl := alarm.NewController(em, nil)
	s := New(DefaultConfig(), ctrl, nil)

	src := &fakeSource{}
	a := analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		return analyzer.Result{Status: presence.StatusNoUser}, nil
	})

	var results atomic.Int64
	r := NewRunner(s, src, a, 5*time.Millisecond, nil)
	r.OnResult = func(res analyzer.Result, at time.Time) { results.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitFor(t, func() bool { return ctrl.State() == alarm.StateLoud })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if s.Active() {
		t.Error("session should be stopped when the runner exits")
	}
	if _, releases, live := em.counts(); releases != 1 || live {
		t.Errorf("releases=%d live=%v, want 1/false", releases, live)
	}
	if results.Load() < 3 {
		t.Errorf("results = %d, want at least 3", results.Load())
	}
}

func TestRunner_SkipsFailedFrames(t *testing.T) {
	em := &fakeEmitter{}
	s := New(DefaultConfig(), alarm.NewController(em, nil), nil)

	var calls atomic.Int64
	a := analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		n := calls.Add(1)
		if n%2 == 0 {
			return analyzer.Result{}, &analyzer.APIError{StatusCode: 503, Message: "busy"}
		}
		return analyzer.Result{Status: presence.StatusOK, Scores: affect.Reading{"neutral": 0.8}}, nil
	})

	r := NewRunner(s, &fakeSource{}, a, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitFor(t, func() bool { return calls.Load() >= 6 })
	snap := s.Snapshot()
	cancel()
	<-done

	if snap.Seq == 0 || snap.Seq >= uint64(calls.Load()) {
		t.Errorf("Seq = %d after %d analyzer calls, want only successful frames ticked", snap.Seq, calls.Load())
	}
}

func TestRunner_CaptureErrorSkipsAnalyzer(t *testing.T) {
	s := New(DefaultConfig(), alarm.NewController(&fakeEmitter{}, nil), nil)

	var calls atomic.Int64
	a := analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		calls.Add(1)
		return analyzer.Result{Status: presence.StatusOK}, nil
	})

	r := NewRunner(s, &fakeSource{err: errors.New("camera unplugged")}, a, 5*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("analyzer called %d times on capture failure", calls.Load())
	}
}

func TestRunner_ExitsWhenSessionStoppedElsewhere(t *testing.T) {
	s := New(DefaultConfig(), alarm.NewController(&fakeEmitter{}, nil), nil)
	a := analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		return analyzer.Result{Status: presence.StatusOK}, nil
	})

	r := NewRunner(s, &fakeSource{}, a, 5*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	waitFor(t, s.Active)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not notice the stopped session")
	}
}

func TestFromResult(t *testing.T) {
	at := time.Unix(100, 0)
	obs := FromResult(analyzer.Result{Status: presence.StatusMobileDetected}, at)
	if obs.Status != presence.StatusMobileDetected || obs.Scores != nil || !obs.At.Equal(at) {
		t.Errorf("FromResult() = %+v", obs)
	}
}

func TestRunner_FollowIdlesBetweenSessions(t *testing.T) {
	s := New(DefaultConfig(), alarm.NewController(&fakeEmitter{}, nil), nil)
	src := &fakeSource{}
	a := analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		return analyzer.Result{Status: presence.StatusOK}, nil
	})

	r := NewRunner(s, src, a, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Follow(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if n := src.frames.Load(); n != 0 {
		t.Fatalf("captured %d frames with no session", n)
	}

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return s.Snapshot().Seq >= 2 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
	if s.Active() {
		t.Error("session should be stopped when Follow exits")
	}
}
