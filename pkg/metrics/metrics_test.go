package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/presence"
	"github.com/teslashibe/go-focusguard/pkg/session"
)

func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	m, ok := <-ch
	if !ok {
		t.Fatal("collector produced no metric")
	}
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatal(err)
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	case out.Histogram != nil:
		return float64(out.Histogram.GetSampleCount())
	}
	t.Fatal("unsupported metric type")
	return 0
}

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	events := []session.Event{
		{Kind: session.EventStarted},
		{Kind: session.EventTick},
		{Kind: session.EventTick},
		{Kind: session.EventMode, From: "neutral", To: "focused"},
		{Kind: session.EventStatus, From: "ok", To: "no_user"},
		{Kind: session.EventAlarm, From: string(alarm.StateIdle), To: string(alarm.StateLoud)},
		{Kind: session.EventAlarm, From: string(alarm.StateLoud), To: string(alarm.StateIdle)},
		{Kind: session.EventAlarmError, Detail: "device busy"},
	}
	for _, ev := range events {
		m.Observe(ev)
	}

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"ticks", m.Ticks, 2},
		{"mode transition", m.ModeTransitions.WithLabelValues("neutral", "focused"), 1},
		{"no_user confirmed", m.ConfirmedStatus.WithLabelValues("no_user"), 1},
		{"ok cleared", m.ConfirmedStatus.WithLabelValues("ok"), 0},
		{"loud activation", m.AlarmActivations.WithLabelValues("loud"), 1},
		{"mild never", m.AlarmActivations.WithLabelValues("mild"), 0},
		{"alarm errors", m.AlarmErrors, 1},
		{"active sessions", m.ActiveSessions, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := value(t, tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	m.Observe(session.Event{Kind: session.EventStopped})
	if got := value(t, m.ActiveSessions); got != 0 {
		t.Errorf("active sessions after stop = %v", got)
	}
	if got := value(t, m.ConfirmedStatus.WithLabelValues(string(presence.StatusOK))); got != 1 {
		t.Errorf("ok after stop = %v, want 1", got)
	}
}

func TestInstrument(t *testing.T) {
	m := New(prometheus.NewRegistry())

	fail := true
	a := m.Instrument(analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		if fail {
			return analyzer.Result{}, errors.New("timeout")
		}
		return analyzer.Result{Status: presence.StatusOK}, nil
	}))

	if _, err := a.Analyze(context.Background(), []byte{1}); err == nil {
		t.Fatal("expected error to pass through")
	}
	fail = false
	res, err := a.Analyze(context.Background(), []byte{1})
	if err != nil || res.Status != presence.StatusOK {
		t.Fatalf("Analyze = %+v, %v", res, err)
	}

	if got := value(t, m.AnalyzerLatency); got != 2 {
		t.Errorf("latency samples = %v, want 2", got)
	}
	if got := value(t, m.AnalyzerErrors); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(session.Event{Kind: session.EventTick})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["focusguard_ticks_total"] {
		t.Errorf("focusguard_ticks_total not gathered: %v", names)
	}
}
