// Package metrics exposes Prometheus collectors for sessions and analyzers.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/presence"
	"github.com/teslashibe/go-focusguard/pkg/session"
)

// Metrics holds the focusguard collectors.
type Metrics struct {
	Ticks            prometheus.Counter
	ModeTransitions  *prometheus.CounterVec
	ConfirmedStatus  *prometheus.GaugeVec
	AlarmActivations *prometheus.CounterVec
	AlarmErrors      prometheus.Counter
	ActiveSessions   prometheus.Gauge
	AnalyzerLatency  prometheus.Histogram
	AnalyzerErrors   prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "focusguard_ticks_total",
			Help: "Total number of session ticks processed",
		}),
		ModeTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "focusguard_mode_transitions_total",
			Help: "Affect mode transitions",
		}, []string{"from", "to"}),
		ConfirmedStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "focusguard_confirmed_status",
			Help: "1 for the currently confirmed presence status, 0 otherwise",
		}, []string{"status"}),
		AlarmActivations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "focusguard_alarm_activations_total",
			Help: "Alarm tones started, by kind",
		}, []string{"kind"}),
		AlarmErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "focusguard_alarm_errors_total",
			Help: "Alarm emitter failures",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "focusguard_active_sessions",
			Help: "Number of active sessions",
		}),
		AnalyzerLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "focusguard_analyzer_latency_seconds",
			Help:    "Frame analyzer latency in seconds",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		AnalyzerErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "focusguard_analyzer_errors_total",
			Help: "Frame analyzer failures",
		}),
	}
}

// Observe updates the collectors from a session event. Pass it to
// Session.Subscribe.
func (m *Metrics) Observe(ev session.Event) {
	switch ev.Kind {
	case session.EventStarted:
		m.ActiveSessions.Inc()
		m.setStatus(presence.StatusOK)
	case session.EventStopped:
		m.ActiveSessions.Dec()
		m.setStatus(presence.StatusOK)
	case session.EventTick:
		m.Ticks.Inc()
	case session.EventMode:
		m.ModeTransitions.WithLabelValues(ev.From, ev.To).Inc()
	case session.EventStatus:
		m.setStatus(presence.Status(ev.To))
	case session.EventAlarm:
		if k, ok := alarm.State(ev.To).Kind(); ok {
			m.AlarmActivations.WithLabelValues(string(k)).Inc()
		}
	case session.EventAlarmError:
		m.AlarmErrors.Inc()
	}
}

func (m *Metrics) setStatus(current presence.Status) {
	for _, s := range []presence.Status{presence.StatusOK, presence.StatusNoUser, presence.StatusMobileDetected} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.ConfirmedStatus.WithLabelValues(string(s)).Set(v)
	}
}

// Instrument wraps an analyzer so every call is timed and failures counted.
func (m *Metrics) Instrument(a analyzer.Analyzer) analyzer.Analyzer {
	return analyzer.Func(func(ctx context.Context, jpeg []byte) (analyzer.Result, error) {
		start := time.Now()
		res, err := a.Analyze(ctx, jpeg)
		m.AnalyzerLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			m.AnalyzerErrors.Inc()
		}
		return res, err
	})
}
