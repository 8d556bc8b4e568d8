// Package metrics exposes session progress as Prometheus metrics, fed by the
// trial lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	Trials       *prometheus.CounterVec
	Touches      *prometheus.CounterVec
	FeederPulses *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	StageVisits  *prometheus.CounterVec
	Sessions     *prometheus.CounterVec
	Running      prometheus.Gauge
}

// New registers the operant collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operant_trials_total",
				Help: "Completed trials by type, chosen option and outcome.",
			},
			[]string{"trial_type", "choice", "outcome"},
		),
		Touches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operant_touches_total",
				Help: "Pecks observed by kind.",
			},
			[]string{"kind"},
		),
		FeederPulses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operant_feeder_pulses_total",
				Help: "Hopper activations by result.",
			},
			[]string{"result"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "operant_response_latency_seconds",
				Help:    "Latency from offer onset to the choice peck.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"trial_type"},
		),
		StageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operant_stage_visits_total",
				Help: "Trial executor state entries.",
			},
			[]string{"stage"},
		),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operant_sessions_total",
				Help: "Finished sessions by reason.",
			},
			[]string{"reason"},
		),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "operant_session_running",
			Help: "1 while a session is in progress.",
		}),
	}
	m.Registry.MustRegister(m.Trials, m.Touches, m.FeederPulses, m.Latency, m.StageVisits, m.Sessions, m.Running)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Hooks records the lifecycle callbacks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(context.Context, *domain.SessionEvent) {
			m.Running.Set(1)
		},
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			m.StageVisits.WithLabelValues(string(e.Stage)).Inc()
		},
		OnTouch: func(_ context.Context, e *domain.TouchEvent) {
			m.Touches.WithLabelValues(string(e.Kind)).Inc()
		},
		OnFeeder: func(_ context.Context, e *domain.FeederEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.FeederPulses.WithLabelValues(result).Inc()
		},
		OnTrialComplete: func(_ context.Context, r *domain.TrialRecord) {
			m.Trials.WithLabelValues(string(r.TrialType), string(r.ChosenOption), string(r.Outcome)).Inc()
			m.Latency.WithLabelValues(string(r.TrialType)).Observe(float64(r.LatencyMS) / 1000)
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.Running.Set(0)
			m.Sessions.WithLabelValues(e.Reason).Inc()
		},
	}
}
