package observability

import (
	"context"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the call workflow.
type Metrics struct {
	Triggers        *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	Resolutions     *prometheus.CounterVec
	Escalations     *prometheus.CounterVec
	OracleFallbacks prometheus.Counter
}

// NewMetrics creates and registers the metric set on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_triggers_total",
				Help: "Trigger events handled, by outcome status",
			},
			[]string{"status"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_session_transitions_total",
				Help: "Call session state transitions",
			},
			[]string{"to"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_sessions_resolved_total",
				Help: "Sessions reaching a terminal disposition",
			},
			[]string{"disposition"},
		),
		Escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_escalations_total",
				Help: "Escalation handoffs, by delivery result",
			},
			[]string{"delivered"},
		),
		OracleFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vigil_oracle_fallbacks_total",
				Help: "Decisions that fell back because the oracle failed",
			},
		),
	}

	reg.MustRegister(m.Triggers, m.Transitions, m.Resolutions, m.Escalations, m.OracleFallbacks)
	return m
}

// Hooks adapts the metric set to the orchestrator's lifecycle hooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTrigger: func(_ context.Context, status domain.TriggerStatus) {
			m.Triggers.WithLabelValues(string(status)).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.To)).Inc()
			if e.To.Terminal() {
				m.Resolutions.WithLabelValues(string(e.To)).Inc()
			}
		},
		OnEscalation: func(_ context.Context, e *domain.EscalationEvent) {
			delivered := "false"
			if e.Delivered {
				delivered = "true"
			}
			m.Escalations.WithLabelValues(delivered).Inc()
		},
		OnOracleFallback: func(context.Context, domain.TriggerEvent) {
			m.OracleFallbacks.Inc()
		},
	}
}
