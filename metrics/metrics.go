// Package metrics exposes Prometheus collectors reporting coordination
// activity. Every method is safe on a nil *Metrics, so components can be
// built without metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentcoord"

// Metrics holds the coordination collectors.
type Metrics struct {
	selections      *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	toolInvocations *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
	handoffs        *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on a
// registration error. A nil reg uses the default registerer.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "selections_total",
			Help:      "Agent selections by mode and outcome.",
		}, []string{"mode", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "fallbacks_total",
			Help:      "Fallbacks taken instead of the LLM path, by reason.",
		}, []string{"reason"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Duration of LLM backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "model", "status"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "invocations_total",
			Help:      "Tool invocations by server family and status.",
		}, []string{"server", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of tool invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"server"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "active_sessions",
			Help:      "Coordination sessions currently active.",
		}),
		handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "handoffs_total",
			Help:      "Handoff attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.selections = register(reg, m.selections)
	m.fallbacks = register(reg, m.fallbacks)
	m.llmDuration = register(reg, m.llmDuration)
	m.toolInvocations = register(reg, m.toolInvocations)
	m.toolDuration = register(reg, m.toolDuration)
	m.activeSessions = register(reg, m.activeSessions)
	m.handoffs = register(reg, m.handoffs)
	return m
}

// register returns the already registered collector when an identical one
// exists, so several Metrics can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveSelection counts a selection under mode; fallback marks results
// produced by a fallback branch.
func (m *Metrics) ObserveSelection(mode string, fallback bool, empty bool) {
	if m == nil {
		return
	}
	outcome := "selected"
	switch {
	case empty:
		outcome = "empty"
	case fallback:
		outcome = "fallback"
	}
	m.selections.WithLabelValues(mode, outcome).Inc()
}

// IncFallback counts a fallback taken for reason.
func (m *Metrics) IncFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

// ObserveLLMCall records one backend call.
func (m *Metrics) ObserveLLMCall(provider, model string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(provider, model, status(err)).Observe(dur.Seconds())
}

// ObserveToolCall records one tool invocation.
func (m *Metrics) ObserveToolCall(server, _ string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(server, status(err)).Inc()
	m.toolDuration.WithLabelValues(server).Observe(dur.Seconds())
}

// SessionOpened increments the active sessions gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// SetActiveSessions sets the active sessions gauge, e.g. from a store that
// already holds sessions.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// ObserveHandoff counts a handoff attempt.
func (m *Metrics) ObserveHandoff(accepted bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.handoffs.WithLabelValues(outcome).Inc()
}
