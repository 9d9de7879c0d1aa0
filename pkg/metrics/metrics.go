// Package metrics holds the prometheus collectors for the orchestrator.
// Build one Metrics at startup and inject it; a nil *Metrics disables
// recording.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	FallbacksTotal   *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agent",
			Name:      "requests_total",
			Help:      "Orchestration requests by intent and status.",
		}, []string{"intent", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agent",
			Name:      "request_duration_seconds",
			Help:      "End-to-end orchestration latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agent",
			Name:      "tool_calls_total",
			Help:      "Capability invocations by capability, operation and outcome.",
		}, []string{"capability", "operation", "outcome"}),
		ToolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agent",
			Name:      "tool_call_duration_seconds",
			Help:      "Per-invocation capability latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agent",
			Name:      "fallbacks_total",
			Help:      "Locally computed fallback results by capability.",
		}, []string{"capability"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.FallbacksTotal,
	)
	return m
}

// Registry exposes the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(intent, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(intent, status).Inc()
	m.RequestDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

func (m *Metrics) ObserveToolCall(capability, operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(capability, operation, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(capability).Observe(duration.Seconds())
}

func (m *Metrics) ObserveFallback(capability string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(capability).Inc()
}
