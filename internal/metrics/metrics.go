// Package metrics defines the Prometheus instrumentation for the console
// core. A single Metrics struct is created at startup and passed to the
// components that record into it. A nil *Metrics is safe everywhere and
// records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the console core.
type Metrics struct {
	GuardDecisions     *prometheus.CounterVec
	PermissionFetches  *prometheus.CounterVec
	DecisionCache      *prometheus.CounterVec
	UnauthorizedCycles prometheus.Counter
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GuardDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinedesk",
				Name:      "guard_decisions_total",
				Help:      "Navigation guard decisions by outcome",
			},
			[]string{"outcome", "reason"}, // outcome=proceed/redirect
		),
		PermissionFetches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinedesk",
				Name:      "permission_fetches_total",
				Help:      "Permission set fetches by result",
			},
			[]string{"result"}, // result=ok/error/skipped/stale
		),
		DecisionCache: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinedesk",
				Name:      "permission_decision_cache_total",
				Help:      "Server-side permission check cache lookups",
			},
			[]string{"result"}, // result=hit/miss
		),
		UnauthorizedCycles: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "cinedesk",
				Name:      "unauthorized_cycles_total",
				Help:      "Logout cycles triggered by 401 responses",
			},
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinedesk",
				Name:      "api_requests_total",
				Help:      "Backend API requests by method and status class",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cinedesk",
				Name:      "api_request_duration_seconds",
				Help:      "Backend API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// IncGuardDecision records one guard decision. Nil-safe.
func (m *Metrics) IncGuardDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(outcome, reason).Inc()
}

// IncPermissionFetch records one permission fetch attempt. Nil-safe.
func (m *Metrics) IncPermissionFetch(result string) {
	if m == nil {
		return
	}
	m.PermissionFetches.WithLabelValues(result).Inc()
}

// IncDecisionCache records one decision-cache lookup. Nil-safe.
func (m *Metrics) IncDecisionCache(result string) {
	if m == nil {
		return
	}
	m.DecisionCache.WithLabelValues(result).Inc()
}

// IncUnauthorizedCycle records one 401-triggered logout cycle. Nil-safe.
func (m *Metrics) IncUnauthorizedCycle() {
	if m == nil {
		return
	}
	m.UnauthorizedCycles.Inc()
}

// ObserveRequest records one backend API request. Nil-safe.
func (m *Metrics) ObserveRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}
