package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// EngineMetrics counts lifecycle transitions, signing outcomes and outbound
// call resilience events.
type EngineMetrics struct {
	service string

	transitionsTotal *prometheus.CounterVec
	signaturesTotal  *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec
	breakerOpen      *prometheus.GaugeVec
}

func NewEngineMetrics(service string, registerer prometheus.Registerer) *EngineMetrics {
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "transitions_total",
			Help:      "Committed document status transitions.",
		},
		[]string{"service", "kind", "from", "to"},
	)
	signaturesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "submissions_total",
			Help:      "Signature submissions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retried outbound calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker of an operation is not closed.",
		},
		[]string{"service", "operation"},
	)
	registerer.MustRegister(transitionsTotal, signaturesTotal, retriesTotal, breakerOpen)

	return &EngineMetrics{
		service:          service,
		transitionsTotal: transitionsTotal,
		signaturesTotal:  signaturesTotal,
		retriesTotal:     retriesTotal,
		breakerOpen:      breakerOpen,
	}
}

func (m *EngineMetrics) ObserveTransition(kind domain.DocumentKind, from, to string) {
	m.transitionsTotal.WithLabelValues(m.service, string(kind), from, to).Inc()
}

func (m *EngineMetrics) ObserveSignature(outcome string) {
	m.signaturesTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *EngineMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *EngineMetrics) ObserveBreakerState(operation, state string) {
	value := 1.0
	if state == "closed" {
		value = 0
	}
	m.breakerOpen.WithLabelValues(m.service, operation).Set(value)
}
