package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	eventsTotal     *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
	eventsInFlight  prometheus.Gauge
	eventQueueDelay *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_total",
			Help:      "Handled document events by type and status.",
		},
		[]string{"service", "event_type", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_duration_seconds",
			Help:      "Event handling duration in seconds by type and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "event_type", "status"},
	)
	eventsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_in_flight",
			Help:      "Number of events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventQueueDelay := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_delay_seconds",
			Help:      "Delay between the committed change and the start of handling.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "event_type"},
	)

	registry.MustRegister(eventsTotal, eventDuration, eventsInFlight, eventQueueDelay)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		eventsTotal:     eventsTotal,
		eventDuration:   eventDuration,
		eventsInFlight:  eventsInFlight,
		eventQueueDelay: eventQueueDelay,
	}
}

func (m *WorkerMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument wraps an event handler with in-flight, outcome and delay metrics.
func (m *WorkerMetrics) Instrument(next ports.DocumentEventHandler) ports.DocumentEventHandler {
	return instrumented{metrics: m, next: next}
}

type instrumented struct {
	metrics *WorkerMetrics
	next    ports.DocumentEventHandler
}

func (h instrumented) HandleEvent(ctx context.Context, event domain.DocumentEvent) error {
	m := h.metrics
	start := time.Now()
	eventType := string(event.Type)
	if !event.OccurredAt.IsZero() {
		if delay := start.Sub(event.OccurredAt); delay >= 0 {
			m.eventQueueDelay.WithLabelValues(m.service, eventType).Observe(delay.Seconds())
		}
	}

	m.eventsInFlight.Inc()
	err := h.next.HandleEvent(ctx, event)
	m.eventsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(m.service, eventType, status).Inc()
	m.eventDuration.WithLabelValues(m.service, eventType, status).Observe(time.Since(start).Seconds())
	return err
}
