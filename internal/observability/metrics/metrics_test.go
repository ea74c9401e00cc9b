package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

func TestNormalizePathHidesTokensAndIDs(t *testing.T) {
	cases := map[string]string{
		"/quote/abcDEF123":             "/quote/{token}",
		"/quote/abcDEF123/decline":     "/quote/{token}/decline",
		"/v1/quotes/q-1/send":          "/v1/quotes/{quote_id}/send",
		"/v1/invoices/inv-9/reminders": "/v1/invoices/{invoice_id}/reminders",
		"/v1/quotes":                   "/v1/quotes",
		"/v1/calculate":                "/v1/calculate",
		"/healthz":                     "/healthz",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareRecordsNormalizedPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quote/secret-token", nil))

	got := value(t, m.requestTotal.WithLabelValues("api", http.MethodGet, "/quote/{token}", "410"))
	if got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rec.Body.String(), "secret-token") {
		t.Fatalf("token leaked into metrics output")
	}
}

func TestEngineMetrics(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	engine := NewEngineMetrics("api", m.Registerer())

	engine.ObserveTransition(domain.DocumentQuote, "opened", "accepted")
	engine.ObserveSignature("accepted")
	engine.ObserveBreakerState("notify.send", "open")

	if got := value(t, engine.transitionsTotal.WithLabelValues("api", "quote", "opened", "accepted")); got != 1 {
		t.Fatalf("transitions = %v", got)
	}
	if got := value(t, engine.breakerOpen.WithLabelValues("api", "notify.send")); got != 1 {
		t.Fatalf("breaker gauge = %v", got)
	}
	engine.ObserveBreakerState("notify.send", "closed")
	if got := value(t, engine.breakerOpen.WithLabelValues("api", "notify.send")); got != 0 {
		t.Fatalf("breaker gauge after close = %v", got)
	}
}

type handlerFunc func(context.Context, domain.DocumentEvent) error

func (f handlerFunc) HandleEvent(ctx context.Context, event domain.DocumentEvent) error {
	return f(ctx, event)
}

func TestWorkerInstrumentCountsOutcomes(t *testing.T) {
	m := NewWorkerMetrics("worker")
	failing := errors.New("gateway down")
	handler := m.Instrument(handlerFunc(func(_ context.Context, event domain.DocumentEvent) error {
		if event.Type == domain.EventInvoicePaid {
			return failing
		}
		return nil
	}))

	_ = handler.HandleEvent(context.Background(), domain.DocumentEvent{Type: domain.EventDocumentSent})
	if err := handler.HandleEvent(context.Background(), domain.DocumentEvent{Type: domain.EventInvoicePaid}); !errors.Is(err, failing) {
		t.Fatalf("expected handler error to pass through, got %v", err)
	}

	if got := value(t, m.eventsTotal.WithLabelValues("worker", "document.sent", "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := value(t, m.eventsTotal.WithLabelValues("worker", "invoice.paid", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("read metric: %v", err)
	}
	if c := out.GetCounter(); c != nil {
		return c.GetValue()
	}
	return out.GetGauge().GetValue()
}
