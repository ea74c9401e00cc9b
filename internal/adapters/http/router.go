package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/handyman-docs/internal/core/ports"
	"github.com/kirillkom/handyman-docs/internal/observability/metrics"
)

const (
	metricsService        = "api"
	defaultSignatureLimit = 2 << 20
)

type Options struct {
	Metrics        *metrics.HTTPServerMetrics
	Logger         *slog.Logger
	RateLimitRPS   float64
	RateLimitBurst int
	SignatureLimit int64
}

type Router struct {
	quotes     ports.QuoteService
	invoices   ports.InvoiceService
	signing    ports.SigningService
	calculator ports.Calculator

	metrics        *metrics.HTTPServerMetrics
	logger         *slog.Logger
	limiter        *clientLimiter
	signatureLimit int64
}

func NewRouter(
	quotes ports.QuoteService,
	invoices ports.InvoiceService,
	signing ports.SigningService,
	calculator ports.Calculator,
	options Options,
) *Router {
	rt := &Router{
		quotes:         quotes,
		invoices:       invoices,
		signing:        signing,
		calculator:     calculator,
		metrics:        options.Metrics,
		logger:         options.Logger,
		signatureLimit: options.SignatureLimit,
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	if rt.signatureLimit <= 0 {
		rt.signatureLimit = defaultSignatureLimit
	}
	if options.RateLimitRPS > 0 {
		rt.limiter = newClientLimiter(options.RateLimitRPS, options.RateLimitBurst)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware(rt.logger))

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(businessMiddleware)

		r.Post("/calculate", rt.calculate)

		r.Post("/quotes", rt.createQuote)
		r.Get("/quotes/{quoteID}", rt.getQuote)
		r.Put("/quotes/{quoteID}/items", rt.replaceQuoteItems)
		r.Post("/quotes/{quoteID}/send", rt.sendQuote)
		r.Post("/quotes/{quoteID}/tokens", rt.issueToken)
		r.Post("/quotes/{quoteID}/invoice", rt.invoiceFromQuote)

		r.Post("/invoices", rt.createInvoice)
		r.Get("/invoices/{invoiceID}", rt.getInvoice)
		r.Post("/invoices/{invoiceID}/send", rt.sendInvoice)
		r.Post("/invoices/{invoiceID}/pay", rt.payInvoice)
		r.Post("/invoices/{invoiceID}/cancel", rt.cancelInvoice)
		r.Post("/invoices/{invoiceID}/overdue", rt.markOverdue)
		r.Post("/invoices/{invoiceID}/reminders", rt.sendReminder)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.rateLimitMiddleware)

		r.Get("/quote/{token}", rt.resolveQuote)
		r.Post("/quote/{token}", rt.signQuote)
		r.Post("/quote/{token}/decline", rt.declineQuote)
	})

	if rt.metrics == nil {
		return r
	}
	return rt.metrics.Middleware(metricsService, r)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		rt.writeError(w, r, err)
		return
	}
	totals, err := rt.calculator.Calculate(req.toInput())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calculateResponse{Totals: totals, Rounded: totals.Rounded()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain error kinds to a status. Unclassified failures are
// logged and answered without internal detail.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"error", err,
		)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
