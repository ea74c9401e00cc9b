package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (rt *Router) createQuote(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		rt.writeError(w, r, err)
		return
	}
	validUntil, err := parseDate("valid_until", req.ValidUntil)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.quotes.CreateDraft(r.Context(), businessIDFromContext(r.Context()), req.toInput(), validUntil)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (rt *Router) getQuote(w http.ResponseWriter, r *http.Request) {
	view, err := rt.quotes.Get(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "quoteID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) replaceQuoteItems(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.quotes.ReplaceItems(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "quoteID"), req.toInput())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) sendQuote(w http.ResponseWriter, r *http.Request) {
	sent, err := rt.quotes.Send(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "quoteID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (rt *Router) issueToken(w http.ResponseWriter, r *http.Request) {
	link, err := rt.quotes.IssueToken(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "quoteID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (rt *Router) invoiceFromQuote(w http.ResponseWriter, r *http.Request) {
	var req invoiceFromQuoteRequest
	if err := decodeJSON(r, &req, true); err != nil {
		rt.writeError(w, r, err)
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.invoices.CreateFromQuote(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "quoteID"), dueDate)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (rt *Router) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		rt.writeError(w, r, err)
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.invoices.CreateDraft(r.Context(), businessIDFromContext(r.Context()), req.toInput(), dueDate)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (rt *Router) getInvoice(w http.ResponseWriter, r *http.Request) {
	view, err := rt.invoices.Get(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) sendInvoice(w http.ResponseWriter, r *http.Request) {
	view, err := rt.invoices.Send(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) payInvoice(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		rt.writeError(w, r, err)
		return
	}
	payment, err := req.toPayment()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.invoices.MarkPaid(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "invoiceID"), payment)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	view, err := rt.invoices.Cancel(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) markOverdue(w http.ResponseWriter, r *http.Request) {
	view, err := rt.invoices.MarkOverdue(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) sendReminder(w http.ResponseWriter, r *http.Request) {
	view, err := rt.invoices.SendReminder(r.Context(), businessIDFromContext(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
