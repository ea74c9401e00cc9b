package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventDocumentSent    EventType = "document.sent"
	EventInvoiceReminder EventType = "invoice.reminder"
	EventInvoicePaid     EventType = "invoice.paid"
	EventQuoteSigned     EventType = "quote.signed"
	EventQuoteDeclined   EventType = "quote.declined"
)

type DocumentKind string

const (
	DocumentQuote   DocumentKind = "quote"
	DocumentInvoice DocumentKind = "invoice"
)

// DocumentEvent is published after a lifecycle change has been committed.
type DocumentEvent struct {
	ID           string       `json:"id"`
	Type         EventType    `json:"type"`
	DocumentKind DocumentKind `json:"document_kind"`
	DocumentID   string       `json:"document_id"`
	BusinessID   string       `json:"business_id"`
	CustomerID   string       `json:"customer_id"`
	Link         string       `json:"link,omitempty"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// Notification is what the delivery gateway turns into an SMS or e-mail.
type Notification struct {
	IdempotencyKey string       `json:"idempotency_key"`
	Template       EventType    `json:"template"`
	BusinessID     string       `json:"business_id"`
	CustomerID     string       `json:"customer_id"`
	DocumentKind   DocumentKind `json:"document_kind"`
	DocumentID     string       `json:"document_id"`
	Link           string       `json:"link,omitempty"`
}

// LedgerEntry is the accounting view of a paid invoice, in whole kronor.
type LedgerEntry struct {
	InvoiceID           string
	BusinessID          string
	CustomerID          string
	QuoteID             string
	PaidAt              time.Time
	PaymentMethod       PaymentMethod
	PaidAmount          decimal.Decimal
	Deduction           DeductionType
	PersonalNumber      string
	PropertyDesignation string
	Totals              Totals
}

func NewLedgerEntry(inv *Invoice) (LedgerEntry, error) {
	if inv.Status != InvoicePaid || inv.PaidAt == nil {
		return LedgerEntry{}, kindf(ErrInvalidTransition, "ledger entry", "invoice %s is %s", inv.ID, inv.Status)
	}
	totals, err := inv.Totals()
	if err != nil {
		return LedgerEntry{}, err
	}
	return LedgerEntry{
		InvoiceID:           inv.ID,
		BusinessID:          inv.BusinessID,
		CustomerID:          inv.CustomerID,
		QuoteID:             inv.QuoteID,
		PaidAt:              *inv.PaidAt,
		PaymentMethod:       inv.PaymentMethod,
		PaidAmount:          inv.PaidAmount.Decimal.Round(0),
		Deduction:           inv.Pricing.Deduction,
		PersonalNumber:      inv.Deduction.PersonalNumber,
		PropertyDesignation: inv.Deduction.PropertyDesignation,
		Totals:              totals.Rounded(),
	}, nil
}
