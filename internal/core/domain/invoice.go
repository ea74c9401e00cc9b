package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentBankgiro     PaymentMethod = "bankgiro"
	PaymentSwish        PaymentMethod = "swish"
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBankTransfer, PaymentBankgiro, PaymentSwish, PaymentCard, PaymentCash:
		return true
	default:
		return false
	}
}

type Payment struct {
	PaidAt time.Time       `json:"paid_at"`
	Amount decimal.Decimal `json:"amount"`
	Method PaymentMethod   `json:"method"`
}

type Invoice struct {
	ID         string           `json:"id"`
	BusinessID string           `json:"business_id"`
	CustomerID string           `json:"customer_id"`
	QuoteID    string           `json:"quote_id,omitempty"`
	Items      []LineItem       `json:"items"`
	Pricing    Pricing          `json:"pricing"`
	Deduction  DeductionDetails `json:"deduction"`
	DueDate    time.Time        `json:"due_date"`
	Status     InvoiceStatus    `json:"status"`

	SentAt         *time.Time `json:"sent_at,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	ReminderCount  int        `json:"reminder_count"`

	PaidAmount    decimal.NullDecimal `json:"paid_amount"`
	PaymentMethod PaymentMethod       `json:"payment_method,omitempty"`
	ExternalRef   string              `json:"external_ref,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewInvoice(id, businessID, customerID string, items []LineItem, pricing Pricing, deduction DeductionDetails, dueDate, now time.Time) (*Invoice, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, kindf(ErrMissingRequiredField, "new invoice", "business id is required")
	}
	if _, err := Calculate(items, pricing); err != nil {
		return nil, err
	}
	return &Invoice{
		ID:         id,
		BusinessID: businessID,
		CustomerID: customerID,
		Items:      cloneItems(items),
		Pricing:    pricing,
		Deduction:  deduction,
		DueDate:    DateOf(dueDate),
		Status:     InvoiceDraft,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// InvoiceFromQuote derives a draft invoice from an accepted quote.
func InvoiceFromQuote(id string, q *Quote, dueDate, now time.Time) (*Invoice, error) {
	if q.Status != QuoteAccepted {
		return nil, kindf(ErrInvalidTransition, "invoice from quote", "quote %s is %s, only accepted quotes can be invoiced", q.ID, q.Status)
	}
	inv, err := NewInvoice(id, q.BusinessID, q.CustomerID, q.Items, q.Pricing, q.Deduction, dueDate, now)
	if err != nil {
		return nil, err
	}
	inv.QuoteID = q.ID
	return inv, nil
}

func (inv *Invoice) Totals() (Totals, error) {
	return Calculate(inv.Items, inv.Pricing)
}

// EffectiveStatus derives the display status: a sent invoice past its due date reads as overdue.
func (inv *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if inv.Status == InvoiceSent && IsOverdue(inv.Status, inv.DueDate, now) {
		return InvoiceOverdue
	}
	return inv.Status
}

func (inv *Invoice) ReplaceItems(items []LineItem, pricing Pricing, now time.Time) error {
	if inv.Status != InvoiceDraft {
		return kindf(ErrInvalidTransition, "replace invoice items", "invoice %s is %s, only drafts are editable", inv.ID, inv.Status)
	}
	if _, err := Calculate(items, pricing); err != nil {
		return err
	}
	inv.Items = cloneItems(items)
	inv.Pricing = pricing
	inv.UpdatedAt = now
	return nil
}

// Send moves a draft to sent. Re-sending a sent or overdue invoice is a no-op.
func (inv *Invoice) Send(now time.Time) error {
	switch inv.Status {
	case InvoiceSent, InvoiceOverdue:
		return nil
	case InvoiceDraft:
	default:
		return kindf(ErrInvalidTransition, "send invoice", "invoice %s is %s", inv.ID, inv.Status)
	}
	if strings.TrimSpace(inv.CustomerID) == "" {
		return kindf(ErrMissingRequiredField, "send invoice", "invoice %s has no customer", inv.ID)
	}
	if len(inv.Items) == 0 {
		return kindf(ErrMissingRequiredField, "send invoice", "invoice %s has no line items", inv.ID)
	}
	if inv.DueDate.IsZero() {
		return kindf(ErrMissingRequiredField, "send invoice", "invoice %s has no due date", inv.ID)
	}
	if err := inv.Deduction.Validate(inv.Pricing.Deduction); err != nil {
		return err
	}
	if _, err := inv.Totals(); err != nil {
		return err
	}

	inv.Status = InvoiceSent
	inv.SentAt = timePtr(now)
	inv.UpdatedAt = now
	return nil
}

// MarkPaid records the payment. Repeating the same payment is a no-op.
func (inv *Invoice) MarkPaid(p Payment, now time.Time) error {
	if inv.Status == InvoicePaid {
		if inv.samePayment(p) {
			return nil
		}
		return kindf(ErrInvalidTransition, "mark invoice paid", "invoice %s is already paid", inv.ID)
	}
	if inv.Status != InvoiceSent && inv.Status != InvoiceOverdue {
		return kindf(ErrInvalidTransition, "mark invoice paid", "invoice %s is %s", inv.ID, inv.Status)
	}
	if p.PaidAt.IsZero() {
		return kindf(ErrMissingRequiredField, "mark invoice paid", "payment date is required")
	}
	if !p.Amount.IsPositive() {
		return kindf(ErrMissingRequiredField, "mark invoice paid", "payment amount must be positive, got %s", p.Amount)
	}
	if !p.Method.Valid() {
		return kindf(ErrMissingRequiredField, "mark invoice paid", "unknown payment method %q", p.Method)
	}

	inv.Status = InvoicePaid
	inv.PaidAt = timePtr(p.PaidAt)
	inv.PaidAmount = decimal.NewNullDecimal(p.Amount)
	inv.PaymentMethod = p.Method
	inv.UpdatedAt = now
	return nil
}

func (inv *Invoice) samePayment(p Payment) bool {
	return inv.PaidAt != nil && inv.PaidAt.Equal(p.PaidAt) &&
		inv.PaidAmount.Valid && inv.PaidAmount.Decimal.Equal(p.Amount) &&
		inv.PaymentMethod == p.Method
}

// MarkOverdue stamps the overdue label. No timestamp changes.
func (inv *Invoice) MarkOverdue(now time.Time) error {
	switch inv.Status {
	case InvoiceOverdue:
		return nil
	case InvoiceSent:
	default:
		return kindf(ErrInvalidTransition, "mark invoice overdue", "invoice %s is %s", inv.ID, inv.Status)
	}
	if !IsOverdue(inv.Status, inv.DueDate, now) {
		return kindf(ErrInvalidTransition, "mark invoice overdue", "invoice %s is due %s", inv.ID, inv.DueDate.Format(time.DateOnly))
	}
	inv.Status = InvoiceOverdue
	inv.UpdatedAt = now
	return nil
}

// Cancel is irreversible and only allowed before payment.
func (inv *Invoice) Cancel(now time.Time) error {
	switch inv.Status {
	case InvoiceCancelled:
		return nil
	case InvoiceDraft, InvoiceSent:
	default:
		return kindf(ErrInvalidTransition, "cancel invoice", "invoice %s is %s", inv.ID, inv.Status)
	}
	inv.Status = InvoiceCancelled
	inv.CancelledAt = timePtr(now)
	inv.UpdatedAt = now
	return nil
}

// RecordReminder bumps the reminder counters. It never touches the status.
func (inv *Invoice) RecordReminder(now time.Time, cooldown time.Duration) error {
	if !ReminderEligible(inv, now, cooldown) {
		return kindf(ErrInvalidTransition, "record reminder", "invoice %s is not eligible for a reminder", inv.ID)
	}
	inv.ReminderCount++
	inv.ReminderSentAt = timePtr(now)
	inv.UpdatedAt = now
	return nil
}

// AttachExternalRef stores the accounting system reference of a paid invoice.
func (inv *Invoice) AttachExternalRef(ref string, now time.Time) error {
	if inv.Status != InvoicePaid {
		return kindf(ErrInvalidTransition, "attach external ref", "invoice %s is %s", inv.ID, inv.Status)
	}
	if strings.TrimSpace(ref) == "" {
		return kindf(ErrMissingRequiredField, "attach external ref", "reference is required")
	}
	inv.ExternalRef = ref
	inv.UpdatedAt = now
	return nil
}

func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	out.Items = cloneItems(inv.Items)
	out.SentAt = cloneTime(inv.SentAt)
	out.PaidAt = cloneTime(inv.PaidAt)
	out.CancelledAt = cloneTime(inv.CancelledAt)
	out.ReminderSentAt = cloneTime(inv.ReminderSentAt)
	return &out
}
