package domain

import (
	"strings"
	"time"
)

type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteOpened   QuoteStatus = "opened"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteDeclined QuoteStatus = "declined"
	QuoteExpired  QuoteStatus = "expired"
)

func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteAccepted || s == QuoteDeclined || s == QuoteExpired
}

// awaitsCustomer reports whether the customer can still act on the quote.
func (s QuoteStatus) awaitsCustomer() bool {
	return s == QuoteSent || s == QuoteOpened
}

// DeductionDetails identifies the customer and property for a ROT/RUT claim.
type DeductionDetails struct {
	PersonalNumber      string `json:"personal_number,omitempty"`
	PropertyDesignation string `json:"property_designation,omitempty"`
}

// Validate checks the identifiers the tax agency needs for the given scheme.
func (d DeductionDetails) Validate(t DeductionType) error {
	if t == DeductionNone {
		return nil
	}
	if strings.TrimSpace(d.PersonalNumber) == "" {
		return kindf(ErrMissingRequiredField, "validate deduction", "%s deduction requires a personal identity number", t)
	}
	if t == DeductionROT && strings.TrimSpace(d.PropertyDesignation) == "" {
		return kindf(ErrMissingRequiredField, "validate deduction", "rot deduction requires a property designation")
	}
	return nil
}

type Quote struct {
	ID         string           `json:"id"`
	BusinessID string           `json:"business_id"`
	CustomerID string           `json:"customer_id"`
	Items      []LineItem       `json:"items"`
	Pricing    Pricing          `json:"pricing"`
	Deduction  DeductionDetails `json:"deduction"`
	ValidUntil time.Time        `json:"valid_until"`
	Status     QuoteStatus      `json:"status"`

	SentAt     *time.Time `json:"sent_at,omitempty"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`

	SignerName    string `json:"signer_name,omitempty"`
	SignatureRef  string `json:"signature_ref,omitempty"`
	DeclineReason string `json:"decline_reason,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewQuote creates a draft. Items and pricing must already be calculable.
func NewQuote(id, businessID, customerID string, items []LineItem, pricing Pricing, deduction DeductionDetails, validUntil, now time.Time) (*Quote, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, kindf(ErrMissingRequiredField, "new quote", "business id is required")
	}
	if _, err := Calculate(items, pricing); err != nil {
		return nil, err
	}
	return &Quote{
		ID:         id,
		BusinessID: businessID,
		CustomerID: customerID,
		Items:      cloneItems(items),
		Pricing:    pricing,
		Deduction:  deduction,
		ValidUntil: DateOf(validUntil),
		Status:     QuoteDraft,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (q *Quote) Totals() (Totals, error) {
	return Calculate(q.Items, q.Pricing)
}

// IsPastValidity reports whether a quote still awaiting the customer has outlived validUntil.
func (q *Quote) IsPastValidity(now time.Time) bool {
	return q.Status.awaitsCustomer() && afterDate(now, q.ValidUntil)
}

// ReplaceItems edits the priced content. Only drafts are editable.
func (q *Quote) ReplaceItems(items []LineItem, pricing Pricing, now time.Time) error {
	if q.Status != QuoteDraft {
		return kindf(ErrInvalidTransition, "replace quote items", "quote %s is %s, only drafts are editable", q.ID, q.Status)
	}
	if _, err := Calculate(items, pricing); err != nil {
		return err
	}
	q.Items = cloneItems(items)
	q.Pricing = pricing
	q.UpdatedAt = now
	return nil
}

// Send moves a draft to sent. Sending a quote that is already sent or opened
// is a no-op.
func (q *Quote) Send(now time.Time) error {
	switch q.Status {
	case QuoteSent, QuoteOpened:
		return nil
	case QuoteDraft:
	default:
		return kindf(ErrInvalidTransition, "send quote", "quote %s is %s", q.ID, q.Status)
	}
	if strings.TrimSpace(q.CustomerID) == "" {
		return kindf(ErrMissingRequiredField, "send quote", "quote %s has no customer", q.ID)
	}
	if len(q.Items) == 0 {
		return kindf(ErrMissingRequiredField, "send quote", "quote %s has no line items", q.ID)
	}
	if q.ValidUntil.IsZero() {
		return kindf(ErrMissingRequiredField, "send quote", "quote %s has no validity date", q.ID)
	}
	if err := q.Deduction.Validate(q.Pricing.Deduction); err != nil {
		return err
	}
	if _, err := q.Totals(); err != nil {
		return err
	}
	if afterDate(now, q.ValidUntil) {
		return kindf(ErrExpiredDocument, "send quote", "quote %s was valid until %s", q.ID, q.ValidUntil.Format(time.DateOnly))
	}

	q.Status = QuoteSent
	q.SentAt = timePtr(now)
	q.UpdatedAt = now
	return nil
}

// MarkOpened records the first time the customer opened the signing link.
func (q *Quote) MarkOpened(now time.Time) error {
	if err := q.checkCustomerActionable("open quote", now); err != nil {
		return err
	}
	if q.Status == QuoteOpened {
		return nil
	}
	q.Status = QuoteOpened
	if q.OpenedAt == nil {
		q.OpenedAt = timePtr(now)
	}
	q.UpdatedAt = now
	return nil
}

// Accept records the customer's signature. Acceptance and signing are one event.
func (q *Quote) Accept(signerName, signatureRef string, now time.Time) error {
	if err := q.CheckSignable(now); err != nil {
		return err
	}
	name := strings.TrimSpace(signerName)
	if name == "" {
		return kindf(ErrMissingRequiredField, "accept quote", "signer name is required")
	}
	if strings.TrimSpace(signatureRef) == "" {
		return kindf(ErrMissingRequiredField, "accept quote", "signature is required")
	}

	q.Status = QuoteAccepted
	q.AcceptedAt = timePtr(now)
	q.SignedAt = timePtr(now)
	q.SignerName = name
	q.SignatureRef = signatureRef
	q.UpdatedAt = now
	return nil
}

// CheckSignable reports why the quote cannot take a signature right now, if anything.
func (q *Quote) CheckSignable(now time.Time) error {
	if q.Status == QuoteAccepted {
		return kindf(ErrAlreadyAccepted, "accept quote", "quote %s was signed by %s", q.ID, q.SignerName)
	}
	return q.checkCustomerActionable("accept quote", now)
}

// Decline records the customer's refusal. Declining twice is a no-op.
func (q *Quote) Decline(reason string, now time.Time) error {
	if q.Status == QuoteDeclined {
		return nil
	}
	if err := q.checkCustomerActionable("decline quote", now); err != nil {
		return err
	}
	q.Status = QuoteDeclined
	q.DeclinedAt = timePtr(now)
	q.DeclineReason = strings.TrimSpace(reason)
	q.UpdatedAt = now
	return nil
}

// ExpireIfDue marks a sent or opened quote expired once validUntil has passed.
// It reports whether the quote changed.
func (q *Quote) ExpireIfDue(now time.Time) bool {
	if !q.IsPastValidity(now) {
		return false
	}
	q.Status = QuoteExpired
	q.UpdatedAt = now
	return true
}

func (q *Quote) checkCustomerActionable(operation string, now time.Time) error {
	if q.Status == QuoteExpired || q.IsPastValidity(now) {
		return kindf(ErrExpiredDocument, operation, "quote %s was valid until %s", q.ID, q.ValidUntil.Format(time.DateOnly))
	}
	if !q.Status.awaitsCustomer() {
		return kindf(ErrInvalidTransition, operation, "quote %s is %s", q.ID, q.Status)
	}
	return nil
}

// Clone returns a deep copy.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	out := *q
	out.Items = cloneItems(q.Items)
	out.SentAt = cloneTime(q.SentAt)
	out.OpenedAt = cloneTime(q.OpenedAt)
	out.AcceptedAt = cloneTime(q.AcceptedAt)
	out.DeclinedAt = cloneTime(q.DeclinedAt)
	out.SignedAt = cloneTime(q.SignedAt)
	return &out
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
