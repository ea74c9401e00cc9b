package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentInput is the business-entered content of a quote or invoice draft.
// Unset pricing fields fall back to the business profile.
type DocumentInput struct {
	CustomerID      string
	Items           []LineItemInput
	DiscountPercent *decimal.Decimal
	VATRate         *decimal.Decimal
	Deduction       DeductionType
	Details         DeductionDetails
}

// Price resolves the input against the profile and checks that it is calculable.
func (p BusinessProfile) Price(in DocumentInput) ([]LineItem, Pricing, error) {
	pricing, err := p.ResolvePricing(in.DiscountPercent, in.VATRate, in.Deduction)
	if err != nil {
		return nil, Pricing{}, err
	}
	items := p.ResolveItems(in.Items)
	if _, err := Calculate(items, pricing); err != nil {
		return nil, Pricing{}, err
	}
	return items, pricing, nil
}

// QuoteDeadline returns the explicit validity date or today plus the profile validity.
func (p BusinessProfile) QuoteDeadline(explicit *time.Time, now time.Time) time.Time {
	if explicit != nil && !explicit.IsZero() {
		return DateOf(*explicit)
	}
	return DateOf(now).AddDate(0, 0, p.QuoteValidityDays)
}

// InvoiceDueDate returns the explicit due date or today plus the payment terms.
func (p BusinessProfile) InvoiceDueDate(explicit *time.Time, now time.Time) time.Time {
	if explicit != nil && !explicit.IsZero() {
		return DateOf(*explicit)
	}
	return DateOf(now).AddDate(0, 0, p.PaymentTermsDays)
}
