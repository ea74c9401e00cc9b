package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessProfile carries the defaults a business applies to new documents.
// It is passed explicitly to whoever needs it; the calculator never reads it.
type BusinessProfile struct {
	HourlyRate        decimal.Decimal
	DefaultVATRate    decimal.Decimal
	ROTEnabled        bool
	RUTEnabled        bool
	QuoteValidityDays int
	PaymentTermsDays  int
	ReminderCooldown  time.Duration
}

func DefaultBusinessProfile() BusinessProfile {
	return BusinessProfile{
		HourlyRate:        decimal.NewFromInt(650),
		DefaultVATRate:    decimal.NewFromInt(25),
		ROTEnabled:        true,
		RUTEnabled:        true,
		QuoteValidityDays: 30,
		PaymentTermsDays:  30,
		ReminderCooldown:  7 * 24 * time.Hour,
	}
}

// ResolvePricing fills unset pricing fields from the profile and rejects
// deduction schemes the business has not enabled.
func (p BusinessProfile) ResolvePricing(discountPercent, vatRate *decimal.Decimal, deduction DeductionType) (Pricing, error) {
	pricing := Pricing{
		DiscountPercent: decimal.Zero,
		VATRate:         p.DefaultVATRate,
		Deduction:       deduction,
	}
	if pricing.Deduction == "" {
		pricing.Deduction = DeductionNone
	}
	if discountPercent != nil {
		pricing.DiscountPercent = *discountPercent
	}
	if vatRate != nil {
		pricing.VATRate = *vatRate
	}

	switch {
	case pricing.Deduction == DeductionROT && !p.ROTEnabled:
		return Pricing{}, kindf(ErrInvalidConfiguration, "resolve pricing", "rot deduction is disabled for this business")
	case pricing.Deduction == DeductionRUT && !p.RUTEnabled:
		return Pricing{}, kindf(ErrInvalidConfiguration, "resolve pricing", "rut deduction is disabled for this business")
	}
	if err := pricing.Validate(); err != nil {
		return Pricing{}, err
	}
	return pricing, nil
}

// LineItemInput is a line item as entered by the business. A labor item
// without a unit price is billed at the profile hourly rate.
type LineItemInput struct {
	ID          string
	Kind        ItemKind
	Description string
	Quantity    decimal.Decimal
	UnitPrice   *decimal.Decimal
}

func (p BusinessProfile) ResolveItems(inputs []LineItemInput) []LineItem {
	items := make([]LineItem, 0, len(inputs))
	for _, in := range inputs {
		item := LineItem{
			ID:          in.ID,
			Kind:        in.Kind,
			Description: in.Description,
			Quantity:    in.Quantity,
		}
		switch {
		case in.UnitPrice != nil:
			item.UnitPrice = *in.UnitPrice
		case in.Kind == ItemKindLabor:
			item.UnitPrice = p.HourlyRate
		}
		items = append(items, item)
	}
	return items
}
