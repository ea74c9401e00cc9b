package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ItemKind string

const (
	ItemKindLabor    ItemKind = "labor"
	ItemKindMaterial ItemKind = "material"
	ItemKindService  ItemKind = "service"
)

func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindLabor, ItemKindMaterial, ItemKindService:
		return true
	default:
		return false
	}
}

// DeductionType selects the Swedish labor-cost deduction scheme applied to a document.
type DeductionType string

const (
	DeductionNone DeductionType = "none"
	DeductionROT  DeductionType = "rot"
	DeductionRUT  DeductionType = "rut"
)

func (t DeductionType) Valid() bool {
	switch t {
	case DeductionNone, DeductionROT, DeductionRUT:
		return true
	default:
		return false
	}
}

// ParseDeductionType accepts "", "none", "rot" and "rut" in any case.
func ParseDeductionType(raw string) (DeductionType, error) {
	t := DeductionType(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" {
		return DeductionNone, nil
	}
	if !t.Valid() {
		return "", kindf(ErrInvalidConfiguration, "parse deduction type", "unknown deduction type %q", raw)
	}
	return t, nil
}

var (
	hundred     = decimal.NewFromInt(100)
	rotPercent  = decimal.NewFromInt(30)
	rutPercent  = decimal.NewFromInt(50)
	zeroPercent = decimal.Zero
)

// DeductionPercentFor returns the share of labor cost refunded by the state.
func DeductionPercentFor(t DeductionType) decimal.Decimal {
	switch t {
	case DeductionROT:
		return rotPercent
	case DeductionRUT:
		return rutPercent
	default:
		return zeroPercent
	}
}

type LineItem struct {
	ID          string          `json:"id"`
	Kind        ItemKind        `json:"kind"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total is always derived from quantity and unit price.
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

func (li LineItem) Validate() error {
	if !li.Kind.Valid() {
		return kindf(ErrInvalidLineItem, "validate line item", "item %q: unknown kind %q", li.ID, li.Kind)
	}
	if li.Quantity.IsNegative() {
		return kindf(ErrInvalidLineItem, "validate line item", "item %q: negative quantity %s", li.ID, li.Quantity)
	}
	if li.UnitPrice.IsNegative() {
		return kindf(ErrInvalidLineItem, "validate line item", "item %q: negative unit price %s", li.ID, li.UnitPrice)
	}
	return nil
}

// VerifyStoredTotal checks a persisted total against quantity*unitPrice.
func (li LineItem) VerifyStoredTotal(stored decimal.Decimal) error {
	if !stored.Equal(li.Total()) {
		return kindf(ErrDataIntegrity, "verify line item total", "item %q: stored total %s != %s x %s", li.ID, stored, li.Quantity, li.UnitPrice)
	}
	return nil
}

// Pricing is the per-document configuration the calculator needs besides the items.
type Pricing struct {
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	Deduction       DeductionType   `json:"deduction_type"`
}

func (p Pricing) Validate() error {
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred) {
		return kindf(ErrInvalidConfiguration, "validate pricing", "discount percent %s outside [0,100]", p.DiscountPercent)
	}
	if p.VATRate.IsNegative() {
		return kindf(ErrInvalidConfiguration, "validate pricing", "negative vat rate %s", p.VATRate)
	}
	if !p.Deduction.Valid() {
		return kindf(ErrInvalidConfiguration, "validate pricing", "unknown deduction type %q", p.Deduction)
	}
	return nil
}

// Totals holds every derived monetary figure of a document, unrounded.
type Totals struct {
	LaborTotal        decimal.Decimal `json:"labor_total"`
	MaterialTotal     decimal.Decimal `json:"material_total"`
	ServiceTotal      decimal.Decimal `json:"service_total"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	AfterDiscount     decimal.Decimal `json:"after_discount"`
	VATAmount         decimal.Decimal `json:"vat_amount"`
	Total             decimal.Decimal `json:"total"`
	DeductionEligible decimal.Decimal `json:"deduction_eligible"`
	DeductionPercent  decimal.Decimal `json:"deduction_percent"`
	DeductionAmount   decimal.Decimal `json:"deduction_amount"`
	CustomerPays      decimal.Decimal `json:"customer_pays"`
}

// Calculate derives the document totals. Percentages are applied with an exact
// decimal shift, so the result carries no intermediate rounding.
func Calculate(items []LineItem, pricing Pricing) (Totals, error) {
	if err := pricing.Validate(); err != nil {
		return Totals{}, err
	}

	labor, material, service := decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return Totals{}, err
		}
		switch item.Kind {
		case ItemKindLabor:
			labor = labor.Add(item.Total())
		case ItemKindMaterial:
			material = material.Add(item.Total())
		case ItemKindService:
			service = service.Add(item.Total())
		}
	}

	subtotal := labor.Add(material).Add(service)
	discount := percentOf(subtotal, pricing.DiscountPercent)
	afterDiscount := subtotal.Sub(discount)
	vat := percentOf(afterDiscount, pricing.VATRate)
	total := afterDiscount.Add(vat)

	deductionPercent := DeductionPercentFor(pricing.Deduction)
	deduction := percentOf(labor, deductionPercent)

	return Totals{
		LaborTotal:        labor,
		MaterialTotal:     material,
		ServiceTotal:      service,
		Subtotal:          subtotal,
		DiscountAmount:    discount,
		AfterDiscount:     afterDiscount,
		VATAmount:         vat,
		Total:             total,
		DeductionEligible: labor,
		DeductionPercent:  deductionPercent,
		DeductionAmount:   deduction,
		CustomerPays:      total.Sub(deduction),
	}, nil
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Shift(-2)
}

// Rounded returns the totals rounded to whole kronor for presentation.
func (t Totals) Rounded() Totals {
	return Totals{
		LaborTotal:        roundKronor(t.LaborTotal),
		MaterialTotal:     roundKronor(t.MaterialTotal),
		ServiceTotal:      roundKronor(t.ServiceTotal),
		Subtotal:          roundKronor(t.Subtotal),
		DiscountAmount:    roundKronor(t.DiscountAmount),
		AfterDiscount:     roundKronor(t.AfterDiscount),
		VATAmount:         roundKronor(t.VATAmount),
		Total:             roundKronor(t.Total),
		DeductionEligible: roundKronor(t.DeductionEligible),
		DeductionPercent:  t.DeductionPercent,
		DeductionAmount:   roundKronor(t.DeductionAmount),
		CustomerPays:      roundKronor(t.CustomerPays),
	}
}

func roundKronor(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
