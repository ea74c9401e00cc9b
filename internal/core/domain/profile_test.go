package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolvePricingUsesProfileDefaults(t *testing.T) {
	profile := DefaultBusinessProfile()
	pricing, err := profile.ResolvePricing(nil, nil, "")
	if err != nil {
		t.Fatalf("ResolvePricing() error = %v", err)
	}
	if !pricing.VATRate.Equal(dec("25")) || !pricing.DiscountPercent.IsZero() || pricing.Deduction != DeductionNone {
		t.Fatalf("unexpected pricing %+v", pricing)
	}

	vat := dec("12")
	discount := dec("5")
	pricing, err = profile.ResolvePricing(&discount, &vat, DeductionRUT)
	if err != nil {
		t.Fatalf("ResolvePricing() error = %v", err)
	}
	if !pricing.VATRate.Equal(vat) || !pricing.DiscountPercent.Equal(discount) {
		t.Fatalf("explicit values were not kept: %+v", pricing)
	}
}

func TestResolvePricingRejectsDisabledScheme(t *testing.T) {
	profile := DefaultBusinessProfile()
	profile.ROTEnabled = false
	if _, err := profile.ResolvePricing(nil, nil, DeductionROT); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := profile.ResolvePricing(nil, nil, DeductionRUT); err != nil {
		t.Fatalf("rut is still enabled, got %v", err)
	}
}

func TestResolveItemsBillsLaborAtHourlyRate(t *testing.T) {
	profile := DefaultBusinessProfile()
	price := decimal.NewFromInt(120)
	items := profile.ResolveItems([]LineItemInput{
		{ID: "l1", Kind: ItemKindLabor, Quantity: dec("3")},
		{ID: "l2", Kind: ItemKindLabor, Quantity: dec("1"), UnitPrice: &price},
		{ID: "m1", Kind: ItemKindMaterial, Quantity: dec("2")},
	})
	if !items[0].UnitPrice.Equal(dec("650")) {
		t.Fatalf("expected hourly rate 650, got %s", items[0].UnitPrice)
	}
	if !items[1].UnitPrice.Equal(price) {
		t.Fatalf("expected explicit price 120, got %s", items[1].UnitPrice)
	}
	if !items[2].UnitPrice.IsZero() {
		t.Fatalf("material without price should stay zero, got %s", items[2].UnitPrice)
	}
}
