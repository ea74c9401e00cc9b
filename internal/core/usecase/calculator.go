package usecase

import (
	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// CalculatorUseCase prices unsaved input with the business profile defaults.
type CalculatorUseCase struct {
	profile domain.BusinessProfile
}

func NewCalculatorUseCase(profile domain.BusinessProfile) *CalculatorUseCase {
	return &CalculatorUseCase{profile: profile}
}

func (uc *CalculatorUseCase) Calculate(in domain.DocumentInput) (domain.Totals, error) {
	items, pricing, err := uc.profile.Price(in)
	if err != nil {
		return domain.Totals{}, err
	}
	return domain.Calculate(items, pricing)
}
