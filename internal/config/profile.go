package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// profileFile mirrors business.yaml. Money and percentages are quoted strings
// so they never pass through a float.
type profileFile struct {
	HourlyRate           *string `yaml:"hourly_rate"`
	DefaultVATRate       *string `yaml:"default_vat_rate"`
	ROTEnabled           *bool   `yaml:"rot_enabled"`
	RUTEnabled           *bool   `yaml:"rut_enabled"`
	QuoteValidityDays    *int    `yaml:"quote_validity_days"`
	PaymentTermsDays     *int    `yaml:"payment_terms_days"`
	ReminderCooldownDays *int    `yaml:"reminder_cooldown_days"`
}

// LoadBusinessProfile reads the profile at path on top of the defaults. An
// empty path or a missing file yields the defaults.
func LoadBusinessProfile(path string) (domain.BusinessProfile, error) {
	profile := domain.DefaultBusinessProfile()
	if path == "" {
		return profile, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return profile, nil
		}
		return domain.BusinessProfile{}, fmt.Errorf("read business profile: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.BusinessProfile{}, domain.WrapError(domain.ErrInvalidConfiguration, "parse business profile", err)
	}
	if err := file.apply(&profile); err != nil {
		return domain.BusinessProfile{}, domain.WrapError(domain.ErrInvalidConfiguration, "parse business profile", err)
	}
	return profile, nil
}

func (f profileFile) apply(p *domain.BusinessProfile) error {
	if f.HourlyRate != nil {
		rate, err := decimal.NewFromString(*f.HourlyRate)
		if err != nil || rate.IsNegative() {
			return fmt.Errorf("hourly_rate %q", *f.HourlyRate)
		}
		p.HourlyRate = rate
	}
	if f.DefaultVATRate != nil {
		vat, err := decimal.NewFromString(*f.DefaultVATRate)
		if err != nil || vat.IsNegative() {
			return fmt.Errorf("default_vat_rate %q", *f.DefaultVATRate)
		}
		p.DefaultVATRate = vat
	}
	if f.ROTEnabled != nil {
		p.ROTEnabled = *f.ROTEnabled
	}
	if f.RUTEnabled != nil {
		p.RUTEnabled = *f.RUTEnabled
	}
	if f.QuoteValidityDays != nil {
		if *f.QuoteValidityDays <= 0 {
			return fmt.Errorf("quote_validity_days must be positive")
		}
		p.QuoteValidityDays = *f.QuoteValidityDays
	}
	if f.PaymentTermsDays != nil {
		if *f.PaymentTermsDays < 0 {
			return fmt.Errorf("payment_terms_days must not be negative")
		}
		p.PaymentTermsDays = *f.PaymentTermsDays
	}
	if f.ReminderCooldownDays != nil {
		if *f.ReminderCooldownDays < 0 {
			return fmt.Errorf("reminder_cooldown_days must not be negative")
		}
		p.ReminderCooldown = time.Duration(*f.ReminderCooldownDays) * 24 * time.Hour
	}
	return nil
}
