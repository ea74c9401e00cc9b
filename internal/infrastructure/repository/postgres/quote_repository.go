package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

const quoteColumns = `id, business_id, customer_id, items, discount_percent, vat_rate, deduction_type,
	personal_number, property_designation, valid_until, status, sent_at, opened_at, accepted_at,
	declined_at, signed_at, signer_name, signature_ref, decline_reason, version, created_at, updated_at`

func (r *QuoteRepository) CreateQuote(ctx context.Context, q *domain.Quote) error {
	items, err := marshalItems(q.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO quotes (`+quoteColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
`,
		q.ID, q.BusinessID, q.CustomerID, items, q.Pricing.DiscountPercent, q.Pricing.VATRate, string(q.Pricing.Deduction),
		q.Deduction.PersonalNumber, q.Deduction.PropertyDesignation, q.ValidUntil, string(q.Status),
		q.SentAt, q.OpenedAt, q.AcceptedAt, q.DeclinedAt, q.SignedAt,
		q.SignerName, q.SignatureRef, q.DeclineReason, q.Version, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrInvalidInput, "create quote", fmt.Errorf("quote %s already exists", q.ID))
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (r *QuoteRepository) GetQuote(ctx context.Context, id string) (*domain.Quote, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get quote", fmt.Errorf("quote %s", id))
		}
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	return q, nil
}

func (r *QuoteRepository) UpdateQuote(ctx context.Context, q *domain.Quote) error {
	return updateQuote(ctx, r.db, q)
}

func updateQuote(ctx context.Context, db querier, q *domain.Quote) error {
	items, err := marshalItems(q.Items)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, `
UPDATE quotes
SET items = $3, discount_percent = $4, vat_rate = $5, deduction_type = $6, personal_number = $7,
	property_designation = $8, valid_until = $9, status = $10, sent_at = $11, opened_at = $12,
	accepted_at = $13, declined_at = $14, signed_at = $15, signer_name = $16, signature_ref = $17,
	decline_reason = $18, updated_at = $19, version = version + 1
WHERE id = $1 AND version = $2
`,
		q.ID, q.Version, items, q.Pricing.DiscountPercent, q.Pricing.VATRate, string(q.Pricing.Deduction),
		q.Deduction.PersonalNumber, q.Deduction.PropertyDesignation, q.ValidUntil, string(q.Status),
		q.SentAt, q.OpenedAt, q.AcceptedAt, q.DeclinedAt, q.SignedAt,
		q.SignerName, q.SignatureRef, q.DeclineReason, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote rows affected: %w", err)
	}
	if rows == 0 {
		return versionConflict(ctx, db, "quotes", "update quote", q.ID, q.Version)
	}
	q.Version++
	return nil
}

func scanQuote(row rowScanner) (*domain.Quote, error) {
	var q domain.Quote
	var itemsRaw []byte
	var deduction, status string
	err := row.Scan(
		&q.ID, &q.BusinessID, &q.CustomerID, &itemsRaw, &q.Pricing.DiscountPercent, &q.Pricing.VATRate, &deduction,
		&q.Deduction.PersonalNumber, &q.Deduction.PropertyDesignation, &q.ValidUntil, &status,
		&q.SentAt, &q.OpenedAt, &q.AcceptedAt, &q.DeclinedAt, &q.SignedAt,
		&q.SignerName, &q.SignatureRef, &q.DeclineReason, &q.Version, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Items, err = unmarshalItems(itemsRaw)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", q.ID, err)
	}
	q.Pricing.Deduction = domain.DeductionType(deduction)
	q.Status = domain.QuoteStatus(status)
	return &q, nil
}
