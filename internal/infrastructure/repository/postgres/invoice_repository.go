package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, business_id, customer_id, COALESCE(quote_id, ''), items, discount_percent, vat_rate,
	deduction_type, personal_number, property_designation, due_date, status, sent_at, paid_at, cancelled_at,
	reminder_sent_at, reminder_count, paid_amount, payment_method, external_ref, version, created_at, updated_at`

func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	items, err := marshalItems(inv.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO invoices (
	id, business_id, customer_id, quote_id, items, discount_percent, vat_rate, deduction_type, personal_number,
	property_designation, due_date, status, sent_at, paid_at, cancelled_at, reminder_sent_at, reminder_count,
	paid_amount, payment_method, external_ref, version, created_at, updated_at
) VALUES ($1,$2,$3,NULLIF($4, ''),$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
`,
		inv.ID, inv.BusinessID, inv.CustomerID, inv.QuoteID, items, inv.Pricing.DiscountPercent, inv.Pricing.VATRate,
		string(inv.Pricing.Deduction), inv.Deduction.PersonalNumber, inv.Deduction.PropertyDesignation, inv.DueDate,
		string(inv.Status), inv.SentAt, inv.PaidAt, inv.CancelledAt, inv.ReminderSentAt, inv.ReminderCount,
		inv.PaidAmount, string(inv.PaymentMethod), inv.ExternalRef, inv.Version, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrInvalidInput, "create invoice", fmt.Errorf("invoice %s already exists", inv.ID))
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get invoice", fmt.Errorf("invoice %s", id))
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) UpdateInvoice(ctx context.Context, inv *domain.Invoice) error {
	items, err := marshalItems(inv.Items)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET items = $3, discount_percent = $4, vat_rate = $5, deduction_type = $6, personal_number = $7,
	property_designation = $8, due_date = $9, status = $10, sent_at = $11, paid_at = $12, cancelled_at = $13,
	reminder_sent_at = $14, reminder_count = $15, paid_amount = $16, payment_method = $17, external_ref = $18,
	updated_at = $19, version = version + 1
WHERE id = $1 AND version = $2
`,
		inv.ID, inv.Version, items, inv.Pricing.DiscountPercent, inv.Pricing.VATRate, string(inv.Pricing.Deduction),
		inv.Deduction.PersonalNumber, inv.Deduction.PropertyDesignation, inv.DueDate, string(inv.Status),
		inv.SentAt, inv.PaidAt, inv.CancelledAt, inv.ReminderSentAt, inv.ReminderCount,
		inv.PaidAmount, string(inv.PaymentMethod), inv.ExternalRef, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice rows affected: %w", err)
	}
	if rows == 0 {
		return versionConflict(ctx, r.db, "invoices", "update invoice", inv.ID, inv.Version)
	}
	inv.Version++
	return nil
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var itemsRaw []byte
	var deduction, status, method string
	err := row.Scan(
		&inv.ID, &inv.BusinessID, &inv.CustomerID, &inv.QuoteID, &itemsRaw, &inv.Pricing.DiscountPercent,
		&inv.Pricing.VATRate, &deduction, &inv.Deduction.PersonalNumber, &inv.Deduction.PropertyDesignation,
		&inv.DueDate, &status, &inv.SentAt, &inv.PaidAt, &inv.CancelledAt, &inv.ReminderSentAt, &inv.ReminderCount,
		&inv.PaidAmount, &method, &inv.ExternalRef, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Items, err = unmarshalItems(itemsRaw)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	inv.Pricing.Deduction = domain.DeductionType(deduction)
	inv.Status = domain.InvoiceStatus(status)
	inv.PaymentMethod = domain.PaymentMethod(method)
	return &inv, nil
}
