package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

// AccountingSyncUseCase turns paid invoices into ledger workbooks. The only
// write back into the invoice is its external reference.
type AccountingSyncUseCase struct {
	invoices ports.InvoiceRepository
	exporter ports.LedgerExporter
	storage  ports.ObjectStorage
	clock    ports.Clock
	logger   *slog.Logger
}

func NewAccountingSyncUseCase(
	invoices ports.InvoiceRepository,
	exporter ports.LedgerExporter,
	storage ports.ObjectStorage,
	clock ports.Clock,
	logger *slog.Logger,
) *AccountingSyncUseCase {
	return &AccountingSyncUseCase{
		invoices: invoices,
		exporter: exporter,
		storage:  storage,
		clock:    clock,
		logger:   loggerOrDefault(logger),
	}
}

func (uc *AccountingSyncUseCase) HandleEvent(ctx context.Context, event domain.DocumentEvent) error {
	return retryOnConflict(func() error {
		return uc.sync(ctx, event.DocumentID)
	})
}

func (uc *AccountingSyncUseCase) sync(ctx context.Context, invoiceID string) error {
	inv, err := uc.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("get invoice: %w", err)
	}
	if inv.ExternalRef != "" {
		uc.logger.Info("ledger_already_synced", "invoice_id", inv.ID, "external_ref", inv.ExternalRef)
		return nil
	}

	entry, err := domain.NewLedgerEntry(inv)
	if err != nil {
		return err
	}
	payload, err := uc.exporter.Export(entry)
	if err != nil {
		return fmt.Errorf("export ledger entry: %w", err)
	}
	key := fmt.Sprintf("ledger/%s/%s%s", inv.BusinessID, inv.ID, uc.exporter.Extension())
	if err := uc.storage.Save(ctx, key, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("store ledger entry: %w", err)
	}

	next := inv.Clone()
	if err := next.AttachExternalRef(key, uc.clock.Now().UTC()); err != nil {
		return err
	}
	if err := uc.invoices.UpdateInvoice(ctx, next); err != nil {
		return fmt.Errorf("attach external ref: %w", err)
	}
	uc.logger.Info("ledger_synced", "invoice_id", next.ID, "business_id", next.BusinessID, "external_ref", key)
	return nil
}
