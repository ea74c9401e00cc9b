package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

type InvoiceUseCase struct {
	invoices ports.InvoiceRepository
	quotes   ports.QuoteRepository
	events   ports.EventPublisher
	clock    ports.Clock
	observer ports.TransitionObserver
	profile  domain.BusinessProfile
	logger   *slog.Logger
}

func NewInvoiceUseCase(
	invoices ports.InvoiceRepository,
	quotes ports.QuoteRepository,
	events ports.EventPublisher,
	clock ports.Clock,
	observer ports.TransitionObserver,
	profile domain.BusinessProfile,
	logger *slog.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		invoices: invoices,
		quotes:   quotes,
		events:   events,
		clock:    clock,
		observer: observerOrNop(observer),
		profile:  profile,
		logger:   loggerOrDefault(logger),
	}
}

func (uc *InvoiceUseCase) CreateDraft(ctx context.Context, businessID string, in domain.DocumentInput, dueDate *time.Time) (*domain.InvoiceView, error) {
	if err := requireBusiness("create invoice", businessID); err != nil {
		return nil, err
	}
	in.Items = withItemIDs(in.Items)
	items, pricing, err := uc.profile.Price(in)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	inv, err := domain.NewInvoice(uuid.NewString(), businessID, in.CustomerID, items, pricing, in.Details, uc.profile.InvoiceDueDate(dueDate, now), now)
	if err != nil {
		return nil, err
	}
	return uc.create(ctx, inv, now)
}

// CreateFromQuote derives a draft invoice from an accepted quote of the same business.
func (uc *InvoiceUseCase) CreateFromQuote(ctx context.Context, businessID, quoteID string, dueDate *time.Time) (*domain.InvoiceView, error) {
	if err := requireBusiness("invoice from quote", businessID); err != nil {
		return nil, err
	}
	q, err := uc.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if err := checkOwner(domain.DocumentQuote, q.ID, q.BusinessID, businessID); err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	inv, err := domain.InvoiceFromQuote(uuid.NewString(), q, uc.profile.InvoiceDueDate(dueDate, now), now)
	if err != nil {
		return nil, err
	}
	return uc.create(ctx, inv, now)
}

func (uc *InvoiceUseCase) create(ctx context.Context, inv *domain.Invoice, now time.Time) (*domain.InvoiceView, error) {
	if err := uc.invoices.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	uc.observer.ObserveTransition(domain.DocumentInvoice, "", string(inv.Status))
	return domain.NewInvoiceView(inv, now, uc.profile.ReminderCooldown)
}

func (uc *InvoiceUseCase) Get(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error) {
	inv, err := uc.load(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}
	return domain.NewInvoiceView(inv, uc.clock.Now().UTC(), uc.profile.ReminderCooldown)
}

func (uc *InvoiceUseCase) Send(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error) {
	var event *domain.DocumentEvent
	view, err := uc.transition(ctx, businessID, invoiceID, "send invoice", func(inv *domain.Invoice, now time.Time) error {
		wasDraft := inv.Status == domain.InvoiceDraft
		if err := inv.Send(now); err != nil {
			return err
		}
		if wasDraft {
			ev := newEvent(domain.EventDocumentSent, domain.DocumentInvoice, inv.ID, inv.BusinessID, inv.CustomerID, "", now)
			event = &ev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if event != nil {
		publishEvent(ctx, uc.logger, uc.events, *event)
	}
	return view, nil
}

func (uc *InvoiceUseCase) MarkPaid(ctx context.Context, businessID, invoiceID string, payment domain.Payment) (*domain.InvoiceView, error) {
	var event *domain.DocumentEvent
	view, err := uc.transition(ctx, businessID, invoiceID, "mark invoice paid", func(inv *domain.Invoice, now time.Time) error {
		wasPaid := inv.Status == domain.InvoicePaid
		if err := inv.MarkPaid(payment, now); err != nil {
			return err
		}
		if !wasPaid {
			ev := newEvent(domain.EventInvoicePaid, domain.DocumentInvoice, inv.ID, inv.BusinessID, inv.CustomerID, "", now)
			event = &ev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if event != nil {
		publishEvent(ctx, uc.logger, uc.events, *event)
	}
	return view, nil
}

func (uc *InvoiceUseCase) Cancel(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error) {
	return uc.transition(ctx, businessID, invoiceID, "cancel invoice", func(inv *domain.Invoice, now time.Time) error {
		return inv.Cancel(now)
	})
}

func (uc *InvoiceUseCase) MarkOverdue(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error) {
	return uc.transition(ctx, businessID, invoiceID, "mark invoice overdue", func(inv *domain.Invoice, now time.Time) error {
		return inv.MarkOverdue(now)
	})
}

// SendReminder records the reminder and hands it to the delivery worker.
func (uc *InvoiceUseCase) SendReminder(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error) {
	var event domain.DocumentEvent
	view, err := uc.transition(ctx, businessID, invoiceID, "send reminder", func(inv *domain.Invoice, now time.Time) error {
		if err := inv.RecordReminder(now, uc.profile.ReminderCooldown); err != nil {
			return err
		}
		event = newEvent(domain.EventInvoiceReminder, domain.DocumentInvoice, inv.ID, inv.BusinessID, inv.CustomerID, "", now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, uc.logger, uc.events, event)
	return view, nil
}

// transition applies mutate to a copy of the stored invoice and writes it back
// with a version check. Unchanged documents are not written.
func (uc *InvoiceUseCase) transition(
	ctx context.Context,
	businessID, invoiceID, operation string,
	mutate func(inv *domain.Invoice, now time.Time) error,
) (*domain.InvoiceView, error) {
	inv, err := uc.load(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()

	next := inv.Clone()
	if err := mutate(next, now); err != nil {
		return nil, err
	}
	if reflect.DeepEqual(next, inv) {
		return domain.NewInvoiceView(inv, now, uc.profile.ReminderCooldown)
	}
	if err := uc.invoices.UpdateInvoice(ctx, next); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if next.Status != inv.Status {
		uc.observer.ObserveTransition(domain.DocumentInvoice, string(inv.Status), string(next.Status))
	}
	uc.logger.Info("invoice_updated",
		"operation", operation,
		"invoice_id", next.ID,
		"business_id", next.BusinessID,
		"status", next.Status,
	)
	return domain.NewInvoiceView(next, now, uc.profile.ReminderCooldown)
}

func (uc *InvoiceUseCase) load(ctx context.Context, businessID, invoiceID string) (*domain.Invoice, error) {
	if err := requireBusiness("load invoice", businessID); err != nil {
		return nil, err
	}
	inv, err := uc.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := checkOwner(domain.DocumentInvoice, inv.ID, inv.BusinessID, businessID); err != nil {
		return nil, err
	}
	return inv, nil
}
