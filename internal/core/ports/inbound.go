package ports

import (
	"context"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// QuoteService is the business-side contract for quotes. Every call names the
// acting business; documents of another business are forbidden.
type QuoteService interface {
	CreateDraft(ctx context.Context, businessID string, in domain.DocumentInput, validUntil *time.Time) (*domain.QuoteView, error)
	Get(ctx context.Context, businessID, quoteID string) (*domain.QuoteView, error)
	ReplaceItems(ctx context.Context, businessID, quoteID string, in domain.DocumentInput) (*domain.QuoteView, error)
	Send(ctx context.Context, businessID, quoteID string) (*domain.SentQuote, error)
	IssueToken(ctx context.Context, businessID, quoteID string) (*domain.SigningLink, error)
}

// InvoiceService is the business-side contract for invoices.
type InvoiceService interface {
	CreateDraft(ctx context.Context, businessID string, in domain.DocumentInput, dueDate *time.Time) (*domain.InvoiceView, error)
	CreateFromQuote(ctx context.Context, businessID, quoteID string, dueDate *time.Time) (*domain.InvoiceView, error)
	Get(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error)
	Send(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error)
	MarkPaid(ctx context.Context, businessID, invoiceID string, payment domain.Payment) (*domain.InvoiceView, error)
	Cancel(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error)
	MarkOverdue(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error)
	SendReminder(ctx context.Context, businessID, invoiceID string) (*domain.InvoiceView, error)
}

// SigningService is the customer-facing contract. The token is the only credential.
type SigningService interface {
	Resolve(ctx context.Context, token string) (*domain.QuoteView, error)
	SubmitSignature(ctx context.Context, token, signerName string, image []byte) (*domain.QuoteView, error)
	Decline(ctx context.Context, token, reason string) (*domain.QuoteView, error)
}

// Calculator exposes the pure totals computation with profile defaults applied.
type Calculator interface {
	Calculate(in domain.DocumentInput) (domain.Totals, error)
}

// DocumentEventHandler reacts to a committed lifecycle event in the worker.
type DocumentEventHandler interface {
	HandleEvent(ctx context.Context, event domain.DocumentEvent) error
}
