package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// QuoteRepository persists quotes with their line items. UpdateQuote writes only
// when the stored version equals q.Version and then increments q.Version;
// otherwise it returns domain.ErrConcurrentUpdate.
type QuoteRepository interface {
	CreateQuote(ctx context.Context, q *domain.Quote) error
	GetQuote(ctx context.Context, id string) (*domain.Quote, error)
	UpdateQuote(ctx context.Context, q *domain.Quote) error
}

// InvoiceRepository follows the same version contract as QuoteRepository.
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *domain.Invoice) error
}

// SigningTokenRepository stores signing tokens. Tokens are never deleted.
type SigningTokenRepository interface {
	// SaveToken stores t and supersedes every earlier unconsumed token of the same quote.
	SaveToken(ctx context.Context, t domain.SigningToken) error
	GetToken(ctx context.Context, token string) (*domain.SigningToken, error)
	// ConsumeToken marks the token consumed and writes q in one atomic step.
	// Exactly one caller wins; the others get domain.ErrTokenAlreadyConsumed.
	ConsumeToken(ctx context.Context, token string, consumedAt time.Time, q *domain.Quote) error
}

// ObjectStorage stores signature artifacts and ledger workbooks.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EventPublisher announces committed lifecycle changes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.DocumentEvent) error
}

// EventSubscriber consumes lifecycle events until ctx is done.
type EventSubscriber interface {
	SubscribeEvents(ctx context.Context, handler DocumentEventHandler) error
}

// Notifier hands a message to the SMS/e-mail delivery gateway.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) error
}

// LedgerExporter renders a ledger entry for the accounting system.
type LedgerExporter interface {
	Export(entry domain.LedgerEntry) ([]byte, error)
	Extension() string
}

// DeliveryDeduper guards against delivering the same event twice.
type DeliveryDeduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// SignatureInspector rejects empty or blank drawings and returns the artifact as PNG.
type SignatureInspector interface {
	Normalize(image []byte) ([]byte, error)
}
