package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

// SigningLinks builds the public signing URL and the token lifetime.
type SigningLinks struct {
	BaseURL string
	TTL     time.Duration
}

func (l SigningLinks) URL(token string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/quote/" + token
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(domain.DocumentKind, string, string) {}
func (nopObserver) ObserveSignature(string)                               {}

func observerOrNop(o ports.TransitionObserver) ports.TransitionObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func requireBusiness(operation, businessID string) error {
	if strings.TrimSpace(businessID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("business id is required"))
	}
	return nil
}

func checkOwner(kind domain.DocumentKind, id, owner, businessID string) error {
	if owner != businessID {
		return domain.WrapError(domain.ErrForbidden, "check owner", fmt.Errorf("%s %s belongs to another business", kind, id))
	}
	return nil
}

func withItemIDs(items []domain.LineItemInput) []domain.LineItemInput {
	out := make([]domain.LineItemInput, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			item.ID = uuid.NewString()
		}
		out[i] = item
	}
	return out
}

func newEvent(eventType domain.EventType, kind domain.DocumentKind, id, businessID, customerID, link string, now time.Time) domain.DocumentEvent {
	return domain.DocumentEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		DocumentKind: kind,
		DocumentID:   id,
		BusinessID:   businessID,
		CustomerID:   customerID,
		Link:         link,
		OccurredAt:   now,
	}
}

// publishEvent never fails the caller: the transition is already committed.
func publishEvent(ctx context.Context, logger *slog.Logger, events ports.EventPublisher, event domain.DocumentEvent) {
	if events == nil {
		return
	}
	if err := events.PublishEvent(ctx, event); err != nil {
		logger.Warn("event_publish_failed",
			"event_type", event.Type,
			"document_kind", event.DocumentKind,
			"document_id", event.DocumentID,
			"error", err,
		)
	}
}

// expireQuoteIfDue persists a lazy expiry. When another writer got there first
// the stored quote is returned instead.
func expireQuoteIfDue(ctx context.Context, repo ports.QuoteRepository, observer ports.TransitionObserver, q *domain.Quote, now time.Time) (*domain.Quote, error) {
	from := q.Status
	next := q.Clone()
	if !next.ExpireIfDue(now) {
		return q, nil
	}
	if err := repo.UpdateQuote(ctx, next); err != nil {
		if !domain.IsKind(err, domain.ErrConcurrentUpdate) {
			return nil, fmt.Errorf("expire quote: %w", err)
		}
		reloaded, getErr := repo.GetQuote(ctx, q.ID)
		if getErr != nil {
			return nil, fmt.Errorf("reload quote: %w", getErr)
		}
		return reloaded, nil
	}
	observer.ObserveTransition(domain.DocumentQuote, string(from), string(next.Status))
	return next, nil
}
