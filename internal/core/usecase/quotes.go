package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

type QuoteUseCase struct {
	quotes    ports.QuoteRepository
	tokens    ports.SigningTokenRepository
	events    ports.EventPublisher
	generator ports.TokenGenerator
	clock     ports.Clock
	observer  ports.TransitionObserver
	profile   domain.BusinessProfile
	links     SigningLinks
	logger    *slog.Logger
}

func NewQuoteUseCase(
	quotes ports.QuoteRepository,
	tokens ports.SigningTokenRepository,
	events ports.EventPublisher,
	generator ports.TokenGenerator,
	clock ports.Clock,
	observer ports.TransitionObserver,
	profile domain.BusinessProfile,
	links SigningLinks,
	logger *slog.Logger,
) *QuoteUseCase {
	return &QuoteUseCase{
		quotes:    quotes,
		tokens:    tokens,
		events:    events,
		generator: generator,
		clock:     clock,
		observer:  observerOrNop(observer),
		profile:   profile,
		links:     links,
		logger:    loggerOrDefault(logger),
	}
}

func (uc *QuoteUseCase) CreateDraft(ctx context.Context, businessID string, in domain.DocumentInput, validUntil *time.Time) (*domain.QuoteView, error) {
	if err := requireBusiness("create quote", businessID); err != nil {
		return nil, err
	}
	in.Items = withItemIDs(in.Items)
	items, pricing, err := uc.profile.Price(in)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	q, err := domain.NewQuote(uuid.NewString(), businessID, in.CustomerID, items, pricing, in.Details, uc.profile.QuoteDeadline(validUntil, now), now)
	if err != nil {
		return nil, err
	}
	if err := uc.quotes.CreateQuote(ctx, q); err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	uc.observer.ObserveTransition(domain.DocumentQuote, "", string(q.Status))
	return domain.NewQuoteView(q)
}

func (uc *QuoteUseCase) Get(ctx context.Context, businessID, quoteID string) (*domain.QuoteView, error) {
	q, err := uc.load(ctx, businessID, quoteID)
	if err != nil {
		return nil, err
	}
	q, err = expireQuoteIfDue(ctx, uc.quotes, uc.observer, q, uc.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return domain.NewQuoteView(q)
}

func (uc *QuoteUseCase) ReplaceItems(ctx context.Context, businessID, quoteID string, in domain.DocumentInput) (*domain.QuoteView, error) {
	q, err := uc.load(ctx, businessID, quoteID)
	if err != nil {
		return nil, err
	}
	items, pricing, err := uc.profile.Price(domain.DocumentInput{
		Items:           withItemIDs(in.Items),
		DiscountPercent: in.DiscountPercent,
		VATRate:         in.VATRate,
		Deduction:       in.Deduction,
	})
	if err != nil {
		return nil, err
	}

	next := q.Clone()
	if err := next.ReplaceItems(items, pricing, uc.clock.Now().UTC()); err != nil {
		return nil, err
	}
	if err := uc.quotes.UpdateQuote(ctx, next); err != nil {
		return nil, fmt.Errorf("update quote items: %w", err)
	}
	return domain.NewQuoteView(next)
}

// Send moves a draft to sent and attaches a fresh signing token. Sending an
// already sent quote changes nothing and issues no token.
func (uc *QuoteUseCase) Send(ctx context.Context, businessID, quoteID string) (*domain.SentQuote, error) {
	q, err := uc.load(ctx, businessID, quoteID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()
	q, err = expireQuoteIfDue(ctx, uc.quotes, uc.observer, q, now)
	if err != nil {
		return nil, err
	}
	if q.Status == domain.QuoteSent || q.Status == domain.QuoteOpened {
		view, err := domain.NewQuoteView(q)
		if err != nil {
			return nil, err
		}
		return &domain.SentQuote{View: view}, nil
	}

	next := q.Clone()
	if err := next.Send(now); err != nil {
		return nil, err
	}
	link, err := uc.issue(ctx, next.ID, now)
	if err != nil {
		return nil, err
	}
	if err := uc.quotes.UpdateQuote(ctx, next); err != nil {
		return nil, fmt.Errorf("mark quote sent: %w", err)
	}
	uc.observer.ObserveTransition(domain.DocumentQuote, string(q.Status), string(next.Status))
	uc.logger.Info("quote_sent", "quote_id", next.ID, "business_id", next.BusinessID)

	publishEvent(ctx, uc.logger, uc.events, newEvent(domain.EventDocumentSent, domain.DocumentQuote, next.ID, next.BusinessID, next.CustomerID, link.URL, now))

	view, err := domain.NewQuoteView(next)
	if err != nil {
		return nil, err
	}
	return &domain.SentQuote{View: view, Link: link}, nil
}

// IssueToken replaces the current signing link of a quote awaiting the customer.
func (uc *QuoteUseCase) IssueToken(ctx context.Context, businessID, quoteID string) (*domain.SigningLink, error) {
	q, err := uc.load(ctx, businessID, quoteID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()
	q, err = expireQuoteIfDue(ctx, uc.quotes, uc.observer, q, now)
	if err != nil {
		return nil, err
	}
	switch q.Status {
	case domain.QuoteSent, domain.QuoteOpened:
	case domain.QuoteExpired:
		return nil, expiredQuote("issue token", q)
	default:
		return nil, domain.WrapError(domain.ErrInvalidTransition, "issue token", fmt.Errorf("quote %s is %s", q.ID, q.Status))
	}

	link, err := uc.issue(ctx, q.ID, now)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("signing_token_issued", "quote_id", q.ID, "business_id", q.BusinessID, "expires_at", link.ExpiresAt)
	return link, nil
}

func (uc *QuoteUseCase) issue(ctx context.Context, quoteID string, now time.Time) (*domain.SigningLink, error) {
	raw, err := uc.generator.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate signing token: %w", err)
	}
	token := domain.NewSigningToken(raw, quoteID, now, uc.links.TTL)
	if err := uc.tokens.SaveToken(ctx, token); err != nil {
		return nil, fmt.Errorf("save signing token: %w", err)
	}
	return &domain.SigningLink{
		Token:     raw,
		URL:       uc.links.URL(raw),
		ExpiresAt: token.ExpiresAt,
	}, nil
}

func (uc *QuoteUseCase) load(ctx context.Context, businessID, quoteID string) (*domain.Quote, error) {
	if err := requireBusiness("load quote", businessID); err != nil {
		return nil, err
	}
	q, err := uc.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if err := checkOwner(domain.DocumentQuote, q.ID, q.BusinessID, businessID); err != nil {
		return nil, err
	}
	return q, nil
}
