package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

// maxCommitAttempts bounds retries when the quote was written concurrently
// (usually the customer's own first open) between read and commit.
const maxCommitAttempts = 3

type SigningUseCase struct {
	quotes    ports.QuoteRepository
	tokens    ports.SigningTokenRepository
	storage   ports.ObjectStorage
	inspector ports.SignatureInspector
	events    ports.EventPublisher
	clock     ports.Clock
	observer  ports.TransitionObserver
	logger    *slog.Logger
}

func NewSigningUseCase(
	quotes ports.QuoteRepository,
	tokens ports.SigningTokenRepository,
	storage ports.ObjectStorage,
	inspector ports.SignatureInspector,
	events ports.EventPublisher,
	clock ports.Clock,
	observer ports.TransitionObserver,
	logger *slog.Logger,
) *SigningUseCase {
	return &SigningUseCase{
		quotes:    quotes,
		tokens:    tokens,
		storage:   storage,
		inspector: inspector,
		events:    events,
		clock:     clock,
		observer:  observerOrNop(observer),
		logger:    loggerOrDefault(logger),
	}
}

// Resolve returns the quote behind a token. Signed and declined quotes stay
// readable with any token. The first read of a sent quote through its current
// token marks it opened; a replaced token only reads.
func (uc *SigningUseCase) Resolve(ctx context.Context, token string) (*domain.QuoteView, error) {
	tok, q, err := uc.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()
	q, err = expireQuoteIfDue(ctx, uc.quotes, uc.observer, q, now)
	if err != nil {
		return nil, err
	}

	switch q.Status {
	case domain.QuoteExpired:
		return nil, expiredQuote("resolve token", q)
	case domain.QuoteAccepted, domain.QuoteDeclined:
		return domain.NewQuoteView(q)
	}
	if tok.IsExpired(now) {
		return nil, domain.WrapError(domain.ErrTokenExpired, "resolve token", fmt.Errorf("token for quote %s expired at %s", q.ID, tok.ExpiresAt.Format(time.RFC3339)))
	}
	if q.Status != domain.QuoteSent || tok.SupersededAt != nil {
		return domain.NewQuoteView(q)
	}

	next := q.Clone()
	if err := next.MarkOpened(now); err != nil {
		return nil, err
	}
	if err := uc.quotes.UpdateQuote(ctx, next); err != nil {
		if !domain.IsKind(err, domain.ErrConcurrentUpdate) {
			return nil, fmt.Errorf("mark quote opened: %w", err)
		}
		reloaded, getErr := uc.quotes.GetQuote(ctx, q.ID)
		if getErr != nil {
			return nil, fmt.Errorf("reload quote: %w", getErr)
		}
		return domain.NewQuoteView(reloaded)
	}
	uc.observer.ObserveTransition(domain.DocumentQuote, string(q.Status), string(next.Status))
	uc.logger.Info("quote_opened", "quote_id", next.ID, "business_id", next.BusinessID)
	return domain.NewQuoteView(next)
}

// SubmitSignature accepts the quote on behalf of the customer. The signature
// artifact is stored before the commit; a losing racer leaves at most an
// unreferenced, content-addressed file behind.
func (uc *SigningUseCase) SubmitSignature(ctx context.Context, token, signerName string, image []byte) (*domain.QuoteView, error) {
	var view *domain.QuoteView
	err := retryOnConflict(func() error {
		v, err := uc.sign(ctx, token, signerName, image)
		view = v
		return err
	})
	uc.observer.ObserveSignature(signatureOutcome(err))
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (uc *SigningUseCase) sign(ctx context.Context, token, signerName string, image []byte) (*domain.QuoteView, error) {
	tok, q, err := uc.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()
	q, err = expireQuoteIfDue(ctx, uc.quotes, uc.observer, q, now)
	if err != nil {
		return nil, err
	}
	if err := q.CheckSignable(now); err != nil {
		return nil, err
	}
	if err := tok.CheckWritable(now); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(signerName)
	if name == "" {
		return nil, domain.WrapError(domain.ErrMissingRequiredField, "submit signature", errors.New("signer name is required"))
	}

	artifact, err := uc.inspector.Normalize(image)
	if err != nil {
		return nil, err
	}
	ref := signatureKey(q.ID, artifact)
	if err := uc.storage.Save(ctx, ref, bytes.NewReader(artifact)); err != nil {
		return nil, fmt.Errorf("store signature: %w", err)
	}

	next := q.Clone()
	if err := next.Accept(name, ref, now); err != nil {
		return nil, err
	}
	if err := uc.tokens.ConsumeToken(ctx, token, now, next); err != nil {
		return nil, fmt.Errorf("commit signature: %w", err)
	}
	uc.observer.ObserveTransition(domain.DocumentQuote, string(q.Status), string(next.Status))
	uc.logger.Info("quote_signed", "quote_id", next.ID, "business_id", next.BusinessID, "signature_ref", ref)

	publishEvent(ctx, uc.logger, uc.events, newEvent(domain.EventQuoteSigned, domain.DocumentQuote, next.ID, next.BusinessID, next.CustomerID, "", now))
	return domain.NewQuoteView(next)
}

// Decline records the customer's refusal and uses up the token. Declining an
// already declined quote returns its view.
func (uc *SigningUseCase) Decline(ctx context.Context, token, reason string) (*domain.QuoteView, error) {
	var view *domain.QuoteView
	err := retryOnConflict(func() error {
		v, err := uc.decline(ctx, token, reason)
		view = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (uc *SigningUseCase) decline(ctx context.Context, token, reason string) (*domain.QuoteView, error) {
	tok, q, err := uc.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now().UTC()
	q, err = expireQuoteIfDue(ctx, uc.quotes, uc.observer, q, now)
	if err != nil {
		return nil, err
	}
	if q.Status == domain.QuoteDeclined {
		return domain.NewQuoteView(q)
	}

	next := q.Clone()
	if err := next.Decline(reason, now); err != nil {
		return nil, err
	}
	if err := tok.CheckWritable(now); err != nil {
		return nil, err
	}
	if err := uc.tokens.ConsumeToken(ctx, token, now, next); err != nil {
		return nil, fmt.Errorf("commit decline: %w", err)
	}
	uc.observer.ObserveTransition(domain.DocumentQuote, string(q.Status), string(next.Status))
	uc.logger.Info("quote_declined", "quote_id", next.ID, "business_id", next.BusinessID)

	publishEvent(ctx, uc.logger, uc.events, newEvent(domain.EventQuoteDeclined, domain.DocumentQuote, next.ID, next.BusinessID, next.CustomerID, "", now))
	return domain.NewQuoteView(next)
}

func (uc *SigningUseCase) lookup(ctx context.Context, token string) (*domain.SigningToken, *domain.Quote, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, domain.WrapError(domain.ErrTokenNotFound, "lookup token", errors.New("empty token"))
	}
	tok, err := uc.tokens.GetToken(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("get signing token: %w", err)
	}
	q, err := uc.quotes.GetQuote(ctx, tok.QuoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("get quote: %w", err)
	}
	if q.Status == domain.QuoteDraft {
		return nil, nil, domain.WrapError(domain.ErrTokenNotFound, "lookup token", fmt.Errorf("quote %s has not been sent", q.ID))
	}
	return tok, q, nil
}

func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		err = fn()
		if !domain.IsKind(err, domain.ErrConcurrentUpdate) {
			return err
		}
	}
	return err
}

func expiredQuote(operation string, q *domain.Quote) error {
	return domain.WrapError(domain.ErrExpiredDocument, operation, fmt.Errorf("quote %s was valid until %s", q.ID, q.ValidUntil.Format(time.DateOnly)))
}

func signatureKey(quoteID string, artifact []byte) string {
	sum := sha256.Sum256(artifact)
	return fmt.Sprintf("signatures/%s/%s.png", quoteID, hex.EncodeToString(sum[:]))
}

func signatureOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case domain.IsKind(err, domain.ErrAlreadyAccepted):
		return "already_signed"
	case domain.IsKind(err, domain.ErrTokenAlreadyConsumed):
		return "token_consumed"
	case domain.IsKind(err, domain.ErrExpiredDocument), domain.IsKind(err, domain.ErrTokenExpired):
		return "expired"
	case domain.IsKind(err, domain.ErrTokenNotFound):
		return "not_found"
	case domain.IsKind(err, domain.ErrMissingRequiredField), domain.IsKind(err, domain.ErrInvalidInput):
		return "rejected"
	default:
		return "error"
	}
}
