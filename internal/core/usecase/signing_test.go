package usecase

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

var drawn = []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

func TestResolveMarksOpenedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, token := h.sentQuote(t)

	view, err := h.signing.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if view.Quote.Status != domain.QuoteOpened || view.Quote.OpenedAt == nil {
		t.Fatalf("expected opened quote, got %+v", view.Quote)
	}
	openedAt := *view.Quote.OpenedAt

	h.clock.Set(testNow.Add(time.Hour))
	again, err := h.signing.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if !again.Quote.OpenedAt.Equal(openedAt) {
		t.Fatalf("openedAt moved from %s to %s", openedAt, again.Quote.OpenedAt)
	}
	stored, _ := h.store.GetQuote(ctx, q.ID)
	if stored.Version != q.Version+1 {
		t.Fatalf("expected exactly one write, version %d -> %d", q.Version, stored.Version)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	h := newHarness(t)
	if _, err := h.signing.Resolve(context.Background(), "nope"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if _, err := h.signing.Resolve(context.Background(), ""); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for empty token, got %v", err)
	}
}

func TestResolveAndSignAfterValidity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, token := h.sentQuote(t)

	// quote valid until yesterday, resolved today
	h.clock.Set(q.ValidUntil.AddDate(0, 0, 1).Add(10 * time.Hour))

	if _, err := h.signing.Resolve(ctx, token); !errors.Is(err, domain.ErrExpiredDocument) {
		t.Fatalf("expected ErrExpiredDocument from resolve, got %v", err)
	}
	if _, err := h.signing.SubmitSignature(ctx, token, "Anna Svensson", drawn); !errors.Is(err, domain.ErrExpiredDocument) {
		t.Fatalf("expected ErrExpiredDocument from submit, got %v", err)
	}
	stored, _ := h.store.GetQuote(ctx, q.ID)
	if stored.Status != domain.QuoteExpired {
		t.Fatalf("expected expired, got %s", stored.Status)
	}
	if h.storage.count() != 0 {
		t.Fatalf("no artifact may be stored for an expired quote")
	}
}

func TestResolveWithExpiredToken(t *testing.T) {
	h := newHarness(t)
	_, token := h.sentQuote(t)

	h.clock.Set(testNow.Add(h.signingTTL + time.Minute))
	if _, err := h.signing.Resolve(context.Background(), token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSubmitSignatureAcceptsQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, token := h.sentQuote(t)

	h.clock.Set(testNow.Add(30 * time.Minute))
	view, err := h.signing.SubmitSignature(ctx, token, " Anna Svensson ", drawn)
	if err != nil {
		t.Fatalf("SubmitSignature() error = %v", err)
	}
	if !view.AlreadySigned || view.SignerName != "Anna Svensson" {
		t.Fatalf("unexpected view %+v", view)
	}

	stored, _ := h.store.GetQuote(ctx, q.ID)
	if stored.Status != domain.QuoteAccepted || stored.SignedAt == nil || !stored.SignedAt.Equal(testNow.Add(30*time.Minute)) {
		t.Fatalf("unexpected stored quote %+v", stored)
	}
	if _, ok := h.storage.objects[stored.SignatureRef]; !ok {
		t.Fatalf("signature artifact %q not stored", stored.SignatureRef)
	}
	tok, _ := h.store.GetToken(ctx, token)
	if tok.ConsumedAt == nil {
		t.Fatalf("token should be consumed")
	}

	if got := h.events.types(); !reflect.DeepEqual(got, []domain.EventType{domain.EventDocumentSent, domain.EventQuoteSigned}) {
		t.Fatalf("unexpected events %v", got)
	}
	if h.observer.signatures[len(h.observer.signatures)-1] != "accepted" {
		t.Fatalf("expected accepted outcome, got %v", h.observer.signatures)
	}

	// a signed quote stays readable with the used token
	read, err := h.signing.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() after signing error = %v", err)
	}
	if !read.AlreadySigned || read.SignedAt == nil {
		t.Fatalf("expected already signed view, got %+v", read)
	}
}

func TestSubmitSignatureTwiceReportsAlreadySigned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, token := h.sentQuote(t)

	if _, err := h.signing.SubmitSignature(ctx, token, "Anna", drawn); err != nil {
		t.Fatalf("SubmitSignature() error = %v", err)
	}
	_, err := h.signing.SubmitSignature(ctx, token, "Anna", drawn)
	if !errors.Is(err, domain.ErrAlreadyAccepted) {
		t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
	}
}

func TestSubmitSignatureRejectsMissingInput(t *testing.T) {
	cases := []struct {
		name   string
		signer string
		image  []byte
	}{
		{name: "blank name", signer: "  ", image: drawn},
		{name: "no image", signer: "Anna", image: nil},
		{name: "blank canvas", signer: "Anna", image: make([]byte, 64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			q, token := h.sentQuote(t)

			_, err := h.signing.SubmitSignature(ctx, token, tc.signer, tc.image)
			if !errors.Is(err, domain.ErrMissingRequiredField) {
				t.Fatalf("expected ErrMissingRequiredField, got %v", err)
			}
			stored, _ := h.store.GetQuote(ctx, q.ID)
			if !reflect.DeepEqual(stored, q) {
				t.Fatalf("rejected signature changed the quote")
			}
			tok, _ := h.store.GetToken(ctx, token)
			if tok.ConsumedAt != nil {
				t.Fatalf("rejected signature consumed the token")
			}
			if h.storage.count() != 0 {
				t.Fatalf("rejected signature stored an artifact")
			}
		})
	}
}

func TestSupersededTokenCanReadButNotSign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, first := h.sentQuote(t)
	link, err := h.quotes.IssueToken(ctx, "biz-1", q.ID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	view, err := h.signing.Resolve(ctx, first)
	if err != nil {
		t.Fatalf("superseded token should still read, got %v", err)
	}
	if view.Quote.Status != domain.QuoteSent || view.Quote.OpenedAt != nil {
		t.Fatalf("superseded token opened the quote: %+v", view.Quote)
	}
	stored, _ := h.store.GetQuote(ctx, q.ID)
	if stored.Status != domain.QuoteSent || stored.Version != q.Version {
		t.Fatalf("superseded token wrote the quote: status %s version %d", stored.Status, stored.Version)
	}
	view, err = h.signing.Resolve(ctx, link.Token)
	if err != nil {
		t.Fatalf("Resolve() with current token error = %v", err)
	}
	if view.Quote.Status != domain.QuoteOpened {
		t.Fatalf("current token should open the quote, got %s", view.Quote.Status)
	}
	if _, err := h.signing.SubmitSignature(ctx, first, "Anna", drawn); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired for superseded token, got %v", err)
	}
	if _, err := h.signing.SubmitSignature(ctx, link.Token, "Anna", drawn); err != nil {
		t.Fatalf("newest token should sign, got %v", err)
	}
}

func TestConcurrentSubmissionsSucceedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, token := h.sentQuote(t)

	const callers = 12
	var accepted, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := h.signing.SubmitSignature(ctx, token, "Anna", drawn)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domain.ErrTokenAlreadyConsumed), errors.Is(err, domain.ErrAlreadyAccepted):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Load() != 1 || rejected.Load() != callers-1 {
		t.Fatalf("expected 1 accepted and %d rejected, got %d and %d", callers-1, accepted.Load(), rejected.Load())
	}
	stored, _ := h.store.GetQuote(ctx, q.ID)
	if stored.Status != domain.QuoteAccepted {
		t.Fatalf("expected accepted, got %s", stored.Status)
	}
}

func TestDeclineConsumesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, token := h.sentQuote(t)

	view, err := h.signing.Decline(ctx, token, " too expensive ")
	if err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	if view.Quote.Status != domain.QuoteDeclined || view.Quote.DeclineReason != "too expensive" {
		t.Fatalf("unexpected declined quote %+v", view.Quote)
	}
	if _, err := h.signing.Decline(ctx, token, "again"); err != nil {
		t.Fatalf("second Decline() should be a no-op, got %v", err)
	}
	if _, err := h.signing.SubmitSignature(ctx, token, "Anna", drawn); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition signing a declined quote, got %v", err)
	}
	stored, _ := h.store.GetQuote(ctx, q.ID)
	if stored.DeclineReason != "too expensive" {
		t.Fatalf("second decline changed the reason to %q", stored.DeclineReason)
	}
}

func TestDeclineSignedQuoteFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, token := h.sentQuote(t)
	if _, err := h.signing.SubmitSignature(ctx, token, "Anna", drawn); err != nil {
		t.Fatalf("SubmitSignature() error = %v", err)
	}
	if _, err := h.signing.Decline(ctx, token, ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTokenOfDraftQuoteIsUnknown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	view, err := h.quotes.CreateDraft(ctx, "biz-1", rotInput(), nil)
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}
	if err := h.store.SaveToken(ctx, domain.NewSigningToken("dangling", view.Quote.ID, testNow, time.Hour)); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if _, err := h.signing.Resolve(ctx, "dangling"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}
