package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

var storeNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func sentQuote(t *testing.T, s *Store, id string) *domain.Quote {
	t.Helper()
	items := []domain.LineItem{{ID: "l1", Kind: domain.ItemKindLabor, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(650)}}
	pricing := domain.Pricing{DiscountPercent: decimal.Zero, VATRate: decimal.NewFromInt(25), Deduction: domain.DeductionNone}
	q, err := domain.NewQuote(id, "biz-1", "cust-1", items, pricing, domain.DeductionDetails{}, storeNow.AddDate(0, 0, 30), storeNow)
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}
	if err := q.Send(storeNow); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := s.CreateQuote(context.Background(), q); err != nil {
		t.Fatalf("CreateQuote() error = %v", err)
	}
	return q
}

func TestUpdateQuoteRejectsStaleVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	sentQuote(t, s, "q-1")

	first, _ := s.GetQuote(ctx, "q-1")
	second, _ := s.GetQuote(ctx, "q-1")

	if err := first.MarkOpened(storeNow); err != nil {
		t.Fatalf("MarkOpened() error = %v", err)
	}
	if err := s.UpdateQuote(ctx, first); err != nil {
		t.Fatalf("UpdateQuote() error = %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version 2 after update, got %d", first.Version)
	}

	if err := second.Decline("", storeNow); err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	err := s.UpdateQuote(ctx, second)
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}

	stored, _ := s.GetQuote(ctx, "q-1")
	if stored.Status != domain.QuoteOpened {
		t.Fatalf("stale write leaked into storage: %s", stored.Status)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	sentQuote(t, s, "q-1")

	q, _ := s.GetQuote(ctx, "q-1")
	q.Status = domain.QuoteDeclined
	q.Items[0].Description = "mutated"

	stored, _ := s.GetQuote(ctx, "q-1")
	if stored.Status != domain.QuoteSent || stored.Items[0].Description == "mutated" {
		t.Fatalf("caller mutation reached storage: %+v", stored)
	}
}

func TestSaveTokenSupersedesEarlierTokens(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	sentQuote(t, s, "q-1")

	if err := s.SaveToken(ctx, domain.NewSigningToken("old", "q-1", storeNow, time.Hour)); err != nil {
		t.Fatalf("SaveToken(old) error = %v", err)
	}
	if err := s.SaveToken(ctx, domain.NewSigningToken("new", "q-1", storeNow.Add(time.Minute), time.Hour)); err != nil {
		t.Fatalf("SaveToken(new) error = %v", err)
	}

	old, err := s.GetToken(ctx, "old")
	if err != nil {
		t.Fatalf("GetToken(old) error = %v", err)
	}
	if old.SupersededAt == nil {
		t.Fatalf("expected old token to be superseded")
	}
	latest, _ := s.GetToken(ctx, "new")
	if latest.SupersededAt != nil {
		t.Fatalf("newest token must stay active")
	}

	q, _ := s.GetQuote(ctx, "q-1")
	if err := q.Accept("Anna", "signatures/q-1/x.png", storeNow); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if err := s.ConsumeToken(ctx, "old", storeNow, q); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired for superseded token, got %v", err)
	}
}

func TestGetTokenNotFound(t *testing.T) {
	_, err := NewStore().GetToken(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestConsumeTokenExactlyOnceUnderContention(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	sentQuote(t, s, "q-1")
	if err := s.SaveToken(ctx, domain.NewSigningToken("tok", "q-1", storeNow, time.Hour)); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	const callers = 16
	var wins, consumed atomic.Int32
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			q, err := s.GetQuote(ctx, "q-1")
			if err != nil {
				return err
			}
			if err := q.Accept("Anna", "signatures/q-1/x.png", storeNow); err != nil {
				// a racer that reads after the winner committed sees the accepted quote
				if errors.Is(err, domain.ErrAlreadyAccepted) {
					consumed.Add(1)
					return nil
				}
				return err
			}
			err = s.ConsumeToken(ctx, "tok", storeNow, q)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrTokenAlreadyConsumed):
				consumed.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	if consumed.Load() != callers-1 {
		t.Fatalf("expected %d losers, got %d", callers-1, consumed.Load())
	}
	tok, _ := s.GetToken(ctx, "tok")
	if tok.ConsumedAt == nil {
		t.Fatalf("token should be consumed")
	}
	stored, _ := s.GetQuote(ctx, "q-1")
	if stored.Status != domain.QuoteAccepted || stored.Version != 2 {
		t.Fatalf("unexpected stored quote status=%s version=%d", stored.Status, stored.Version)
	}
}

func TestConsumeTokenLeavesStateOnVersionConflict(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	sentQuote(t, s, "q-1")
	if err := s.SaveToken(ctx, domain.NewSigningToken("tok", "q-1", storeNow, time.Hour)); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	stale, _ := s.GetQuote(ctx, "q-1")
	opened, _ := s.GetQuote(ctx, "q-1")
	if err := opened.MarkOpened(storeNow); err != nil {
		t.Fatalf("MarkOpened() error = %v", err)
	}
	if err := s.UpdateQuote(ctx, opened); err != nil {
		t.Fatalf("UpdateQuote() error = %v", err)
	}

	if err := stale.Accept("Anna", "signatures/q-1/x.png", storeNow); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if err := s.ConsumeToken(ctx, "tok", storeNow, stale); !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	tok, _ := s.GetToken(ctx, "tok")
	if tok.ConsumedAt != nil {
		t.Fatalf("token must stay unconsumed when the quote write fails")
	}
}
