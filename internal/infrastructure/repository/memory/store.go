package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// Store keeps quotes, invoices and signing tokens in process memory. All
// methods are safe for concurrent use; every write is a compare-and-swap on
// the document version under one mutex.
type Store struct {
	mu       sync.Mutex
	quotes   map[string]*domain.Quote
	invoices map[string]*domain.Invoice
	tokens   map[string]*domain.SigningToken
}

func NewStore() *Store {
	return &Store{
		quotes:   make(map[string]*domain.Quote),
		invoices: make(map[string]*domain.Invoice),
		tokens:   make(map[string]*domain.SigningToken),
	}
}

func (s *Store) CreateQuote(_ context.Context, q *domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[q.ID]; ok {
		return domain.WrapError(domain.ErrInvalidInput, "create quote", fmt.Errorf("quote %s already exists", q.ID))
	}
	s.quotes[q.ID] = q.Clone()
	return nil
}

func (s *Store) GetQuote(_ context.Context, id string) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get quote", fmt.Errorf("quote %s", id))
	}
	return q.Clone(), nil
}

func (s *Store) UpdateQuote(_ context.Context, q *domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateQuoteLocked(q)
}

func (s *Store) updateQuoteLocked(q *domain.Quote) error {
	current, ok := s.quotes[q.ID]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update quote", fmt.Errorf("quote %s", q.ID))
	}
	if current.Version != q.Version {
		return domain.WrapError(domain.ErrConcurrentUpdate, "update quote", fmt.Errorf("quote %s: stored version %d, got %d", q.ID, current.Version, q.Version))
	}
	q.Version++
	s.quotes[q.ID] = q.Clone()
	return nil
}

func (s *Store) CreateInvoice(_ context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; ok {
		return domain.WrapError(domain.ErrInvalidInput, "create invoice", fmt.Errorf("invoice %s already exists", inv.ID))
	}
	s.invoices[inv.ID] = inv.Clone()
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get invoice", fmt.Errorf("invoice %s", id))
	}
	return inv.Clone(), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.invoices[inv.ID]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update invoice", fmt.Errorf("invoice %s", inv.ID))
	}
	if current.Version != inv.Version {
		return domain.WrapError(domain.ErrConcurrentUpdate, "update invoice", fmt.Errorf("invoice %s: stored version %d, got %d", inv.ID, current.Version, inv.Version))
	}
	inv.Version++
	s.invoices[inv.ID] = inv.Clone()
	return nil
}

func (s *Store) SaveToken(_ context.Context, t domain.SigningToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.Token]; ok {
		return domain.WrapError(domain.ErrInvalidInput, "save token", fmt.Errorf("token collision for quote %s", t.QuoteID))
	}
	for _, existing := range s.tokens {
		if existing.QuoteID == t.QuoteID && existing.ConsumedAt == nil && existing.SupersededAt == nil {
			at := t.CreatedAt
			existing.SupersededAt = &at
		}
	}
	stored := t
	s.tokens[t.Token] = &stored
	return nil
}

func (s *Store) GetToken(_ context.Context, token string) (*domain.SigningToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, domain.WrapError(domain.ErrTokenNotFound, "get token", fmt.Errorf("unknown token"))
	}
	out := *t
	return &out, nil
}

func (s *Store) ConsumeToken(_ context.Context, token string, consumedAt time.Time, q *domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return domain.WrapError(domain.ErrTokenNotFound, "consume token", fmt.Errorf("unknown token"))
	}
	if t.QuoteID != q.ID {
		return domain.WrapError(domain.ErrInvalidInput, "consume token", fmt.Errorf("token belongs to quote %s, not %s", t.QuoteID, q.ID))
	}
	if t.ConsumedAt != nil {
		return domain.WrapError(domain.ErrTokenAlreadyConsumed, "consume token", fmt.Errorf("token for quote %s", t.QuoteID))
	}
	if t.SupersededAt != nil {
		return domain.WrapError(domain.ErrTokenExpired, "consume token", fmt.Errorf("token for quote %s was replaced", t.QuoteID))
	}
	if err := s.updateQuoteLocked(q); err != nil {
		return err
	}
	at := consumedAt
	t.ConsumedAt = &at
	return nil
}
