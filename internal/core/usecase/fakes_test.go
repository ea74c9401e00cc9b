package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sequenceTokens struct {
	mu   sync.Mutex
	next int
	err  error
}

func (g *sequenceTokens) NewToken() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("token-%d", g.next), nil
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.DocumentEvent
	err    error
}

func (f *publisherFake) PublishEvent(_ context.Context, event domain.DocumentEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *publisherFake) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// inspectorFake treats an all-zero payload as a blank canvas.
type inspectorFake struct{}

func (inspectorFake) Normalize(image []byte) ([]byte, error) {
	if len(image) == 0 || len(bytes.Trim(image, "\x00")) == 0 {
		return nil, domain.WrapError(domain.ErrMissingRequiredField, "inspect signature", errors.New("signature is blank"))
	}
	return append([]byte("png:"), image...), nil
}

type observerFake struct {
	mu          sync.Mutex
	transitions []string
	signatures  []string
}

func (f *observerFake) ObserveTransition(kind domain.DocumentKind, from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, fmt.Sprintf("%s:%s->%s", kind, from, to))
}

func (f *observerFake) ObserveSignature(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signatures = append(f.signatures, outcome)
}

type notifierFake struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (f *notifierFake) Send(_ context.Context, n domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

type deduperFake struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
}

func newDeduperFake() *deduperFake {
	return &deduperFake{claimed: make(map[string]bool)}
}

func (f *deduperFake) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *deduperFake) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, key)
	f.released = append(f.released, key)
	return nil
}

type exporterFake struct {
	entries []domain.LedgerEntry
	err     error
}

func (f *exporterFake) Export(entry domain.LedgerEntry) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.entries = append(f.entries, entry)
	return []byte("ledger:" + entry.InvoiceID), nil
}

func (f *exporterFake) Extension() string {
	return ".xlsx"
}
