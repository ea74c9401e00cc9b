package dedupe

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper is the single-replica fallback used when no redis address is
// configured.
type MemoryDeduper struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (d *MemoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if expires, ok := d.claims[key]; ok && now.Before(expires) {
		return false, nil
	}
	d.claims[key] = now.Add(ttl)
	d.evictLocked(now)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claims, key)
	return nil
}

func (d *MemoryDeduper) evictLocked(now time.Time) {
	for key, expires := range d.claims {
		if !now.Before(expires) {
			delete(d.claims, key)
		}
	}
}
