package claims

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	claims map[string]*Claim
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{claims: make(map[string]*Claim)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, account string) (*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[account]
	if !ok {
		return nil, ErrNoClaim
	}
	out := *c
	return &out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.claims[c.Account] = &cp
	return nil
}

// PendingExposure implements Store.
func (s *MemoryStore) PendingExposure(_ context.Context) (int, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	var total int64
	for _, c := range s.claims {
		if c.Status == StatusPending {
			count++
			total += c.RequestedAmount
		}
	}
	return count, total, nil
}
