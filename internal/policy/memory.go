package policy

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	pool     int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]*Policy)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, account string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[account]
	if !ok {
		return nil, ErrNoPolicy
	}
	out := *p
	return &out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, p *Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.policies[p.Account] = &cp
	s.pool += p.PremiumPaid
	return nil
}

// MarkClaimed implements Store.
func (s *MemoryStore) MarkClaimed(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[account]
	if !ok {
		return ErrNoPolicy
	}
	p.HasClaimed = true
	return nil
}

// PremiumPool implements Store.
func (s *MemoryStore) PremiumPool(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool, nil
}

// DrainPremiumPool implements Store.
func (s *MemoryStore) DrainPremiumPool(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.pool
	s.pool = 0
	return drained, nil
}
