package reputation

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-memory, thread-safe Ledger implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require durable persistence across restarts.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// New creates an empty MemoryLedger.
func New() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]*Record)}
}

// Score implements Ledger.
func (l *MemoryLedger) Score(_ context.Context, account string) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.records[account]; ok {
		out := *r
		out.DiscountPercent = Discount(out.Score)
		return &out, nil
	}
	return newRecord(account), nil
}

// AddSafeDay implements Ledger.
func (l *MemoryLedger) AddSafeDay(_ context.Context, account string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(account)
	r.Score = clampScore(r.Score + SafeDayBonus)
	r.SafeDays++
	r.UpdatedAt = time.Now().UTC()
	out := *r
	out.DiscountPercent = Discount(out.Score)
	return &out, nil
}

// RecordClaim implements Ledger.
func (l *MemoryLedger) RecordClaim(_ context.Context, account string, approved bool) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(account)
	r.Claims++
	if approved {
		r.Score = clampScore(r.Score - ClaimPenalty)
	}
	r.UpdatedAt = time.Now().UTC()
	out := *r
	out.DiscountPercent = Discount(out.Score)
	return &out, nil
}

// get returns the stored record for account, creating it at baseline on
// first write. Callers must hold the write lock.
func (l *MemoryLedger) get(account string) *Record {
	if r, ok := l.records[account]; ok {
		return r
	}
	r := newRecord(account)
	l.records[account] = r
	return r
}
