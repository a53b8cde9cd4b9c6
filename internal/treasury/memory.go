package treasury

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parashield/parashield/internal/protocol"
)

// MsgInsufficientBalance is the user-visible solvency failure message.
// Clients match on this text verbatim.
const MsgInsufficientBalance = "Insufficient treasury balance for payout"

// MemoryTreasury is an in-memory, thread-safe Treasury implementation.
type MemoryTreasury struct {
	mu        sync.RWMutex
	balance   int64
	transfers []*Transfer
}

// New creates a MemoryTreasury with a zero balance.
func New() *MemoryTreasury {
	return &MemoryTreasury{}
}

// Fund implements Treasury.
func (t *MemoryTreasury) Fund(_ context.Context, _ string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance += amount
	return t.balance, nil
}

// Balance implements Treasury.
func (t *MemoryTreasury) Balance(_ context.Context) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance, nil
}

// Solvent implements Treasury.
func (t *MemoryTreasury) Solvent(_ context.Context, amount int64) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance >= amount, nil
}

// Pay implements Treasury. The solvency check and the debit happen under
// one lock, so the balance can never go negative.
func (t *MemoryTreasury) Pay(_ context.Context, recipient string, amount int64, memo string) (*Transfer, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balance < amount {
		return nil, protocol.Solvency(MsgInsufficientBalance)
	}
	t.balance -= amount
	tr := &Transfer{
		ID:        uuid.New(),
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
		CreatedAt: time.Now().UTC(),
	}
	t.transfers = append(t.transfers, tr)
	return tr, nil
}

// Sweep implements Treasury.
func (t *MemoryTreasury) Sweep(_ context.Context, recipient string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	swept := t.balance
	if swept == 0 {
		return 0, nil
	}
	t.balance = 0
	t.transfers = append(t.transfers, &Transfer{
		ID:        uuid.New(),
		Recipient: recipient,
		Amount:    swept,
		Memo:      "emergency withdraw",
		CreatedAt: time.Now().UTC(),
	})
	return swept, nil
}

// Transfers implements Treasury.
func (t *MemoryTreasury) Transfers(_ context.Context, limit int) ([]*Transfer, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if limit <= 0 || limit > len(t.transfers) {
		limit = len(t.transfers)
	}
	out := make([]*Transfer, 0, limit)
	for i := len(t.transfers) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.transfers[i])
	}
	return out, nil
}
