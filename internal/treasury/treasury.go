// Package treasury custodies the pool of funds backing claim payouts.
//
// The balance is a single shannon scalar. Anyone may fund it; only the
// claims engine issues payout transfers, and the administrator may sweep
// the entire pool out in an emergency. Every outbound movement is
// recorded as a Transfer entry so the payout history stays auditable.
//
// A sweep removes solvency backing for any still-pending claims. That is
// an accepted operational risk of the circuit breaker, not a bug: the
// affected claims simply remain pending until the pool is refunded.
//
// Two implementations of the Treasury interface are provided:
//   - MemoryTreasury: in-process, for testing and development.
//   - PostgresTreasury: durable, for production use.
package treasury

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNonPositiveAmount is returned when a funding or transfer amount is
// zero or negative.
var ErrNonPositiveAmount = errors.New("amount must be positive")

// Transfer is one outbound movement from the pool: a claim payout or an
// emergency sweep.
type Transfer struct {
	ID        uuid.UUID `json:"id"`
	Recipient string    `json:"recipient"`
	Amount    int64     `json:"amount"`
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"created_at"`
}

// Treasury is the interface for the payout custody pool.
// Both MemoryTreasury and PostgresTreasury implement this interface.
type Treasury interface {
	// Fund credits amount to the pool. Callable by any party.
	Fund(ctx context.Context, from string, amount int64) (int64, error)

	// Balance returns the current pool balance in shannon.
	Balance(ctx context.Context) (int64, error)

	// Solvent reports whether the pool can back a debit of amount.
	Solvent(ctx context.Context, amount int64) (bool, error)

	// Pay debits amount and records an outbound transfer to recipient.
	// It refuses to drive the balance negative, even when the caller
	// skipped Solvent.
	Pay(ctx context.Context, recipient string, amount int64, memo string) (*Transfer, error)

	// Sweep moves the entire balance to recipient and records the sweep.
	// Returns the amount swept. Sweeping an empty pool is a no-op.
	Sweep(ctx context.Context, recipient string) (int64, error)

	// Transfers returns the most recent outbound transfers, newest first.
	Transfers(ctx context.Context, limit int) ([]*Transfer, error)
}
