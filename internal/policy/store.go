package policy

import (
	"context"
	"errors"
)

// ErrNoPolicy is returned when an account has never purchased coverage.
var ErrNoPolicy = errors.New("no policy found")

// Store is the persistence interface for the coverage ledger. The
// premium pool is the accumulated, not-yet-withdrawn premium income;
// it lives with the ledger until the administrator sweeps it.
//
// Both MemoryStore and PostgresStore implement this interface.
type Store interface {
	// Get returns the latest policy for account, or ErrNoPolicy.
	Get(ctx context.Context, account string) (*Policy, error)

	// Put stores a policy, replacing any previous record for the account,
	// and credits its premium to the pool.
	Put(ctx context.Context, p *Policy) error

	// MarkClaimed flags the account's policy as consumed.
	MarkClaimed(ctx context.Context, account string) error

	// PremiumPool returns the accumulated premium income.
	PremiumPool(ctx context.Context) (int64, error)

	// DrainPremiumPool zeroes the pool and returns the amount drained.
	DrainPremiumPool(ctx context.Context) (int64, error)
}
