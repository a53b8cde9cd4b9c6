package claims

import (
	"context"
	"errors"
)

// ErrNoClaim is returned when an account has never filed a claim.
var ErrNoClaim = errors.New("no claim found")

// Store is the persistence interface for claim records, keyed by
// account. One record per account: a new filing after a rejection
// replaces the rejected record.
//
// Both MemoryStore and PostgresStore implement this interface.
type Store interface {
	// Get returns the latest claim for account, or ErrNoClaim.
	Get(ctx context.Context, account string) (*Claim, error)

	// Put stores a claim, replacing any previous record for the account.
	Put(ctx context.Context, c *Claim) error

	// PendingExposure returns the number of pending claims and the sum
	// of their requested amounts in shannon.
	PendingExposure(ctx context.Context) (count int, total int64, err error)
}
