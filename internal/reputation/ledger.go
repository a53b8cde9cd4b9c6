package reputation

import "context"

// Ledger is the interface for the reputation score ledger.
// Both MemoryLedger and PostgresLedger implement this interface.
//
// Writes are reserved for the claims engine (RecordClaim) and the
// administrator (AddSafeDay); callers are authenticated before these
// methods are reached.
type Ledger interface {
	// Score returns the current record for account. Accounts with no
	// history read as the pristine baseline without creating a record.
	Score(ctx context.Context, account string) (*Record, error)

	// AddSafeDay credits one claim-free coverage day: +5 score, clamped.
	AddSafeDay(ctx context.Context, account string) (*Record, error)

	// RecordClaim registers a resolved claim. Approved claims deduct the
	// claim penalty; rejected claims only increment the claim counter.
	RecordClaim(ctx context.Context, account string, approved bool) (*Record, error)
}
