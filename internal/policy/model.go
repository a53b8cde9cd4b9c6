// Package policy implements the coverage ledger: time-boxed parametric
// insurance policies purchased per account for a fixed premium.
//
// A policy is created on purchase and never mutated except to flag it as
// consumed by an approved claim. Expiry is lazy: nothing deletes expired
// records, activity is derived from the clock at read time.
package policy

import "time"

// Policy is one coverage record. At most one unexpired, unconsumed
// policy exists per account.
type Policy struct {
	Account        string    `json:"account"`
	CoverageAmount int64     `json:"coverage_amount"`
	PremiumPaid    int64     `json:"premium_paid"`
	PurchasedAt    time.Time `json:"purchased_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	HasClaimed     bool      `json:"has_claimed"`
}

// ActiveAt reports whether the policy still provides coverage at the
// given instant: not expired and not consumed by an approved claim.
func (p *Policy) ActiveAt(now time.Time) bool {
	return !p.HasClaimed && now.Before(p.ExpiresAt)
}

// TimeRemaining returns how much coverage time is left at now, floored
// at zero.
func (p *Policy) TimeRemaining(now time.Time) time.Duration {
	if !p.ActiveAt(now) {
		return 0
	}
	return p.ExpiresAt.Sub(now)
}

// Coverage is the read projection returned by Service.Check.
type Coverage struct {
	Active         bool          `json:"active"`
	CoverageAmount int64         `json:"coverage_amount"`
	TimeRemaining  time.Duration `json:"time_remaining"`
}
