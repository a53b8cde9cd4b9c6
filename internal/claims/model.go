// Package claims implements the claims engine: evidence-validated claim
// filing and administrator-resolved payouts.
//
// Each account moves through a one-way state machine:
//
//	none → pending → approved | rejected
//
// Approved and rejected are terminal; a claim is never reopened or
// resolved twice. A rejected claim does not block a new filing, an
// approved one consumes the coverage that backed it.
package claims

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a claim.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Evidence is the proof bundle attached to a claim at filing time.
// PhotoRef is an opaque content-addressed reference (an IPFS CID in the
// mobile clients); the engine checks only non-emptiness and never
// fetches the referenced bytes. Immutable once filed.
type Evidence struct {
	PhotoRef          string `json:"photo_ref"`
	GPSLatitude       string `json:"gps_latitude"`
	GPSLongitude      string `json:"gps_longitude"`
	AccidentTimestamp int64  `json:"accident_timestamp"` // unix seconds, host-supplied
	PoliceReportID    string `json:"police_report_id,omitempty"`
	Description       string `json:"description"`
}

// Claim is one claim record. RequestedAmount is always the fixed payout
// constant: the product is parametric, not loss-based.
type Claim struct {
	ID              uuid.UUID  `json:"id"`
	Account         string     `json:"account"`
	Status          Status     `json:"status"`
	RequestedAmount int64      `json:"requested_amount"`
	FiledAt         time.Time  `json:"filed_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	Notes           string     `json:"notes"`
	Resolution      string     `json:"resolution,omitempty"`
	Evidence        Evidence   `json:"evidence"`
}

// Open reports whether the claim blocks a new filing: pending claims are
// unresolved, approved ones already consumed the coverage.
func (c *Claim) Open() bool {
	return c.Status == StatusPending || c.Status == StatusApproved
}
