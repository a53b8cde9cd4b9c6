// Package fraud provides claim risk analysis. It scores a filed claim
// against a fixed rule set over its evidence and the claimant's history
// and reports a 0–100 risk score with findings. The score is advisory:
// it informs the administrator's approve/reject call and never blocks a
// filing on its own.
package fraud

import (
	"context"

	"github.com/parashield/parashield/internal/claims"
	"github.com/parashield/parashield/internal/reputation"
)

// Finding is a single rule match returned by the scorer.
type Finding struct {
	Rule        string  `json:"rule"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Report is the output of a claim risk analysis run.
type Report struct {
	// Score is the aggregate risk score (0–100).
	Score int `json:"score"`

	// Severity is a human-readable label derived from Score:
	//   0–14   → "none"
	//   15–34  → "low"
	//   35–64  → "medium"
	//   65–84  → "high"
	//   85–100 → "critical"
	Severity string `json:"severity"`

	// Findings lists every rule that triggered.
	Findings []Finding `json:"findings"`

	// Flagged is true when Score ≥ 65. Flagged claims deserve manual
	// scrutiny before approval; they are never auto-rejected.
	Flagged bool `json:"flagged"`
}

// Scorer analyses a claim for fraud indicators.
type Scorer interface {
	Score(ctx context.Context, claim *claims.Claim, history *reputation.Record) (*Report, error)
}

// severityLabel maps a 0–100 score to a severity string.
func severityLabel(score int) string {
	switch {
	case score >= 85:
		return "critical"
	case score >= 65:
		return "high"
	case score >= 35:
		return "medium"
	case score >= 15:
		return "low"
	default:
		return "none"
	}
}
