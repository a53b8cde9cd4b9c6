package reputation

import "time"

// Scoring constants. The score is clamped to [MinScore, MaxScore] so a
// long claim-free streak cannot bank unlimited credit and a bad run
// cannot dig an unrecoverable hole.
const (
	BaselineScore = 100
	SafeDayBonus  = 5
	ClaimPenalty  = 20
	MinScore      = 0
	MaxScore      = 200
)

// Record is the stored reputation state for one account.
// DiscountPercent is computed from Score at read time, never stored.
type Record struct {
	Account   string    `json:"account"`
	Score     int       `json:"score"`
	SafeDays  int       `json:"safe_days"`
	Claims    int       `json:"claims"`
	UpdatedAt time.Time `json:"updated_at"`

	DiscountPercent int `json:"discount_percent"`
}

// newRecord returns the pristine state for an account that has never
// been written: baseline score, no history.
func newRecord(account string) *Record {
	r := &Record{Account: account, Score: BaselineScore}
	r.DiscountPercent = Discount(r.Score)
	return r
}

// Discount maps a score onto a premium discount percentage.
// Below baseline the discount is negative, i.e. a surcharge.
func Discount(score int) int {
	switch {
	case score >= 150:
		return 20
	case score >= 120:
		return 10
	case score >= 100:
		return 0
	default:
		return -10
	}
}

// DiscountedPremium applies a record's discount to a base premium in
// shannon. Integer arithmetic throughout; the result rounds toward zero.
func (r *Record) DiscountedPremium(base int64) int64 {
	return base * int64(100-r.DiscountPercent) / 100
}

// clampScore bounds s to [MinScore, MaxScore].
func clampScore(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
