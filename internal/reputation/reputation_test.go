package reputation_test

import (
	"context"
	"testing"

	"github.com/parashield/parashield/internal/reputation"
)

var ctx = context.Background()

func TestScore_unknownAccountReadsBaseline(t *testing.T) {
	l := reputation.New()

	r, err := l.Score(ctx, "rider-1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Score != reputation.BaselineScore {
		t.Errorf("fresh score = %d, want %d", r.Score, reputation.BaselineScore)
	}
	if r.SafeDays != 0 || r.Claims != 0 {
		t.Errorf("fresh record should have no history, got %+v", r)
	}
	if r.DiscountPercent != 0 {
		t.Errorf("baseline discount = %d, want 0", r.DiscountPercent)
	}
}

func TestAddSafeDay(t *testing.T) {
	l := reputation.New()

	r, err := l.AddSafeDay(ctx, "rider-1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Score != 105 {
		t.Errorf("score after one safe day = %d, want 105", r.Score)
	}
	if r.SafeDays != 1 {
		t.Errorf("safe days = %d, want 1", r.SafeDays)
	}
}

func TestRecordClaim_approvedPenalizes(t *testing.T) {
	l := reputation.New()

	r, err := l.RecordClaim(ctx, "rider-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if r.Score != 80 {
		t.Errorf("score after approved claim = %d, want 80", r.Score)
	}
	if r.Claims != 1 {
		t.Errorf("claims = %d, want 1", r.Claims)
	}
	if r.DiscountPercent != -10 {
		t.Errorf("discount below baseline = %d, want -10 surcharge", r.DiscountPercent)
	}
}

func TestRecordClaim_rejectedKeepsScore(t *testing.T) {
	l := reputation.New()

	r, err := l.RecordClaim(ctx, "rider-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if r.Score != reputation.BaselineScore {
		t.Errorf("rejected claim must not move the score, got %d", r.Score)
	}
	if r.Claims != 1 {
		t.Errorf("claims = %d, want 1 (rejections still count)", r.Claims)
	}
}

func TestScoreClamping(t *testing.T) {
	l := reputation.New()

	// 25 safe days would be 225 unclamped.
	var last *reputation.Record
	for i := 0; i < 25; i++ {
		r, err := l.AddSafeDay(ctx, "saint")
		if err != nil {
			t.Fatal(err)
		}
		last = r
	}
	if last.Score != reputation.MaxScore {
		t.Errorf("score = %d, want clamped to %d", last.Score, reputation.MaxScore)
	}

	// 6 approved claims would be -20 unclamped.
	for i := 0; i < 6; i++ {
		r, err := l.RecordClaim(ctx, "menace", true)
		if err != nil {
			t.Fatal(err)
		}
		last = r
	}
	if last.Score != reputation.MinScore {
		t.Errorf("score = %d, want clamped to %d", last.Score, reputation.MinScore)
	}
}

func TestDiscountTiers(t *testing.T) {
	cases := []struct {
		score int
		want  int
	}{
		{200, 20},
		{150, 20},
		{149, 10},
		{120, 10},
		{119, 0},
		{100, 0},
		{99, -10},
		{0, -10},
	}
	for _, tc := range cases {
		if got := reputation.Discount(tc.score); got != tc.want {
			t.Errorf("Discount(%d) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestDiscountedPremium(t *testing.T) {
	base := int64(5_000_000)
	cases := []struct {
		discount int
		want     int64
	}{
		{20, 4_000_000},
		{10, 4_500_000},
		{0, 5_000_000},
		{-10, 5_500_000},
	}
	for _, tc := range cases {
		r := &reputation.Record{DiscountPercent: tc.discount}
		if got := r.DiscountedPremium(base); got != tc.want {
			t.Errorf("DiscountedPremium(%d) at %d%% = %d, want %d", base, tc.discount, got, tc.want)
		}
	}
}

func TestDiscountedPremium_matchesOriginalVector(t *testing.T) {
	// A 25-unit base at 20% discount pays 20.
	r := &reputation.Record{DiscountPercent: 20}
	if got := r.DiscountedPremium(25); got != 20 {
		t.Errorf("DiscountedPremium(25) at 20%% = %d, want 20", got)
	}
}

func TestScore_doesNotMutateStoredRecord(t *testing.T) {
	l := reputation.New()
	if _, err := l.AddSafeDay(ctx, "rider-1"); err != nil {
		t.Fatal(err)
	}

	r1, _ := l.Score(ctx, "rider-1")
	r1.Score = 9000
	r2, _ := l.Score(ctx, "rider-1")
	if r2.Score != 105 {
		t.Errorf("stored record mutated through returned copy: %d", r2.Score)
	}
}
