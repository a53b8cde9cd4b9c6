package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/parashield/parashield/internal/policy"
	"github.com/parashield/parashield/internal/protocol"
	"go.uber.org/zap"
)

var ctx = context.Background()

var testCfg = policy.Config{
	PremiumAmount:  5_000_000,
	CoverageAmount: 15_000_000,
	Duration:       24 * time.Hour,
}

func newTestService() *policy.Service {
	return policy.NewService(policy.NewMemoryStore(), testCfg, "admin", zap.NewNop())
}

func TestPurchase(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	p, err := svc.Purchase(ctx, "rider-1", 5_000_000, now)
	if err != nil {
		t.Fatal(err)
	}
	if p.CoverageAmount != 15_000_000 {
		t.Errorf("coverage = %d, want 15000000", p.CoverageAmount)
	}
	if !p.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("expires = %v, want purchase + 24h", p.ExpiresAt)
	}
	if p.HasClaimed {
		t.Error("fresh policy must not be marked claimed")
	}
}

func TestPurchase_wrongPremium(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	for _, paid := range []int64{0, 4_999_999, 5_000_001} {
		_, err := svc.Purchase(ctx, "rider-1", paid, now)
		if err == nil {
			t.Fatalf("Purchase with %d should fail", paid)
		}
		if err.Error() != "Must send exactly 5 SHM for coverage" {
			t.Errorf("message = %q", err.Error())
		}
		if class, _ := protocol.ClassOf(err); class != protocol.ClassValidation {
			t.Errorf("class = %v, want ClassValidation", class)
		}
	}
}

func TestPurchase_duplicateActiveCoverage(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	if _, err := svc.Purchase(ctx, "rider-1", 5_000_000, now); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Purchase(ctx, "rider-1", 5_000_000, now.Add(time.Hour))
	if err == nil {
		t.Fatal("second purchase during active coverage should fail")
	}
	if err.Error() != "You already have active coverage" {
		t.Errorf("message = %q", err.Error())
	}
	if class, _ := protocol.ClassOf(err); class != protocol.ClassState {
		t.Errorf("class = %v, want ClassState", class)
	}
}

func TestPurchase_afterExpiry(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	if _, err := svc.Purchase(ctx, "rider-1", 5_000_000, now); err != nil {
		t.Fatal(err)
	}

	// A hair past expiry the slot is free again.
	later := now.Add(24*time.Hour + time.Second)
	if _, err := svc.Purchase(ctx, "rider-1", 5_000_000, later); err != nil {
		t.Errorf("repurchase after expiry failed: %v", err)
	}
}

func TestPurchase_afterConsumedCoverage(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	if _, err := svc.Purchase(ctx, "rider-1", 5_000_000, now); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkClaimed(ctx, "rider-1"); err != nil {
		t.Fatal(err)
	}

	// Consumed coverage is inactive even before the clock expires it.
	if _, err := svc.Purchase(ctx, "rider-1", 5_000_000, now.Add(time.Hour)); err != nil {
		t.Errorf("repurchase after consumed coverage failed: %v", err)
	}
}

func TestCheck(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	// Unknown account: inactive, zero values, no error.
	cov, err := svc.Check(ctx, "stranger", now)
	if err != nil {
		t.Fatal(err)
	}
	if cov.Active || cov.CoverageAmount != 0 {
		t.Errorf("unknown account coverage = %+v, want inactive zero", cov)
	}

	svc.Purchase(ctx, "rider-1", 5_000_000, now)

	cov, err = svc.Check(ctx, "rider-1", now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !cov.Active {
		t.Error("coverage should be active mid-window")
	}
	if cov.TimeRemaining != 23*time.Hour {
		t.Errorf("remaining = %v, want 23h", cov.TimeRemaining)
	}

	// At the expiry instant the coverage no longer counts.
	cov, _ = svc.Check(ctx, "rider-1", now.Add(24*time.Hour))
	if cov.Active {
		t.Error("coverage at the expiry instant should be inactive")
	}
	if cov.TimeRemaining != 0 {
		t.Errorf("remaining at expiry = %v, want 0", cov.TimeRemaining)
	}
}

func TestWithdrawPremiums(t *testing.T) {
	svc := newTestService()
	now := time.Now().UTC()

	svc.Purchase(ctx, "rider-1", 5_000_000, now)
	svc.Purchase(ctx, "rider-2", 5_000_000, now)

	// Non-admin is refused before anything moves.
	_, err := svc.WithdrawPremiums(ctx, "rider-1")
	if err == nil {
		t.Fatal("non-admin withdrawal should fail")
	}
	if err.Error() != "Only admin can withdraw premiums" {
		t.Errorf("message = %q", err.Error())
	}
	if class, _ := protocol.ClassOf(err); class != protocol.ClassAuthorization {
		t.Errorf("class = %v, want ClassAuthorization", class)
	}

	drained, err := svc.WithdrawPremiums(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if drained != 10_000_000 {
		t.Errorf("drained = %d, want 10000000", drained)
	}

	// The pool is empty afterwards; a second sweep yields zero.
	drained, err = svc.WithdrawPremiums(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if drained != 0 {
		t.Errorf("second drain = %d, want 0", drained)
	}
}

func TestDetails_noPolicy(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Details(ctx, "stranger"); err != policy.ErrNoPolicy {
		t.Errorf("Details on unknown account = %v, want ErrNoPolicy", err)
	}
}
