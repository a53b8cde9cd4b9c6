package solvency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parashield/parashield/internal/claims"
	"github.com/parashield/parashield/internal/treasury"
	"go.uber.org/zap"
)

func pendingClaim(t *testing.T, store *claims.MemoryStore, account string, amount int64) {
	t.Helper()
	err := store.Put(context.Background(), &claims.Claim{
		ID:              uuid.New(),
		Account:         account,
		Status:          claims.StatusPending,
		RequestedAmount: amount,
		FiledAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestCheckOnceSolvent(t *testing.T) {
	pool := treasury.New()
	if _, err := pool.Fund(context.Background(), "backer", 30_000_000); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	store := claims.NewMemoryStore()
	pendingClaim(t, store, "rider-1", 15_000_000)

	var fired bool
	m := New(pool, store, Config{}, zap.NewNop())
	m.SetEventDispatch(func(context.Context, string, map[string]string) { fired = true }, "treasury.insolvent")

	m.CheckOnce(context.Background())

	if fired {
		t.Error("insolvency event fired while the pool covers exposure")
	}
}

func TestCheckOnceInsolventFiresOnce(t *testing.T) {
	pool := treasury.New()
	if _, err := pool.Fund(context.Background(), "backer", 10_000_000); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	store := claims.NewMemoryStore()
	pendingClaim(t, store, "rider-1", 15_000_000)
	pendingClaim(t, store, "rider-2", 15_000_000)

	var events []map[string]string
	m := New(pool, store, Config{}, zap.NewNop())
	m.SetEventDispatch(func(_ context.Context, _ string, payload map[string]string) {
		events = append(events, payload)
	}, "treasury.insolvent")

	m.CheckOnce(context.Background())
	m.CheckOnce(context.Background()) // still insolvent, must not re-fire

	if len(events) != 1 {
		t.Fatalf("got %d insolvency events, want 1", len(events))
	}
	if events[0]["deficit"] != "20000000" {
		t.Errorf("deficit = %s, want 20000000", events[0]["deficit"])
	}
	if events[0]["pending_claims"] != "2" {
		t.Errorf("pending_claims = %s, want 2", events[0]["pending_claims"])
	}
}

func TestRecoveryRearmsTheAlert(t *testing.T) {
	pool := treasury.New()
	store := claims.NewMemoryStore()
	pendingClaim(t, store, "rider-1", 15_000_000)

	var fired int
	m := New(pool, store, Config{}, zap.NewNop())
	m.SetEventDispatch(func(context.Context, string, map[string]string) { fired++ }, "treasury.insolvent")

	m.CheckOnce(context.Background()) // insolvent: empty pool
	if _, err := pool.Fund(context.Background(), "backer", 15_000_000); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	m.CheckOnce(context.Background()) // recovered
	if _, err := pool.Sweep(context.Background(), "admin"); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	m.CheckOnce(context.Background()) // insolvent again

	if fired != 2 {
		t.Errorf("insolvency events = %d, want 2 (one per solvent->insolvent edge)", fired)
	}
}
