package treasury_test

import (
	"context"
	"errors"
	"testing"

	"github.com/parashield/parashield/internal/protocol"
	"github.com/parashield/parashield/internal/treasury"
)

var ctx = context.Background()

func TestFundAndBalance(t *testing.T) {
	pool := treasury.New()

	balance, err := pool.Fund(ctx, "sponsor", 40_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 40_000_000 {
		t.Errorf("balance after fund = %d, want 40000000", balance)
	}

	balance, err = pool.Balance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 40_000_000 {
		t.Errorf("Balance() = %d, want 40000000", balance)
	}
}

func TestFund_rejectsNonPositive(t *testing.T) {
	pool := treasury.New()
	for _, amount := range []int64{0, -1} {
		if _, err := pool.Fund(ctx, "sponsor", amount); !errors.Is(err, treasury.ErrNonPositiveAmount) {
			t.Errorf("Fund(%d) error = %v, want ErrNonPositiveAmount", amount, err)
		}
	}
}

func TestSolvent(t *testing.T) {
	pool := treasury.New()
	pool.Fund(ctx, "sponsor", 15_000_000)

	ok, err := pool.Solvent(ctx, 15_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("pool holding exactly the payout should be solvent")
	}

	ok, _ = pool.Solvent(ctx, 15_000_001)
	if ok {
		t.Error("pool short by one shannon should be insolvent")
	}
}

func TestPay(t *testing.T) {
	pool := treasury.New()
	pool.Fund(ctx, "sponsor", 20_000_000)

	tr, err := pool.Pay(ctx, "rider-1", 15_000_000, "claim payout")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Recipient != "rider-1" || tr.Amount != 15_000_000 {
		t.Errorf("transfer = %+v", tr)
	}
	if tr.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("transfer should carry a generated ID")
	}

	balance, _ := pool.Balance(ctx)
	if balance != 5_000_000 {
		t.Errorf("balance after payout = %d, want 5000000", balance)
	}
}

func TestPay_insufficientBalance(t *testing.T) {
	pool := treasury.New()
	pool.Fund(ctx, "sponsor", 1_000_000)

	_, err := pool.Pay(ctx, "rider-1", 15_000_000, "claim payout")
	if err == nil {
		t.Fatal("expected solvency error")
	}
	class, ok := protocol.ClassOf(err)
	if !ok || class != protocol.ClassSolvency {
		t.Errorf("error class = %v, want ClassSolvency", class)
	}
	if err.Error() != "Insufficient treasury balance for payout" {
		t.Errorf("message = %q", err.Error())
	}

	// The failed payout must not touch the balance.
	balance, _ := pool.Balance(ctx)
	if balance != 1_000_000 {
		t.Errorf("balance after failed payout = %d, want 1000000", balance)
	}
}

func TestSweep(t *testing.T) {
	pool := treasury.New()
	pool.Fund(ctx, "sponsor", 30_000_000)

	swept, err := pool.Sweep(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if swept != 30_000_000 {
		t.Errorf("swept = %d, want 30000000", swept)
	}

	balance, _ := pool.Balance(ctx)
	if balance != 0 {
		t.Errorf("balance after sweep = %d, want 0", balance)
	}
}

func TestSweep_emptyPoolIsNoop(t *testing.T) {
	pool := treasury.New()

	swept, err := pool.Sweep(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if swept != 0 {
		t.Errorf("swept = %d, want 0", swept)
	}

	transfers, _ := pool.Transfers(ctx, 10)
	if len(transfers) != 0 {
		t.Errorf("empty sweep should not record a transfer, got %d", len(transfers))
	}
}

func TestTransfers_newestFirst(t *testing.T) {
	pool := treasury.New()
	pool.Fund(ctx, "sponsor", 50_000_000)

	pool.Pay(ctx, "rider-1", 10_000_000, "first")
	pool.Pay(ctx, "rider-2", 10_000_000, "second")
	pool.Pay(ctx, "rider-3", 10_000_000, "third")

	transfers, err := pool.Transfers(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(transfers) != 2 {
		t.Fatalf("len = %d, want 2", len(transfers))
	}
	if transfers[0].Memo != "third" || transfers[1].Memo != "second" {
		t.Errorf("order = [%s, %s], want newest first", transfers[0].Memo, transfers[1].Memo)
	}
}
