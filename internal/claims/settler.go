package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parashield/parashield/internal/protocol"
	"github.com/parashield/parashield/internal/reputation"
	"github.com/parashield/parashield/internal/treasury"
	"go.uber.org/zap"
)

// Settler commits every side effect of an approval as one durable unit:
// the status flip, the treasury debit, the transfer record, the coverage
// consumption and the reputation hit either all land or none do.
//
// The engine uses a settler when one is wired; the claim passed in
// already carries StatusApproved and ProcessedAt.
type Settler interface {
	Settle(ctx context.Context, c *Claim) error
}

// PostgresSettler settles approved claims in a single database
// transaction. All five stores share one connection pool, so the claim
// row, the treasury balance, the transfer record, the policy flag and
// the reputation row move together; a crash mid-approval rolls the
// whole resolution back and the claim stays pending.
type PostgresSettler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresSettler creates a PostgresSettler backed by the given connection pool.
func NewPostgresSettler(pool *pgxpool.Pool, logger *zap.Logger) *PostgresSettler {
	return &PostgresSettler{pool: pool, logger: logger}
}

// Settle implements Settler.
func (s *PostgresSettler) Settle(ctx context.Context, c *Claim) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Same lock the treasury takes for Pay and Sweep, so a concurrent
	// payout cannot race the balance check below.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", treasury.BalanceLockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM treasury_balance`).Scan(&balance); err != nil {
		return fmt.Errorf("read treasury balance: %w", err)
	}
	if balance < c.RequestedAmount {
		return protocol.Solvency(treasury.MsgInsufficientBalance)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE claims SET status = $2, processed_at = $3 WHERE account = $1`,
		c.Account, c.Status, c.ProcessedAt,
	); err != nil {
		return fmt.Errorf("flip claim status: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE treasury_balance SET balance = balance - $1`, c.RequestedAmount,
	); err != nil {
		return fmt.Errorf("debit treasury: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO treasury_transfers (id, recipient, amount, memo, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), c.Account, c.RequestedAmount, "claim payout "+c.ID.String(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert payout transfer: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE policies SET has_claimed = TRUE WHERE account = $1`, c.Account,
	); err != nil {
		return fmt.Errorf("consume coverage: %w", err)
	}

	// Mirrors the reputation ledger's clamped upsert for an approved claim.
	if _, err := tx.Exec(ctx,
		`INSERT INTO reputation (account, score, safe_days, claims, updated_at)
		 VALUES ($1, LEAST($4, GREATEST($5, $2 - $3)), 0, 1, $6)
		 ON CONFLICT (account) DO UPDATE SET
		     score      = LEAST($4, GREATEST($5, reputation.score - $3)),
		     claims     = reputation.claims + 1,
		     updated_at = $6`,
		c.Account, reputation.BaselineScore, reputation.ClaimPenalty,
		reputation.MaxScore, reputation.MinScore, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record approved claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement tx: %w", err)
	}

	s.logger.Info("claim settled",
		zap.String("account", c.Account),
		zap.String("claim_id", c.ID.String()),
		zap.Int64("payout", c.RequestedAmount),
	)
	return nil
}
