package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the coverage ledger to a PostgreSQL database.
// It implements the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, account string) (*Policy, error) {
	p := &Policy{}
	err := s.pool.QueryRow(ctx,
		`SELECT account, coverage_amount, premium_paid, purchased_at, expires_at, has_claimed
		 FROM policies WHERE account = $1`, account,
	).Scan(&p.Account, &p.CoverageAmount, &p.PremiumPaid, &p.PurchasedAt, &p.ExpiresAt, &p.HasClaimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPolicy
	}
	if err != nil {
		return nil, fmt.Errorf("get policy for %s: %w", account, err)
	}
	return p, nil
}

// Put implements Store. The policy upsert and the premium pool credit
// commit together or not at all.
func (s *PostgresStore) Put(ctx context.Context, p *Policy) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO policies (account, coverage_amount, premium_paid, purchased_at, expires_at, has_claimed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (account) DO UPDATE SET
		     coverage_amount = EXCLUDED.coverage_amount,
		     premium_paid    = EXCLUDED.premium_paid,
		     purchased_at    = EXCLUDED.purchased_at,
		     expires_at      = EXCLUDED.expires_at,
		     has_claimed     = EXCLUDED.has_claimed`,
		p.Account, p.CoverageAmount, p.PremiumPaid, p.PurchasedAt, p.ExpiresAt, p.HasClaimed,
	); err != nil {
		return fmt.Errorf("upsert policy: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE premium_pool SET balance = balance + $1`, p.PremiumPaid,
	); err != nil {
		return fmt.Errorf("credit premium pool: %w", err)
	}

	return tx.Commit(ctx)
}

// MarkClaimed implements Store.
func (s *PostgresStore) MarkClaimed(ctx context.Context, account string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE policies SET has_claimed = TRUE WHERE account = $1`, account,
	)
	if err != nil {
		return fmt.Errorf("mark policy claimed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoPolicy
	}
	return nil
}

// PremiumPool implements Store.
func (s *PostgresStore) PremiumPool(ctx context.Context) (int64, error) {
	var balance int64
	if err := s.pool.QueryRow(ctx, `SELECT balance FROM premium_pool`).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read premium pool: %w", err)
	}
	return balance, nil
}

// DrainPremiumPool implements Store.
func (s *PostgresStore) DrainPremiumPool(ctx context.Context) (int64, error) {
	// RETURNING sees post-update values, so the pre-update balance is
	// captured through a self-join.
	var drained int64
	if err := s.pool.QueryRow(ctx,
		`UPDATE premium_pool p SET balance = 0
		 FROM (SELECT balance FROM premium_pool) old
		 WHERE p.balance > 0
		 RETURNING old.balance`,
	).Scan(&drained); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("drain premium pool: %w", err)
	}
	return drained, nil
}
