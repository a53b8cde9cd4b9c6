package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresLedger persists reputation records to a PostgreSQL database.
// It implements the Ledger interface.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given connection pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Score implements Ledger.
func (l *PostgresLedger) Score(ctx context.Context, account string) (*Record, error) {
	r := &Record{Account: account}
	err := l.pool.QueryRow(ctx,
		`SELECT score, safe_days, claims, updated_at
		 FROM reputation WHERE account = $1`, account,
	).Scan(&r.Score, &r.SafeDays, &r.Claims, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return newRecord(account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reputation for %s: %w", account, err)
	}
	r.DiscountPercent = Discount(r.Score)
	return r, nil
}

// AddSafeDay implements Ledger.
func (l *PostgresLedger) AddSafeDay(ctx context.Context, account string) (*Record, error) {
	return l.apply(ctx, account, SafeDayBonus, 1, 0)
}

// RecordClaim implements Ledger.
func (l *PostgresLedger) RecordClaim(ctx context.Context, account string, approved bool) (*Record, error) {
	delta := 0
	if approved {
		delta = -ClaimPenalty
	}
	return l.apply(ctx, account, delta, 0, 1)
}

// apply upserts the account row and applies the score delta with clamping
// done in SQL, so concurrent writers cannot push the score out of range.
func (l *PostgresLedger) apply(ctx context.Context, account string, scoreDelta, safeDays, claims int) (*Record, error) {
	r := &Record{Account: account}
	err := l.pool.QueryRow(ctx,
		`INSERT INTO reputation (account, score, safe_days, claims, updated_at)
		 VALUES ($1, LEAST($6, GREATEST($7, $2 + $3)), $4, $5, $8)
		 ON CONFLICT (account) DO UPDATE SET
		     score      = LEAST($6, GREATEST($7, reputation.score + $3)),
		     safe_days  = reputation.safe_days + $4,
		     claims     = reputation.claims + $5,
		     updated_at = $8
		 RETURNING score, safe_days, claims, updated_at`,
		account, BaselineScore, scoreDelta, safeDays, claims,
		MaxScore, MinScore, time.Now().UTC(),
	).Scan(&r.Score, &r.SafeDays, &r.Claims, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update reputation for %s: %w", account, err)
	}
	r.DiscountPercent = Discount(r.Score)

	l.logger.Debug("reputation updated",
		zap.String("account", account),
		zap.Int("score", r.Score),
	)
	return r, nil
}
