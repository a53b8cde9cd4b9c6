package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parashield/parashield/internal/protocol"
	"go.uber.org/zap"
)

// BalanceLockKey serialises concurrent balance mutations across all
// server instances. Exported so settlement transactions elsewhere can
// take the same lock. The value is arbitrary but must stay consistent.
const BalanceLockKey = int64(7_430_115_209)

// PostgresTreasury persists the custody pool to a PostgreSQL database.
// It implements the Treasury interface. The balance lives in a single
// row of treasury_balance; outbound movements go to treasury_transfers.
type PostgresTreasury struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresTreasury creates a PostgresTreasury backed by the given connection pool.
func NewPostgresTreasury(pool *pgxpool.Pool, logger *zap.Logger) *PostgresTreasury {
	return &PostgresTreasury{pool: pool, logger: logger}
}

// Fund implements Treasury.
func (t *PostgresTreasury) Fund(ctx context.Context, from string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	var balance int64
	if err := t.pool.QueryRow(ctx,
		`UPDATE treasury_balance SET balance = balance + $1 RETURNING balance`, amount,
	).Scan(&balance); err != nil {
		return 0, fmt.Errorf("fund treasury: %w", err)
	}
	t.logger.Info("treasury funded",
		zap.String("from", from),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	)
	return balance, nil
}

// Balance implements Treasury.
func (t *PostgresTreasury) Balance(ctx context.Context) (int64, error) {
	var balance int64
	if err := t.pool.QueryRow(ctx,
		`SELECT balance FROM treasury_balance`,
	).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read treasury balance: %w", err)
	}
	return balance, nil
}

// Solvent implements Treasury.
func (t *PostgresTreasury) Solvent(ctx context.Context, amount int64) (bool, error) {
	balance, err := t.Balance(ctx)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Pay implements Treasury. The check and the debit run in one transaction
// under an advisory lock, so two concurrent payouts cannot both pass the
// solvency check against the same balance.
func (t *PostgresTreasury) Pay(ctx context.Context, recipient string, amount int64, memo string) (*Transfer, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", BalanceLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM treasury_balance`).Scan(&balance); err != nil {
		return nil, fmt.Errorf("read treasury balance: %w", err)
	}
	if balance < amount {
		return nil, protocol.Solvency(MsgInsufficientBalance)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE treasury_balance SET balance = balance - $1`, amount,
	); err != nil {
		return nil, fmt.Errorf("debit treasury: %w", err)
	}

	tr := &Transfer{
		ID:        uuid.New(),
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO treasury_transfers (id, recipient, amount, memo, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		tr.ID, tr.Recipient, tr.Amount, tr.Memo, tr.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payout tx: %w", err)
	}
	return tr, nil
}

// Sweep implements Treasury.
func (t *PostgresTreasury) Sweep(ctx context.Context, recipient string) (int64, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", BalanceLockKey); err != nil {
		return 0, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var swept int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM treasury_balance`).Scan(&swept); err != nil {
		return 0, fmt.Errorf("read treasury balance: %w", err)
	}
	if swept == 0 {
		return 0, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `UPDATE treasury_balance SET balance = 0`); err != nil {
		return 0, fmt.Errorf("zero treasury balance: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO treasury_transfers (id, recipient, amount, memo, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), recipient, swept, "emergency withdraw", time.Now().UTC(),
	); err != nil {
		return 0, fmt.Errorf("insert sweep transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit sweep tx: %w", err)
	}

	t.logger.Warn("treasury swept",
		zap.String("recipient", recipient),
		zap.Int64("amount", swept),
	)
	return swept, nil
}

// Transfers implements Treasury.
func (t *PostgresTreasury) Transfers(ctx context.Context, limit int) ([]*Transfer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.pool.Query(ctx,
		`SELECT id, recipient, amount, memo, created_at
		 FROM treasury_transfers ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []*Transfer
	for rows.Next() {
		tr := &Transfer{}
		if err := rows.Scan(&tr.ID, &tr.Recipient, &tr.Amount, &tr.Memo, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
