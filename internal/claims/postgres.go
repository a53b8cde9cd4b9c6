package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists claim records to a PostgreSQL database.
// It implements the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, account string) (*Claim, error) {
	c := &Claim{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, account, status, requested_amount, filed_at, processed_at, notes, resolution,
		        photo_ref, gps_latitude, gps_longitude, accident_timestamp, police_report_id, description
		 FROM claims WHERE account = $1`, account,
	).Scan(
		&c.ID, &c.Account, &c.Status, &c.RequestedAmount, &c.FiledAt, &c.ProcessedAt,
		&c.Notes, &c.Resolution,
		&c.Evidence.PhotoRef, &c.Evidence.GPSLatitude, &c.Evidence.GPSLongitude,
		&c.Evidence.AccidentTimestamp, &c.Evidence.PoliceReportID, &c.Evidence.Description,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoClaim
	}
	if err != nil {
		return nil, fmt.Errorf("get claim for %s: %w", account, err)
	}
	return c, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, c *Claim) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claims (
		     id, account, status, requested_amount, filed_at, processed_at, notes, resolution,
		     photo_ref, gps_latitude, gps_longitude, accident_timestamp, police_report_id, description
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (account) DO UPDATE SET
		     id                 = EXCLUDED.id,
		     status             = EXCLUDED.status,
		     requested_amount   = EXCLUDED.requested_amount,
		     filed_at           = EXCLUDED.filed_at,
		     processed_at       = EXCLUDED.processed_at,
		     notes              = EXCLUDED.notes,
		     resolution         = EXCLUDED.resolution,
		     photo_ref          = EXCLUDED.photo_ref,
		     gps_latitude       = EXCLUDED.gps_latitude,
		     gps_longitude      = EXCLUDED.gps_longitude,
		     accident_timestamp = EXCLUDED.accident_timestamp,
		     police_report_id   = EXCLUDED.police_report_id,
		     description        = EXCLUDED.description`,
		c.ID, c.Account, c.Status, c.RequestedAmount, c.FiledAt, c.ProcessedAt,
		c.Notes, c.Resolution,
		c.Evidence.PhotoRef, c.Evidence.GPSLatitude, c.Evidence.GPSLongitude,
		c.Evidence.AccidentTimestamp, c.Evidence.PoliceReportID, c.Evidence.Description,
	)
	if err != nil {
		return fmt.Errorf("upsert claim: %w", err)
	}
	return nil
}

// PendingExposure implements Store.
func (s *PostgresStore) PendingExposure(ctx context.Context) (int, int64, error) {
	var count int
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(requested_amount), 0) FROM claims WHERE status = 'pending'`,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("pending exposure: %w", err)
	}
	return count, total, nil
}
