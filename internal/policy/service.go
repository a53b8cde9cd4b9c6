package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parashield/parashield/internal/protocol"
	"go.uber.org/zap"
)

// Config carries the protocol constants the coverage ledger enforces.
type Config struct {
	// PremiumAmount is the exact payment required to purchase coverage,
	// in shannon.
	PremiumAmount int64
	// CoverageAmount is the entitlement recorded on each policy.
	CoverageAmount int64
	// Duration is the policy lifetime from purchase.
	Duration time.Duration
}

// Service contains the business rules of the coverage ledger.
type Service struct {
	store  Store
	cfg    Config
	admin  string
	logger *zap.Logger
}

// NewService creates a coverage ledger service. admin is the one account
// authorized to withdraw accumulated premiums.
func NewService(store Store, cfg Config, admin string, logger *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, admin: admin, logger: logger}
}

// Purchase creates a new policy for account. paidAmount must equal the
// fixed premium exactly; a purchase while an unexpired, unconsumed policy
// exists is refused. The premium is retained in the ledger's pool until
// the administrator withdraws it.
func (s *Service) Purchase(ctx context.Context, account string, paidAmount int64, now time.Time) (*Policy, error) {
	if paidAmount != s.cfg.PremiumAmount {
		return nil, protocol.Validation(fmt.Sprintf(
			"Must send exactly %s SHM for coverage", protocol.FormatTokens(s.cfg.PremiumAmount)))
	}

	existing, err := s.store.Get(ctx, account)
	if err != nil && !errors.Is(err, ErrNoPolicy) {
		return nil, err
	}
	if existing != nil && existing.ActiveAt(now) {
		return nil, protocol.State("You already have active coverage")
	}

	p := &Policy{
		Account:        account,
		CoverageAmount: s.cfg.CoverageAmount,
		PremiumPaid:    paidAmount,
		PurchasedAt:    now,
		ExpiresAt:      now.Add(s.cfg.Duration),
	}
	if err := s.store.Put(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("coverage purchased",
		zap.String("account", account),
		zap.Int64("premium", paidAmount),
		zap.Time("expires_at", p.ExpiresAt),
	)
	return p, nil
}

// Check returns the coverage projection for account at now. Pure read.
// Accounts with no policy read as inactive with zero coverage.
func (s *Service) Check(ctx context.Context, account string, now time.Time) (*Coverage, error) {
	p, err := s.store.Get(ctx, account)
	if errors.Is(err, ErrNoPolicy) {
		return &Coverage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Coverage{
		Active:         p.ActiveAt(now),
		CoverageAmount: p.CoverageAmount,
		TimeRemaining:  p.TimeRemaining(now),
	}, nil
}

// Details returns the stored policy record, or ErrNoPolicy.
func (s *Service) Details(ctx context.Context, account string) (*Policy, error) {
	return s.store.Get(ctx, account)
}

// MarkClaimed flags the account's policy as consumed by an approved
// claim. Called by the claims engine inside the approval critical
// section; afterwards Check reports the coverage inactive.
func (s *Service) MarkClaimed(ctx context.Context, account string) error {
	return s.store.MarkClaimed(ctx, account)
}

// PremiumPool returns the accumulated, not-yet-withdrawn premium income.
func (s *Service) PremiumPool(ctx context.Context) (int64, error) {
	return s.store.PremiumPool(ctx)
}

// WithdrawPremiums sweeps the premium pool to the administrator.
// caller must be the administrator account.
func (s *Service) WithdrawPremiums(ctx context.Context, caller string) (int64, error) {
	if caller != s.admin {
		return 0, protocol.Authorization("Only admin can withdraw premiums")
	}
	drained, err := s.store.DrainPremiumPool(ctx)
	if err != nil {
		return 0, err
	}
	if drained > 0 {
		s.logger.Info("premiums withdrawn",
			zap.String("caller", caller),
			zap.Int64("amount", drained),
		)
	}
	return drained, nil
}
