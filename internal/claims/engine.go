package claims

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parashield/parashield/internal/policy"
	"github.com/parashield/parashield/internal/protocol"
	"github.com/parashield/parashield/internal/reputation"
	"github.com/parashield/parashield/internal/treasury"
	"go.uber.org/zap"
)

// Literal failure messages of the filing pipeline and the resolution
// operations. Client apps and tests match on these bit-exact; never
// reword them.
const (
	msgNoCoverage        = "No valid coverage found. Buy coverage first!"
	msgPhotoRequired     = "Accident photo required - upload photo to IPFS"
	msgLatitudeRequired  = "GPS latitude required - location proof needed"
	msgLongitudeRequired = "GPS longitude required - location proof needed"
	msgTimestampRequired = "Accident timestamp required"
	msgFutureTimestamp   = "Timestamp cannot be in future - invalid evidence"
	msgAccidentTooOld    = "Accident too old - must file within 24 hours"
	msgShortDescription  = "Description too short - minimum 10 characters required"
	msgDuplicateClaim    = "You already have a pending or approved claim"
	msgApproveNotAdmin   = "Only admin can approve claims"
	msgRejectNotAdmin    = "Only admin can reject claims"
	msgClaimNotPending   = "Claim is not pending"
)

// ErrAlreadyWired is returned when a one-time wiring call is repeated.
var ErrAlreadyWired = errors.New("component already wired")

// ErrNotWired is returned when the engine is used before its coverage
// ledger link has been established.
var ErrNotWired = errors.New("claims engine not wired to coverage ledger")

// CoverageLedger is the engine's view of the coverage ledger.
// *policy.Service satisfies this interface.
type CoverageLedger interface {
	Check(ctx context.Context, account string, now time.Time) (*policy.Coverage, error)
	MarkClaimed(ctx context.Context, account string) error
}

// PayoutPool is the engine's view of the treasury.
// Any treasury.Treasury satisfies this interface.
type PayoutPool interface {
	Solvent(ctx context.Context, amount int64) (bool, error)
	Pay(ctx context.Context, recipient string, amount int64, memo string) (*treasury.Transfer, error)
}

// ReputationLedger is the engine's view of the reputation ledger.
// Any reputation.Ledger satisfies this interface.
type ReputationLedger interface {
	RecordClaim(ctx context.Context, account string, approved bool) (*reputation.Record, error)
}

// Config carries the protocol constants the claims engine enforces.
type Config struct {
	// PayoutAmount is the fixed parametric payout per approved claim,
	// in shannon.
	PayoutAmount int64
	// ClaimWindow is the maximum age of the accident at filing time.
	ClaimWindow time.Duration
	// MinDescriptionLen is the minimum evidence description length.
	MinDescriptionLen int
}

// Engine validates and processes claims. It reads the coverage ledger,
// writes the reputation ledger, and instructs the treasury on approval.
//
// Every mutating operation runs whole under one mutex: all checks happen
// before the first write, so a failed operation leaves zero partial
// state.
type Engine struct {
	mu       sync.Mutex
	store    Store
	pool     PayoutPool
	coverage CoverageLedger   // wired once via SetCoverageLedger
	rep      ReputationLedger // wired once via SetReputationLedger
	settler  Settler          // wired once via SetSettler; nil on the memory backend
	cfg      Config
	admin    string
	logger   *zap.Logger
}

// NewEngine creates a claims engine. admin is the one account authorized
// to approve and reject claims. The coverage and reputation links are
// established by the one-time wiring calls below.
func NewEngine(store Store, pool PayoutPool, cfg Config, admin string, logger *zap.Logger) *Engine {
	return &Engine{store: store, pool: pool, cfg: cfg, admin: admin, logger: logger}
}

// SetCoverageLedger wires the coverage ledger. Settable exactly once.
func (e *Engine) SetCoverageLedger(cl CoverageLedger) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.coverage != nil {
		return ErrAlreadyWired
	}
	e.coverage = cl
	return nil
}

// SetReputationLedger wires the reputation ledger. Settable exactly once.
func (e *Engine) SetReputationLedger(rl ReputationLedger) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rep != nil {
		return ErrAlreadyWired
	}
	e.rep = rl
	return nil
}

// SetSettler wires an atomic settler for claim approvals. Settable
// exactly once. Without one, the engine falls back to sequential
// resolution with a compensating revert, which is only safe when all
// stores live in the same process memory.
func (e *Engine) SetSettler(s Settler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settler != nil {
		return ErrAlreadyWired
	}
	e.settler = s
	return nil
}

// File validates the evidence bundle and opens a pending claim. The
// validation pipeline is ordered and each check aborts independently
// with its exact message. No funds move at filing time.
func (e *Engine) File(ctx context.Context, account, notes string, ev Evidence, now time.Time) (*Claim, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.coverage == nil {
		return nil, ErrNotWired
	}

	cov, err := e.coverage.Check(ctx, account, now)
	if err != nil {
		return nil, err
	}
	if !cov.Active {
		return nil, protocol.Validation(msgNoCoverage)
	}
	if ev.PhotoRef == "" {
		return nil, protocol.Validation(msgPhotoRequired)
	}
	if ev.GPSLatitude == "" {
		return nil, protocol.Validation(msgLatitudeRequired)
	}
	if ev.GPSLongitude == "" {
		return nil, protocol.Validation(msgLongitudeRequired)
	}
	if ev.AccidentTimestamp == 0 {
		return nil, protocol.Validation(msgTimestampRequired)
	}
	if ev.AccidentTimestamp > now.Unix() {
		return nil, protocol.Validation(msgFutureTimestamp)
	}
	// Boundary inclusive: an accident exactly ClaimWindow old still files.
	if ev.AccidentTimestamp < now.Add(-e.cfg.ClaimWindow).Unix() {
		return nil, protocol.Validation(msgAccidentTooOld)
	}
	if len(ev.Description) < e.cfg.MinDescriptionLen {
		return nil, protocol.Validation(msgShortDescription)
	}

	prev, err := e.store.Get(ctx, account)
	if err != nil && !errors.Is(err, ErrNoClaim) {
		return nil, err
	}
	if prev != nil && prev.Open() {
		return nil, protocol.State(msgDuplicateClaim)
	}

	c := &Claim{
		ID:              uuid.New(),
		Account:         account,
		Status:          StatusPending,
		RequestedAmount: e.cfg.PayoutAmount,
		FiledAt:         now,
		Notes:           notes,
		Evidence:        ev,
	}
	if err := e.store.Put(ctx, c); err != nil {
		return nil, err
	}

	e.logger.Info("claim filed",
		zap.String("account", account),
		zap.String("claim_id", c.ID.String()),
		zap.Int64("requested", c.RequestedAmount),
	)
	return c, nil
}

// Approve resolves a pending claim in the claimant's favor: the claim
// turns terminal, the backing coverage is consumed, the treasury pays
// the fixed amount, and the reputation ledger records the claim.
//
// With a settler wired, all of that commits in one transaction; a
// failure anywhere leaves the claim pending and every ledger untouched.
// On the fallback path the status flip is persisted before the transfer
// is issued, so a reentrant caller can never observe a still-pending
// claim and trigger a second payout, and a failed transfer reverts the
// flip.
func (e *Engine) Approve(ctx context.Context, caller, account string, now time.Time) (*Claim, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return nil, protocol.Authorization(msgApproveNotAdmin)
	}

	c, err := e.store.Get(ctx, account)
	if errors.Is(err, ErrNoClaim) {
		return nil, protocol.State(msgClaimNotPending)
	}
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, protocol.State(msgClaimNotPending)
	}

	ok, err := e.pool.Solvent(ctx, c.RequestedAmount)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The claim stays pending; it can be approved once the
		// treasury is topped up.
		return nil, protocol.Solvency(treasury.MsgInsufficientBalance)
	}

	processed := now
	c.Status = StatusApproved
	c.ProcessedAt = &processed

	if e.settler != nil {
		if err := e.settler.Settle(ctx, c); err != nil {
			c.Status = StatusPending
			c.ProcessedAt = nil
			return nil, err
		}
	} else {
		if err := e.store.Put(ctx, c); err != nil {
			c.Status = StatusPending
			c.ProcessedAt = nil
			return nil, err
		}

		if _, err := e.pool.Pay(ctx, account, c.RequestedAmount, "claim payout "+c.ID.String()); err != nil {
			c.Status = StatusPending
			c.ProcessedAt = nil
			if putErr := e.store.Put(ctx, c); putErr != nil {
				e.logger.Error("failed to revert claim after payout failure",
					zap.String("account", account), zap.Error(putErr))
			}
			return nil, err
		}

		if err := e.coverage.MarkClaimed(ctx, account); err != nil {
			e.logger.Error("failed to consume coverage for approved claim",
				zap.String("account", account), zap.Error(err))
		}
		if e.rep != nil {
			if _, err := e.rep.RecordClaim(ctx, account, true); err != nil {
				e.logger.Error("failed to record approved claim in reputation ledger",
					zap.String("account", account), zap.Error(err))
			}
		}
	}

	e.logger.Info("claim approved",
		zap.String("account", account),
		zap.String("claim_id", c.ID.String()),
		zap.Int64("payout", c.RequestedAmount),
	)
	return c, nil
}

// Reject resolves a pending claim against the claimant. No funds move
// and the coverage stays intact, so a new claim may be filed.
func (e *Engine) Reject(ctx context.Context, caller, account, reason string, now time.Time) (*Claim, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return nil, protocol.Authorization(msgRejectNotAdmin)
	}

	c, err := e.store.Get(ctx, account)
	if errors.Is(err, ErrNoClaim) {
		return nil, protocol.State(msgClaimNotPending)
	}
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, protocol.State(msgClaimNotPending)
	}

	processed := now
	c.Status = StatusRejected
	c.ProcessedAt = &processed
	c.Resolution = reason
	if err := e.store.Put(ctx, c); err != nil {
		return nil, err
	}

	if e.rep != nil {
		if _, err := e.rep.RecordClaim(ctx, account, false); err != nil {
			e.logger.Error("failed to record rejected claim in reputation ledger",
				zap.String("account", account), zap.Error(err))
		}
	}

	e.logger.Info("claim rejected",
		zap.String("account", account),
		zap.String("claim_id", c.ID.String()),
		zap.String("reason", reason),
	)
	return c, nil
}

// Status returns the stored claim for account. Accounts that never
// filed read as a zero claim with StatusNone. Pure read.
func (e *Engine) Status(ctx context.Context, account string) (*Claim, error) {
	c, err := e.store.Get(ctx, account)
	if errors.Is(err, ErrNoClaim) {
		return &Claim{Account: account, Status: StatusNone}, nil
	}
	return c, err
}

// EvidenceFor returns the evidence bundle of the account's claim, or
// ErrNoClaim. Pure read.
func (e *Engine) EvidenceFor(ctx context.Context, account string) (*Evidence, error) {
	c, err := e.store.Get(ctx, account)
	if err != nil {
		return nil, err
	}
	ev := c.Evidence
	return &ev, nil
}
