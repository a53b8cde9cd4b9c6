// Package solvency runs the treasury watchdog: it periodically compares
// the payout pool balance against the total exposure of pending claims
// and raises an alert when the pool could not honor every approval.
// The monitor is advisory only; it never blocks filings or resolutions,
// at resolution time the claims engine makes the binding solvency check.
package solvency

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	solvencyPendingClaims = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parashield_solvency_pending_claims",
		Help: "Number of claims currently pending resolution.",
	})
	solvencyPendingExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parashield_solvency_pending_exposure_shannon",
		Help: "Total payout exposure of pending claims in shannon.",
	})
	solvencyDeficit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parashield_solvency_deficit_shannon",
		Help: "Shortfall between pending exposure and treasury balance in shannon. Zero when solvent.",
	})
)

// Config holds solvency monitor configuration.
type Config struct {
	CheckInterval time.Duration
}

// BalanceReader reports the treasury balance.
type BalanceReader interface {
	Balance(ctx context.Context) (int64, error)
}

// ExposureReader reports pending claim exposure.
type ExposureReader interface {
	PendingExposure(ctx context.Context) (count int, total int64, err error)
}

// EventDispatchFunc is an optional callback for dispatching insolvency events.
type EventDispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// Monitor periodically checks treasury solvency against pending exposure.
type Monitor struct {
	pool      BalanceReader
	claims    ExposureReader
	cfg       Config
	onEvent   EventDispatchFunc
	eventType string
	logger    *zap.Logger

	insolvent bool // edge-trigger: dispatch only on solvent -> insolvent
}

// New creates a new Monitor.
func New(pool BalanceReader, claims ExposureReader, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	return &Monitor{
		pool:   pool,
		claims: claims,
		cfg:    cfg,
		logger: logger,
	}
}

// SetEventDispatch configures the insolvency event callback.
func (m *Monitor) SetEventDispatch(fn EventDispatchFunc, eventType string) {
	m.onEvent = fn
	m.eventType = eventType
}

// Start runs the check loop until quit is signalled.
func (m *Monitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			m.CheckOnce(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// CheckOnce runs a single solvency check, updates the gauges, and
// reports the deficit if the pool cannot cover pending exposure.
func (m *Monitor) CheckOnce(ctx context.Context) {
	balance, err := m.pool.Balance(ctx)
	if err != nil {
		m.logger.Error("solvency: treasury balance", zap.Error(err))
		return
	}
	count, exposure, err := m.claims.PendingExposure(ctx)
	if err != nil {
		m.logger.Error("solvency: pending exposure", zap.Error(err))
		return
	}

	deficit := exposure - balance
	if deficit < 0 {
		deficit = 0
	}

	solvencyPendingClaims.Set(float64(count))
	solvencyPendingExposure.Set(float64(exposure))
	solvencyDeficit.Set(float64(deficit))

	if deficit == 0 {
		m.insolvent = false
		return
	}

	m.logger.Warn("solvency: treasury cannot cover pending claims",
		zap.Int64("balance", balance),
		zap.Int64("exposure", exposure),
		zap.Int64("deficit", deficit),
		zap.Int("pending_claims", count),
	)

	if !m.insolvent && m.onEvent != nil {
		m.onEvent(ctx, m.eventType, map[string]string{
			"balance":        strconv.FormatInt(balance, 10),
			"exposure":       strconv.FormatInt(exposure, 10),
			"deficit":        strconv.FormatInt(deficit, 10),
			"pending_claims": strconv.Itoa(count),
		})
	}
	m.insolvent = true
}
