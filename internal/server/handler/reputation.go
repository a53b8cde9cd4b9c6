package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/parashield/parashield/internal/events"
	"github.com/parashield/parashield/internal/reputation"
	"go.uber.org/zap"
)

// ReputationHandler handles HTTP requests for the reputation ledger.
type ReputationHandler struct {
	ledger      reputation.Ledger
	basePremium int64
	events      Notifier
	logger      *zap.Logger
}

// NewReputationHandler creates a new ReputationHandler. basePremium is
// the protocol premium used for the discounted-premium projection.
func NewReputationHandler(ledger reputation.Ledger, basePremium int64, logger *zap.Logger) *ReputationHandler {
	return &ReputationHandler{ledger: ledger, basePremium: basePremium, logger: logger}
}

// SetNotifier enables webhook notifications for reputation credits.
func (h *ReputationHandler) SetNotifier(n Notifier) { h.events = n }

// Register mounts the reputation routes on the given router group.
// adminAuth gates the safe-day credit endpoint.
func (h *ReputationHandler) Register(rg *gin.RouterGroup, adminAuth ...gin.HandlerFunc) {
	rep := rg.Group("/reputation")
	{
		rep.GET("/:account", h.Score)
		rep.GET("/:account/premium", h.Premium)
		rep.POST("/:account/safe-day", adminRoute(adminAuth, h.AddSafeDay)...)
	}
}

// Score handles GET /reputation/:account.
func (h *ReputationHandler) Score(c *gin.Context) {
	r, err := h.ledger.Score(c.Request.Context(), c.Param("account"))
	if err != nil {
		fail(c, h.logger, "reputation score", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Premium handles GET /reputation/:account/premium — the base premium
// with the account's discount tier applied.
func (h *ReputationHandler) Premium(c *gin.Context) {
	r, err := h.ledger.Score(c.Request.Context(), c.Param("account"))
	if err != nil {
		fail(c, h.logger, "reputation premium", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"base_premium":       h.basePremium,
		"discount_percent":   r.DiscountPercent,
		"discounted_premium": r.DiscountedPremium(h.basePremium),
	})
}

// AddSafeDay handles POST /reputation/:account/safe-day — admin credit
// for a claim-free coverage day.
func (h *ReputationHandler) AddSafeDay(c *gin.Context) {
	r, err := h.ledger.AddSafeDay(c.Request.Context(), c.Param("account"))
	if err != nil {
		fail(c, h.logger, "add safe day", err)
		return
	}
	emit(c, h.events, events.EventSafeDayCredited, map[string]string{
		"account": r.Account,
		"score":   strconv.Itoa(r.Score),
	})
	c.JSON(http.StatusOK, r)
}
