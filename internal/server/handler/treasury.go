package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/parashield/parashield/internal/events"
	"github.com/parashield/parashield/internal/treasury"
	"go.uber.org/zap"
)

// TreasuryHandler handles HTTP requests for the payout custody pool.
type TreasuryHandler struct {
	pool   treasury.Treasury
	admin  string
	events Notifier
	logger *zap.Logger
}

// NewTreasuryHandler creates a new TreasuryHandler.
func NewTreasuryHandler(pool treasury.Treasury, admin string, logger *zap.Logger) *TreasuryHandler {
	return &TreasuryHandler{pool: pool, admin: admin, logger: logger}
}

// SetNotifier enables webhook notifications for treasury movements.
func (h *TreasuryHandler) SetNotifier(n Notifier) { h.events = n }

// Register mounts the treasury routes on the given router group.
// adminAuth gates the emergency withdraw endpoint.
func (h *TreasuryHandler) Register(rg *gin.RouterGroup, adminAuth ...gin.HandlerFunc) {
	tr := rg.Group("/treasury")
	{
		tr.GET("", h.Balance)
		tr.GET("/transfers", h.Transfers)
		tr.POST("/fund", h.Fund)
		tr.POST("/emergency-withdraw", adminRoute(adminAuth, h.EmergencyWithdraw)...)
	}
}

// fundRequest is the payload for POST /treasury/fund.
type fundRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount" binding:"required"`
}

// Balance handles GET /treasury.
func (h *TreasuryHandler) Balance(c *gin.Context) {
	balance, err := h.pool.Balance(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "treasury balance", err)
		return
	}
	shieldTreasuryBalance.Set(float64(balance))
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Transfers handles GET /treasury/transfers — recent outbound movements.
func (h *TreasuryHandler) Transfers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	transfers, err := h.pool.Transfers(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.logger, "treasury transfers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": transfers})
}

// Fund handles POST /treasury/fund — tops up the payout pool. Callable
// by any party.
func (h *TreasuryHandler) Fund(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": treasury.ErrNonPositiveAmount.Error()})
		return
	}

	balance, err := h.pool.Fund(c.Request.Context(), req.Account, req.Amount)
	if err != nil {
		fail(c, h.logger, "fund treasury", err)
		return
	}
	shieldTreasuryBalance.Set(float64(balance))
	emit(c, h.events, events.EventTreasuryFunded, map[string]string{
		"account": req.Account,
		"amount":  strconv.FormatInt(req.Amount, 10),
		"balance": strconv.FormatInt(balance, 10),
	})
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// EmergencyWithdraw handles POST /treasury/emergency-withdraw — the admin
// circuit breaker. Sweeping leaves pending claims without solvency
// backing until the pool is refunded; that is the operator's call.
func (h *TreasuryHandler) EmergencyWithdraw(c *gin.Context) {
	swept, err := h.pool.Sweep(c.Request.Context(), h.admin)
	if err != nil {
		fail(c, h.logger, "emergency withdraw", err)
		return
	}
	shieldTreasuryBalance.Set(0)
	emit(c, h.events, events.EventTreasurySwept, map[string]string{
		"amount": strconv.FormatInt(swept, 10),
	})
	c.JSON(http.StatusOK, gin.H{"withdrawn": swept})
}
