package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parashield/parashield/internal/events"
	"github.com/parashield/parashield/internal/policy"
	"go.uber.org/zap"
)

// PolicyHandler handles HTTP requests for the coverage ledger.
type PolicyHandler struct {
	svc    *policy.Service
	admin  string
	events Notifier
	logger *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler. admin is the caller
// identity attached to privileged operations once the admin middleware
// has authenticated the request.
func NewPolicyHandler(svc *policy.Service, admin string, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{svc: svc, admin: admin, logger: logger}
}

// SetNotifier enables webhook notifications for coverage operations.
func (h *PolicyHandler) SetNotifier(n Notifier) { h.events = n }

// Register mounts the coverage routes on the given router group.
// adminAuth gates the premium withdrawal endpoint.
func (h *PolicyHandler) Register(rg *gin.RouterGroup, adminAuth ...gin.HandlerFunc) {
	cov := rg.Group("/coverage")
	{
		cov.POST("", h.Purchase)
		cov.GET("/:account", h.Check)
		cov.GET("/:account/policy", h.Details)
		cov.POST("/premiums/withdraw", adminRoute(adminAuth, h.WithdrawPremiums)...)
	}
}

// purchaseRequest is the payload for POST /coverage.
type purchaseRequest struct {
	Account    string `json:"account" binding:"required"`
	PaidAmount int64  `json:"paid_amount"`
}

// Purchase handles POST /coverage — buys a new policy.
func (h *PolicyHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	p, err := h.svc.Purchase(c.Request.Context(), req.Account, req.PaidAmount, now)
	if err != nil {
		fail(c, h.logger, "purchase coverage", err)
		return
	}

	shieldCoveragePurchasesTotal.Inc()
	emit(c, h.events, events.EventCoveragePurchased, map[string]string{
		"account":         p.Account,
		"premium_paid":    strconv.FormatInt(p.PremiumPaid, 10),
		"coverage_amount": strconv.FormatInt(p.CoverageAmount, 10),
		"expires_at":      p.ExpiresAt.Format(time.RFC3339),
	})
	c.JSON(http.StatusCreated, p)
}

// Check handles GET /coverage/:account — the active/amount/remaining projection.
func (h *PolicyHandler) Check(c *gin.Context) {
	now := time.Now().UTC()
	cov, err := h.svc.Check(c.Request.Context(), c.Param("account"), now)
	if err != nil {
		fail(c, h.logger, "check coverage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active":          cov.Active,
		"coverage_amount": cov.CoverageAmount,
		"time_remaining":  int64(cov.TimeRemaining.Seconds()),
	})
}

// Details handles GET /coverage/:account/policy — the full stored record.
func (h *PolicyHandler) Details(c *gin.Context) {
	p, err := h.svc.Details(c.Request.Context(), c.Param("account"))
	if errors.Is(err, policy.ErrNoPolicy) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no policy found"})
		return
	}
	if err != nil {
		fail(c, h.logger, "policy details", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// WithdrawPremiums handles POST /coverage/premiums/withdraw — admin sweep
// of the accumulated premium pool.
func (h *PolicyHandler) WithdrawPremiums(c *gin.Context) {
	drained, err := h.svc.WithdrawPremiums(c.Request.Context(), h.admin)
	if err != nil {
		fail(c, h.logger, "withdraw premiums", err)
		return
	}
	emit(c, h.events, events.EventPremiumsWithdrawn, map[string]string{
		"amount": strconv.FormatInt(drained, 10),
	})
	c.JSON(http.StatusOK, gin.H{"withdrawn": drained})
}
