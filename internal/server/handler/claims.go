package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parashield/parashield/internal/claims"
	"github.com/parashield/parashield/internal/events"
	"github.com/parashield/parashield/internal/fraud"
	"github.com/parashield/parashield/internal/reputation"
	"go.uber.org/zap"
)

// ClaimsHandler handles HTTP requests for the claims engine.
type ClaimsHandler struct {
	engine     *claims.Engine
	admin      string
	events     Notifier
	scorer     fraud.Scorer
	reputation reputation.Ledger
	logger     *zap.Logger
}

// NewClaimsHandler creates a new ClaimsHandler.
func NewClaimsHandler(engine *claims.Engine, admin string, logger *zap.Logger) *ClaimsHandler {
	return &ClaimsHandler{engine: engine, admin: admin, logger: logger}
}

// SetNotifier enables webhook notifications for claim lifecycle events.
func (h *ClaimsHandler) SetNotifier(n Notifier) { h.events = n }

// SetRiskScorer enables the claim risk endpoint. The scorer reads the
// claimant's reputation history from ledger.
func (h *ClaimsHandler) SetRiskScorer(scorer fraud.Scorer, ledger reputation.Ledger) {
	h.scorer = scorer
	h.reputation = ledger
}

// Register mounts the claims routes on the given router group.
// adminAuth gates the approve and reject endpoints.
func (h *ClaimsHandler) Register(rg *gin.RouterGroup, adminAuth ...gin.HandlerFunc) {
	cl := rg.Group("/claims")
	{
		cl.POST("", h.File)
		cl.GET("/:account", h.Status)
		cl.GET("/:account/evidence", h.Evidence)
		cl.POST("/:account/approve", adminRoute(adminAuth, h.Approve)...)
		cl.POST("/:account/reject", adminRoute(adminAuth, h.Reject)...)
		cl.GET("/:account/risk", adminRoute(adminAuth, h.Risk)...)
	}
}

// fileRequest is the payload for POST /claims.
type fileRequest struct {
	Account  string          `json:"account" binding:"required"`
	Notes    string          `json:"notes"`
	Evidence claims.Evidence `json:"evidence"`
}

// rejectRequest is the payload for POST /claims/:account/reject.
type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// File handles POST /claims — runs the evidence pipeline and opens a
// pending claim.
func (h *ClaimsHandler) File(c *gin.Context) {
	var req fileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	claim, err := h.engine.File(c.Request.Context(), req.Account, req.Notes, req.Evidence, now)
	if err != nil {
		fail(c, h.logger, "file claim", err)
		return
	}

	shieldClaimsFiledTotal.Inc()
	emit(c, h.events, events.EventClaimFiled, map[string]string{
		"account": claim.Account,
		"amount":  strconv.FormatInt(claim.RequestedAmount, 10),
	})
	c.JSON(http.StatusCreated, claim)
}

// Status handles GET /claims/:account — the stored claim, or a zero
// record with status "none".
func (h *ClaimsHandler) Status(c *gin.Context) {
	claim, err := h.engine.Status(c.Request.Context(), c.Param("account"))
	if err != nil {
		fail(c, h.logger, "claim status", err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// Evidence handles GET /claims/:account/evidence.
func (h *ClaimsHandler) Evidence(c *gin.Context) {
	ev, err := h.engine.EvidenceFor(c.Request.Context(), c.Param("account"))
	if errors.Is(err, claims.ErrNoClaim) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no claim found"})
		return
	}
	if err != nil {
		fail(c, h.logger, "claim evidence", err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// Approve handles POST /claims/:account/approve — admin resolution in
// the claimant's favor, with payout.
func (h *ClaimsHandler) Approve(c *gin.Context) {
	now := time.Now().UTC()
	claim, err := h.engine.Approve(c.Request.Context(), h.admin, c.Param("account"), now)
	if err != nil {
		fail(c, h.logger, "approve claim", err)
		return
	}

	shieldClaimsResolvedTotal.WithLabelValues("approved").Inc()
	shieldPayoutsShannonTotal.Add(float64(claim.RequestedAmount))
	emit(c, h.events, events.EventClaimApproved, map[string]string{
		"account": claim.Account,
		"payout":  strconv.FormatInt(claim.RequestedAmount, 10),
	})
	c.JSON(http.StatusOK, claim)
}

// Reject handles POST /claims/:account/reject — admin resolution against
// the claimant; no funds move.
func (h *ClaimsHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	claim, err := h.engine.Reject(c.Request.Context(), h.admin, c.Param("account"), req.Reason, now)
	if err != nil {
		fail(c, h.logger, "reject claim", err)
		return
	}

	shieldClaimsResolvedTotal.WithLabelValues("rejected").Inc()
	emit(c, h.events, events.EventClaimRejected, map[string]string{
		"account": claim.Account,
		"reason":  req.Reason,
	})
	c.JSON(http.StatusOK, claim)
}

// Risk handles GET /claims/:account/risk — an advisory fraud analysis
// of the account's current claim, for the administrator's resolution
// call.
func (h *ClaimsHandler) Risk(c *gin.Context) {
	if h.scorer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "risk analysis disabled"})
		return
	}

	account := c.Param("account")
	claim, err := h.engine.Status(c.Request.Context(), account)
	if err != nil {
		fail(c, h.logger, "claim risk", err)
		return
	}
	if claim.Status == claims.StatusNone {
		c.JSON(http.StatusNotFound, gin.H{"error": "no claim found"})
		return
	}

	history, err := h.reputation.Score(c.Request.Context(), account)
	if err != nil {
		fail(c, h.logger, "claim risk", err)
		return
	}

	report, err := h.scorer.Score(c.Request.Context(), claim, history)
	if err != nil {
		fail(c, h.logger, "claim risk", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
