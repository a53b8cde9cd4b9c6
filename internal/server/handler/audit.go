package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/parashield/parashield/internal/audit"
	"go.uber.org/zap"
)

// AuditTrail returns a middleware recording successful privileged
// operations on the audit chain. It runs after the admin gate, so every
// entry it writes corresponds to an authenticated 2xx outcome.
func AuditTrail(chain audit.Chain, actor string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		subject := c.Param("account")
		if subject == "" {
			subject = "protocol"
		}

		payload := map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": status,
		}

		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := chain.Append(ctx, subject, auditAction(c.FullPath()), actor, payload); err != nil {
			logger.Error("audit: append entry", zap.Error(err))
		}
	}
}

// auditAction derives a dotted action name from a route path, e.g.
// "/api/v1/claims/:account/approve" becomes "claims.approve".
func auditAction(fullPath string) string {
	path := strings.TrimPrefix(fullPath, "/api/v1/")
	parts := make([]string, 0, 3)
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") {
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ".")
}

// AuditHandler exposes the audit chain over HTTP.
type AuditHandler struct {
	chain  audit.Chain
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(chain audit.Chain, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{chain: chain, logger: logger}
}

// Register mounts the audit routes on the given router group. Reading
// entries is public; verification is admin-only.
func (h *AuditHandler) Register(rg *gin.RouterGroup, adminAuth ...gin.HandlerFunc) {
	au := rg.Group("/audit")
	{
		au.GET("", h.List)
		au.GET("/verify", adminRoute(adminAuth, h.Verify)...)
	}
}

// List handles GET /audit — recent entries plus the chain tip.
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.chain.List(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.logger, "audit list", err)
		return
	}
	root, err := h.chain.Root(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "audit root", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "root": root})
}

// Verify handles GET /audit/verify — walks the full chain and reports
// whether it is intact.
func (h *AuditHandler) Verify(c *gin.Context) {
	if err := h.chain.Verify(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"valid": false, "error": err.Error()})
		return
	}
	root, err := h.chain.Root(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "audit root", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "root": root})
}
