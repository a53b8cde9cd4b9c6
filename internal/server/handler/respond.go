// Package handler exposes the ParaShield protocol over HTTP with gin.
//
// Handlers translate requests into core operations, stamp the host
// clock once per request, and map the protocol error taxonomy onto
// HTTP statuses. All business rules live below this layer.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parashield/parashield/internal/protocol"
	"go.uber.org/zap"
)

// adminRoute builds the handler chain for a privileged route: the admin
// middleware stack followed by the endpoint itself. The chain is copied
// so routes never share a backing array.
func adminRoute(adminAuth []gin.HandlerFunc, endpoint gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(adminAuth)+1)
	chain = append(chain, adminAuth...)
	return append(chain, endpoint)
}

// statusFor maps a protocol error class onto an HTTP status.
func statusFor(class protocol.Class) int {
	switch class {
	case protocol.ClassValidation:
		return http.StatusBadRequest
	case protocol.ClassAuthorization:
		return http.StatusForbidden
	case protocol.ClassState:
		return http.StatusConflict
	case protocol.ClassSolvency:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// fail writes the error response for err. Protocol errors surface their
// message verbatim — clients match on the exact text; anything else is
// an infrastructure failure and stays opaque.
func fail(c *gin.Context, logger *zap.Logger, op string, err error) {
	if class, ok := protocol.ClassOf(err); ok {
		c.JSON(statusFor(class), gin.H{"error": err.Error()})
		return
	}
	logger.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
