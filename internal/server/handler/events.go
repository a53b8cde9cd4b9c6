package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parashield/parashield/internal/events"
	"go.uber.org/zap"
)

// Notifier fans out protocol events to registered webhook subscribers.
// Handlers treat it as optional; a nil Notifier disables notifications.
type Notifier interface {
	Dispatch(ctx context.Context, eventType string, payload map[string]string)
}

// emit sends an event through n if one is configured.
func emit(c *gin.Context, n Notifier, eventType string, payload map[string]string) {
	if n == nil {
		return
	}
	n.Dispatch(c.Request.Context(), eventType, payload)
}

// WebhooksHandler manages webhook subscriptions over HTTP.
type WebhooksHandler struct {
	dispatcher *events.Dispatcher
	logger     *zap.Logger
}

// NewWebhooksHandler creates a new WebhooksHandler.
func NewWebhooksHandler(dispatcher *events.Dispatcher, logger *zap.Logger) *WebhooksHandler {
	return &WebhooksHandler{dispatcher: dispatcher, logger: logger}
}

// Register mounts the webhook subscription routes. The whole surface is
// admin-only.
func (h *WebhooksHandler) Register(rg *gin.RouterGroup, adminAuth ...gin.HandlerFunc) {
	wh := rg.Group("/webhooks", adminAuth...)
	{
		wh.POST("", h.Create)
		wh.GET("", h.List)
		wh.DELETE("/:id", h.Delete)
	}
}

// subscriptionCreated is the response for POST /webhooks. It is the only
// place the signing secret is ever revealed.
type subscriptionCreated struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /webhooks — registers a subscription and returns
// its signing secret once.
func (h *WebhooksHandler) Create(c *gin.Context) {
	var req events.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.dispatcher.Subscribe(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.logger, "create webhook", err)
		return
	}

	c.JSON(http.StatusCreated, subscriptionCreated{
		ID:        sub.ID,
		URL:       sub.URL,
		Events:    sub.Events,
		Secret:    sub.Secret,
		CreatedAt: sub.CreatedAt,
	})
}

// List handles GET /webhooks.
func (h *WebhooksHandler) List(c *gin.Context) {
	subs, err := h.dispatcher.List(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "list webhooks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// Delete handles DELETE /webhooks/:id.
func (h *WebhooksHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	if err := h.dispatcher.Unsubscribe(c.Request.Context(), id); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": events.ErrNotFound.Error()})
			return
		}
		fail(c, h.logger, "delete webhook", err)
		return
	}
	c.Status(http.StatusNoContent)
}
