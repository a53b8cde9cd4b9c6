// Package events delivers protocol state changes to subscribed endpoints
// as signed webhooks. Every purchase, filing, resolution, and treasury
// movement produces one event; subscribers register a URL and an
// event-type filter and receive matching events as JSON POSTs with an
// HMAC-SHA256 signature.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the protocol.
const (
	EventCoveragePurchased = "coverage.purchased"
	EventClaimFiled        = "claim.filed"
	EventClaimApproved     = "claim.approved"
	EventClaimRejected     = "claim.rejected"
	EventTreasuryFunded    = "treasury.funded"
	EventTreasurySwept     = "treasury.swept"
	EventPremiumsWithdrawn = "premiums.withdrawn"
	EventSafeDayCredited   = "reputation.safe-day"
	EventTreasuryInsolvent = "treasury.insolvent"
)

// Subscription is one registered webhook endpoint.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"` // never returned in API responses after creation
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// matches reports whether the subscription wants the given event type.
func (s *Subscription) matches(eventType string) bool {
	if !s.Active {
		return false
	}
	for _, e := range s.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// Event is the JSON body POSTed to matching subscriptions.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	EventType      string    `json:"event_type"`
	StatusCode     int       `json:"status_code"`
	Attempt        int       `json:"attempt"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for registering a subscription.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Events []string `json:"events" binding:"required"`
}
