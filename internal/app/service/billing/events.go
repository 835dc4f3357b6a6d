package billing

import (
	"time"

	"github.com/fatflowers/contactbook/pkg/types"
)

const (
	EventTypeCheckoutCompleted   = "checkout.session.completed"
	EventTypeSubscriptionUpdated = "customer.subscription.updated"
	EventTypeSubscriptionDeleted = "customer.subscription.deleted"
)

// EventMeta is the envelope shared by every verified event.
type EventMeta struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created time.Time `json:"created"`
}

func (m EventMeta) Meta() EventMeta { return m }

// Event is a verified provider event. The set of implementations is closed:
// CheckoutCompleted, SubscriptionUpdated, SubscriptionDeleted and Unrecognized.
type Event interface {
	Meta() EventMeta
	sealed()
}

// CheckoutCompleted is emitted when a hosted checkout finishes.
type CheckoutCompleted struct {
	EventMeta
	SessionID      string `json:"session_id"`
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
}

// SubscriptionUpdated carries the provider's current view of a subscription.
type SubscriptionUpdated struct {
	EventMeta
	SubscriptionID     string                   `json:"subscription_id"`
	Status             types.SubscriptionStatus `json:"status"`
	PriceID            string                   `json:"price_id"`
	CurrentPeriodStart time.Time                `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	CancelAtPeriodEnd  bool                     `json:"cancel_at_period_end"`
}

// SubscriptionDeleted is emitted when a subscription ends for good.
type SubscriptionDeleted struct {
	EventMeta
	SubscriptionID string `json:"subscription_id"`
}

// Unrecognized is any event type this service does not act on.
type Unrecognized struct {
	EventMeta
}

func (CheckoutCompleted) sealed()   {}
func (SubscriptionUpdated) sealed() {}
func (SubscriptionDeleted) sealed() {}
func (Unrecognized) sealed()        {}

// FromUnix converts provider epoch seconds to UTC. All provider timestamps go
// through here.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// SubscriptionIDOf returns the external subscription id an event refers to, if any.
func SubscriptionIDOf(ev Event) string {
	switch e := ev.(type) {
	case CheckoutCompleted:
		return e.SubscriptionID
	case SubscriptionUpdated:
		return e.SubscriptionID
	case SubscriptionDeleted:
		return e.SubscriptionID
	default:
		return ""
	}
}
