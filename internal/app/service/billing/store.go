package billing

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/types"
)

// Provider is the subset of the billing provider API this service calls.
type Provider interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
}

// UserStore resolves local users. Lookups return (nil, nil) when nothing matches.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	// ClaimCustomerID stores customerID on the user unless one is already
	// set, and returns the id that ends up stored.
	ClaimCustomerID(ctx context.Context, userID, customerID string) (string, error)
}

// SubscriptionChange is a read-modify-write of one subscription row keyed by
// its external id.
type SubscriptionChange struct {
	StripeSubscriptionID string
	EventID              string
	EventAt              time.Time
	Reason               types.SubscriptionChangeReason
	Apply                func(sub *models.Subscription)
}

// Store persists subscription state.
type Store interface {
	// CreateSubscription inserts sub unless a row with the same external id
	// exists. created is false when the insert hit that conflict.
	CreateSubscription(ctx context.Context, sub *models.Subscription, eventID string) (created bool, err error)
	// ApplyChange locks the row, skips the change if the row has seen a newer
	// event, and otherwise applies and saves it. It reports OutcomeApplied,
	// OutcomeStale or OutcomeUnresolvedSubscription.
	ApplyChange(ctx context.Context, change SubscriptionChange) (Outcome, error)
}
