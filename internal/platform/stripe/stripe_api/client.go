package stripe_api

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/metrics"
)

const metricType = "stripe"

// Client is the process-wide Stripe API client. It is built once from config
// and never touches the package-level stripe.Key.
type Client struct {
	api *client.API
}

type ClientOptions struct {
	SecretKey string
	// Backends overrides the API endpoints. Nil uses Stripe's defaults.
	Backends *stripe.Backends
}

func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		return nil, errors.New("opts is nil")
	}
	api := &client.API{}
	api.Init(opts.SecretKey, opts.Backends)
	return &Client{api: api}, nil
}

// New builds the client from application config.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.Stripe.SecretKey == "" {
		log.Warnw("stripe secret key is empty; billing calls will fail")
	}
	return NewClient(&ClientOptions{SecretKey: cfg.Stripe.SecretKey})
}

var _ billing.Provider = (*Client)(nil)

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	defer metrics.ObserveBusinessProcess(metricType, "get_subscription", time.Now())
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return c.api.Subscriptions.Get(subscriptionID, params)
}

func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	defer metrics.ObserveBusinessProcess(metricType, "create_customer", time.Now())
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	params.Context = ctx
	return c.api.Customers.New(params)
}

func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	defer metrics.ObserveBusinessProcess(metricType, "create_checkout_session", time.Now())
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	return c.api.CheckoutSessions.New(params)
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	defer metrics.ObserveBusinessProcess(metricType, "create_portal_session", time.Now())
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	return c.api.BillingPortalSessions.New(params)
}

// Module provides the client both as itself and as the billing provider.
var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(fx.Self()), fx.As(new(billing.Provider)))),
)
