package billing

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/types"
)

type CheckoutSessionResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type PortalSessionResult struct {
	URL string `json:"url"`
}

// Service starts provider-hosted flows (checkout, customer portal) for a user.
type Service struct {
	cfg      *config.Config
	provider Provider
	users    UserStore
	log      *zap.SugaredLogger
}

func NewService(cfg *config.Config, provider Provider, users UserStore, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, provider: provider, users: users, log: log}
}

// CreateCheckoutSession opens a subscription checkout for userID, creating
// the provider customer on first use.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string) (*CheckoutSessionResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %w", ErrPersistence, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", types.ErrNotFound)
	}

	customerID := lo.FromPtr(user.StripeCustomerID)
	if customerID == "" {
		cctx, cancel := s.withTimeout(ctx)
		customer, err := s.provider.CreateCustomer(cctx, user.Email, user.ID)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%w: create customer: %w", ErrUpstreamProvider, err)
		}
		stored, err := s.users.ClaimCustomerID(ctx, user.ID, customer.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: save customer id: %w", ErrPersistence, err)
		}
		l := logctx.FromCtx(ctx, s.log)
		if stored != customer.ID {
			// A concurrent checkout claimed the slot first; its customer wins.
			l.Warnw("billing_customer_orphaned", "customer_id", customer.ID, "stored_customer_id", stored)
		} else {
			l.Infow("billing_customer_created", "customer_id", stored)
		}
		customerID = stored
	}

	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session, err := s.provider.CreateCheckoutSession(cctx, customerID, s.cfg.Stripe.PriceID, s.cfg.CheckoutSuccessURL(), s.cfg.CheckoutCancelURL())
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %w", ErrUpstreamProvider, err)
	}
	return &CheckoutSessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession opens the provider's self-service portal. Users that
// never started a checkout have no customer and get ErrNotFound.
func (s *Service) CreatePortalSession(ctx context.Context, userID string) (*PortalSessionResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %w", ErrPersistence, err)
	}
	if user == nil || lo.FromPtr(user.StripeCustomerID) == "" {
		return nil, fmt.Errorf("%w: no subscription found", types.ErrNotFound)
	}

	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session, err := s.provider.CreatePortalSession(cctx, *user.StripeCustomerID, s.cfg.PortalReturnURL())
	if err != nil {
		return nil, fmt.Errorf("%w: create portal session: %w", ErrUpstreamProvider, err)
	}
	return &PortalSessionResult{URL: session.URL}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := s.cfg.Stripe.APITimeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
