package billing

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v76"

	"github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/types"
)

type fakeProvider struct {
	mu       sync.Mutex
	subs     map[string]*stripe.Subscription
	err      error
	calls    int
	lastCtx  context.Context
	customer string
	sessions int
}

func (p *fakeProvider) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastCtx = ctx
	if p.err != nil {
		return nil, p.err
	}
	sub, ok := p.subs[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: 404, Msg: "No such subscription"}
	}
	return sub, nil
}

func (p *fakeProvider) CreateCustomer(_ context.Context, _, _ string) (*stripe.Customer, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &stripe.Customer{ID: p.customer}, nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, customerID, priceID, _, _ string) (*stripe.CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.sessions++
	return &stripe.CheckoutSession{ID: "cs_" + customerID + "_" + priceID, URL: "https://checkout.example/" + customerID}, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &stripe.BillingPortalSession{URL: "https://portal.example/" + customerID + "?return=" + returnURL}, nil
}

type fakeUsers struct {
	byID map[string]*models.User
	err  error
	// claimedFirst simulates a concurrent checkout that stored its customer
	// between our read and our claim.
	claimedFirst string
}

func (u *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.byID[id], nil
}

func (u *fakeUsers) FindByCustomerID(_ context.Context, customerID string) (*models.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	for _, usr := range u.byID {
		if usr.StripeCustomerID != nil && *usr.StripeCustomerID == customerID {
			return usr, nil
		}
	}
	return nil, nil
}

func (u *fakeUsers) ClaimCustomerID(_ context.Context, userID, customerID string) (string, error) {
	usr, ok := u.byID[userID]
	if !ok {
		return "", types.ErrNotFound
	}
	if u.claimedFirst != "" && usr.StripeCustomerID == nil {
		usr.StripeCustomerID = lo.ToPtr(u.claimedFirst)
	}
	if usr.StripeCustomerID == nil {
		usr.StripeCustomerID = &customerID
	}
	return *usr.StripeCustomerID, nil
}

// memStore mirrors the database semantics the reconciler relies on: a unique
// external id and a last-event guard on updates.
type memStore struct {
	mu     sync.Mutex
	rows   map[string]*models.Subscription
	err    error
	writes int
}

func newMemStore() *memStore { return &memStore{rows: map[string]*models.Subscription{}} }

func (s *memStore) CreateSubscription(_ context.Context, sub *models.Subscription, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.rows[sub.StripeSubscriptionID]; ok {
		return false, nil
	}
	cp := *sub
	s.rows[sub.StripeSubscriptionID] = &cp
	s.writes++
	return true, nil
}

func (s *memStore) ApplyChange(_ context.Context, ch SubscriptionChange) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	row, ok := s.rows[ch.StripeSubscriptionID]
	if !ok {
		return OutcomeUnresolvedSubscription, nil
	}
	if ch.EventAt.Before(row.LastEventAt) {
		return OutcomeStale, nil
	}
	ch.Apply(row)
	row.LastEventAt = ch.EventAt
	s.writes++
	return OutcomeApplied, nil
}

func (s *memStore) get(id string) *models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}
