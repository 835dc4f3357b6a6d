package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/tool"
	"github.com/fatflowers/contactbook/pkg/types"
)

type Outcome string

const (
	OutcomeApplied                Outcome = "applied"
	OutcomeDuplicate              Outcome = "duplicate"
	OutcomeIgnored                Outcome = "ignored"
	OutcomeUnresolvedUser         Outcome = "unresolved_user"
	OutcomeUnresolvedSubscription Outcome = "unresolved_subscription"
	OutcomeStale                  Outcome = "stale"
)

// Reconciler maps verified events onto local subscription rows. Every
// operation is safe to repeat for the same event.
type Reconciler struct {
	provider Provider
	users    UserStore
	store    Store
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func NewReconciler(cfg *config.Config, provider Provider, users UserStore, store Store, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		provider: provider,
		users:    users,
		store:    store,
		timeout:  cfg.Stripe.APITimeout,
		log:      log,
	}
}

// Reconcile applies ev. Unresolved users and subscriptions are reported
// through the outcome with a nil error; only provider and store failures
// return errors (wrapping ErrUpstreamProvider or ErrPersistence).
func (r *Reconciler) Reconcile(ctx context.Context, ev Event) (Outcome, error) {
	l := logctx.FromCtx(ctx, r.log).With("event_id", ev.Meta().ID, "event_type", ev.Meta().Type)

	switch e := ev.(type) {
	case CheckoutCompleted:
		return r.checkoutCompleted(ctx, l, e)
	case SubscriptionUpdated:
		return r.applyChange(ctx, l, SubscriptionChange{
			StripeSubscriptionID: e.SubscriptionID,
			EventID:              e.ID,
			EventAt:              e.Created,
			Reason:               types.SubscriptionChangeReasonSubscriptionUpdated,
			Apply: func(sub *models.Subscription) {
				sub.Status = e.Status
				sub.CurrentPeriodStart = e.CurrentPeriodStart
				sub.CurrentPeriodEnd = e.CurrentPeriodEnd
				sub.CancelAtPeriodEnd = e.CancelAtPeriodEnd
				if e.PriceID != "" {
					sub.StripePriceID = e.PriceID
				}
			},
		})
	case SubscriptionDeleted:
		return r.applyChange(ctx, l, SubscriptionChange{
			StripeSubscriptionID: e.SubscriptionID,
			EventID:              e.ID,
			EventAt:              e.Created,
			Reason:               types.SubscriptionChangeReasonSubscriptionDeleted,
			Apply: func(sub *models.Subscription) {
				sub.Status = types.SubscriptionStatusCanceled
			},
		})
	default:
		l.Debugw("webhook_event_ignored")
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, l *zap.SugaredLogger, e CheckoutCompleted) (Outcome, error) {
	if e.SubscriptionID == "" || e.CustomerID == "" {
		l.Infow("webhook_checkout_without_subscription", "session_id", e.SessionID)
		return OutcomeIgnored, nil
	}

	// No local state is written until the provider lookup succeeds.
	lookupCtx, cancel := r.withTimeout(ctx)
	sub, err := r.provider.GetSubscription(lookupCtx, e.SubscriptionID)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: retrieve subscription %s: %w", ErrUpstreamProvider, e.SubscriptionID, err)
	}

	user, err := r.users.FindByCustomerID(ctx, e.CustomerID)
	if err != nil {
		return "", fmt.Errorf("%w: find user by customer %s: %w", ErrPersistence, e.CustomerID, err)
	}
	if user == nil {
		l.Warnw("webhook_user_unresolved", "customer_id", e.CustomerID, "subscription_id", e.SubscriptionID,
			"error", ErrUnresolvedUser.Error())
		return OutcomeUnresolvedUser, nil
	}

	row := &models.Subscription{
		ID:                   tool.GenerateUUIDV7(),
		UserID:               user.ID,
		StripeSubscriptionID: e.SubscriptionID,
		StripePriceID:        PriceIDOf(sub),
		Status:               types.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   FromUnix(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     FromUnix(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		LastEventAt:          e.Created,
	}
	created, err := r.store.CreateSubscription(ctx, row, e.ID)
	if err != nil {
		return "", fmt.Errorf("%w: create subscription %s: %w", ErrPersistence, e.SubscriptionID, err)
	}
	if !created {
		l.Infow("webhook_subscription_duplicate", "subscription_id", e.SubscriptionID)
		return OutcomeDuplicate, nil
	}
	l.Infow("webhook_subscription_created", "subscription_id", e.SubscriptionID, "user_id", user.ID, "status", row.Status)
	return OutcomeApplied, nil
}

func (r *Reconciler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Reconciler) applyChange(ctx context.Context, l *zap.SugaredLogger, change SubscriptionChange) (Outcome, error) {
	outcome, err := r.store.ApplyChange(ctx, change)
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s %s: %w", ErrPersistence, change.Reason, change.StripeSubscriptionID, err)
	}

	switch outcome {
	case OutcomeUnresolvedSubscription:
		l.Warnw("webhook_subscription_unresolved", "subscription_id", change.StripeSubscriptionID,
			"error", ErrUnresolvedSubscription.Error())
	case OutcomeStale:
		l.Infow("webhook_event_stale", "subscription_id", change.StripeSubscriptionID, "event_at", change.EventAt)
	default:
		l.Infow("webhook_subscription_changed", "subscription_id", change.StripeSubscriptionID, "reason", change.Reason)
	}
	return outcome, nil
}
