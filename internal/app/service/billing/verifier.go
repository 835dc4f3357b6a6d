package billing

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/types"
)

const SignatureHeader = "Stripe-Signature"

// Verifier authenticates webhook deliveries against the endpoint secret and
// decodes them into typed events.
type Verifier struct {
	secret string
}

func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{secret: cfg.Stripe.WebhookSecret}
}

// Verify checks the signature over the exact payload bytes and returns the
// typed event. Every failure wraps ErrVerification.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrVerification)
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrVerification, SignatureHeader)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return decode(ev)
}

func decode(ev stripe.Event) (Event, error) {
	meta := EventMeta{ID: ev.ID, Type: string(ev.Type), Created: FromUnix(ev.Created)}
	if ev.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrVerification, ev.ID)
	}

	switch meta.Type {
	case EventTypeCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session: %w", ErrVerification, err)
		}
		out := CheckoutCompleted{EventMeta: meta, SessionID: s.ID}
		if s.Customer != nil {
			out.CustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			out.SubscriptionID = s.Subscription.ID
		}
		return out, nil

	case EventTypeSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %w", ErrVerification, err)
		}
		if sub.ID == "" {
			return nil, fmt.Errorf("%w: subscription without id", ErrVerification)
		}
		return SubscriptionUpdated{
			EventMeta:          meta,
			SubscriptionID:     sub.ID,
			Status:             types.SubscriptionStatus(sub.Status),
			PriceID:            PriceIDOf(&sub),
			CurrentPeriodStart: FromUnix(sub.CurrentPeriodStart),
			CurrentPeriodEnd:   FromUnix(sub.CurrentPeriodEnd),
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		}, nil

	case EventTypeSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %w", ErrVerification, err)
		}
		if sub.ID == "" {
			return nil, fmt.Errorf("%w: subscription without id", ErrVerification)
		}
		return SubscriptionDeleted{EventMeta: meta, SubscriptionID: sub.ID}, nil

	default:
		return Unrecognized{EventMeta: meta}, nil
	}
}

// PriceIDOf returns the price of the first subscription item.
func PriceIDOf(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if it := sub.Items.Data[0]; it != nil && it.Price != nil {
		return it.Price.ID
	}
	return ""
}
