package models

import (
	"time"

	"github.com/fatflowers/contactbook/pkg/types"
)

// Subscription mirrors one Stripe subscription. StripeSubscriptionID is the
// reconciliation key and is unique; rows are never hard-deleted.
type Subscription struct {
	ID                   string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	User                 *User                    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;type:varchar(255);not null;uniqueIndex" json:"stripe_subscription_id"`
	StripePriceID        string                   `gorm:"column:stripe_price_id;type:varchar(255)" json:"stripe_price_id"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CurrentPeriodStart   time.Time                `gorm:"column:current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	// LastEventAt is the creation time of the newest provider event applied
	// to this row. Older events are skipped.
	LastEventAt time.Time `gorm:"column:last_event_at" json:"last_event_at"`
	// CreatedAt is managed by GORM and records the creation time.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is managed by GORM and records the update time.
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Entitled reports whether the subscription grants paid features at now.
func (s *Subscription) Entitled(now time.Time) bool {
	return s != nil &&
		s.Status.Entitled() &&
		s.CurrentPeriodEnd.After(now)
}
