package models

import (
	"time"

	"github.com/fatflowers/contactbook/pkg/types"

	"gorm.io/datatypes"
)

// SubscriptionLog records changes to user subscriptions.
// Use case: troubleshooting.
type SubscriptionLog struct {
	ID                   string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string `gorm:"column:user_id;type:uuid;index:idx_subscription_log_user_id_id,priority:1;not null" json:"user_id"`
	StripeSubscriptionID string `gorm:"column:stripe_subscription_id;type:varchar(255);index;not null" json:"stripe_subscription_id"`
	// Reason is the change reason.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	// EventID is the provider event that caused the change.
	EventID string `gorm:"column:event_id;type:varchar(255)" json:"event_id"`
	// Before stores subscription data before the change in JSON format.
	Before datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	// After stores subscription data after the change in JSON format.
	After     datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	CreatedAt time.Time                         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
