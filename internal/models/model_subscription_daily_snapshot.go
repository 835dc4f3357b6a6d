package models

import (
	"time"

	"github.com/fatflowers/contactbook/pkg/types"
)

// SubscriptionDailySnapshot is a daily copy of a subscription row for analytics.
type SubscriptionDailySnapshot struct {
	ID                   string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;type:varchar(255);not null;uniqueIndex:idx_snapshot_subscription_date,priority:1" json:"stripe_subscription_id"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end" json:"cancel_at_period_end"`
	SnapshotDate         string                   `gorm:"column:snapshot_date;type:varchar(10);uniqueIndex:idx_snapshot_subscription_date,priority:2" json:"snapshot_date"`
	SnapshotCreatedAt    time.Time                `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
}

func (SubscriptionDailySnapshot) TableName() string {
	return "subscription_daily_snapshot"
}
