package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventLogStatus string

const (
	WebhookEventLogStatusReceived     WebhookEventLogStatus = "received"
	WebhookEventLogStatusHandled      WebhookEventLogStatus = "handled"
	WebhookEventLogStatusIgnored      WebhookEventLogStatus = "ignored"
	WebhookEventLogStatusUnmatched    WebhookEventLogStatus = "unmatched"
	WebhookEventLogStatusHandleFailed WebhookEventLogStatus = "handle_failed"
)

// WebhookEventLog is a journal of verified provider deliveries. It is not
// consulted for deduplication.
type WebhookEventLog struct {
	ID             string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider       string                `gorm:"column:provider;type:varchar(64);not null" json:"provider"`
	EventID        string                `gorm:"column:event_id;type:varchar(255);index" json:"event_id"`
	EventType      string                `gorm:"column:event_type;type:varchar(128)" json:"event_type"`
	EventCreatedAt time.Time             `gorm:"column:event_created_at" json:"event_created_at"`
	TraceID        string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data           datatypes.JSON        `gorm:"column:data;type:jsonb" json:"data"`
	Result         *datatypes.JSON       `gorm:"column:result;type:jsonb" json:"result"`
	Status         WebhookEventLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func (WebhookEventLog) TableName() string { return "webhook_event_log" }
