package models

import "time"

const (
	SettingAllowRegistration = "ALLOW_REGISTRATION"
	SettingStripeMode        = "STRIPE_MODE"
)

// Setting is an admin-editable key/value pair. Type is a hint for the admin
// UI ("boolean", "string").
type Setting struct {
	Key         string    `gorm:"column:key;type:varchar(128);primary_key" json:"key"`
	Value       string    `gorm:"column:value;type:text;not null" json:"value"`
	Type        string    `gorm:"column:type;type:varchar(32);not null;default:'string'" json:"type"`
	Label       string    `gorm:"column:label;type:varchar(255);not null" json:"label"`
	Description *string   `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}
