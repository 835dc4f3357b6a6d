package models

import "time"

type Tag struct {
	ID     string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name   string  `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Color  *string `gorm:"column:color;type:varchar(16)" json:"color"`
	// ContactCount is only populated by list queries that select it.
	ContactCount int64     `gorm:"column:contact_count;->;-:migration" json:"contact_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Tag) TableName() string {
	return "tags"
}
