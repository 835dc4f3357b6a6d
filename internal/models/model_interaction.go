package models

import "time"

// Interaction is a dated touch point with a contact (call, meeting, email, ...).
type Interaction struct {
	ID          string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string    `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ContactID   string    `gorm:"column:contact_id;type:uuid;not null;index" json:"contact_id"`
	Contact     *Contact  `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Type        string    `gorm:"column:type;type:varchar(64);not null" json:"type"`
	Date        time.Time `gorm:"column:date;not null" json:"date"`
	// Duration is in minutes.
	Duration    *int      `gorm:"column:duration" json:"duration"`
	Description string    `gorm:"column:description;type:text;not null" json:"description"`
	Location    *string   `gorm:"column:location;type:varchar(255)" json:"location"`
	Outcome     *string   `gorm:"column:outcome;type:text" json:"outcome"`
	FollowUp    bool      `gorm:"column:follow_up;not null;default:false" json:"follow_up"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Interaction) TableName() string {
	return "interactions"
}
