package models

import "time"

type Note struct {
	ID        string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ContactID *string   `gorm:"column:contact_id;type:uuid;index" json:"contact_id"`
	Contact   *Contact  `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Title     *string   `gorm:"column:title;type:varchar(255)" json:"title"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Note) TableName() string {
	return "notes"
}
