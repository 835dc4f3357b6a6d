package models

import "time"

type Contact struct {
	ID           string     `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID       string     `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	FirstName    string     `gorm:"column:first_name;type:varchar(255);not null" json:"first_name"`
	LastName     string     `gorm:"column:last_name;type:varchar(255);not null" json:"last_name"`
	Email        *string    `gorm:"column:email;type:varchar(255)" json:"email"`
	Phone        *string    `gorm:"column:phone;type:varchar(64)" json:"phone"`
	Company      *string    `gorm:"column:company;type:varchar(255)" json:"company"`
	Position     *string    `gorm:"column:position;type:varchar(255)" json:"position"`
	Department   *string    `gorm:"column:department;type:varchar(255)" json:"department"`
	Location     *string    `gorm:"column:location;type:varchar(255)" json:"location"`
	LinkedIn     *string    `gorm:"column:linkedin;type:varchar(255)" json:"linkedin"`
	Twitter      *string    `gorm:"column:twitter;type:varchar(255)" json:"twitter"`
	Notes        *string    `gorm:"column:notes;type:text" json:"notes"`
	LastContact  *time.Time `gorm:"column:last_contact" json:"last_contact"`
	NextFollowUp *time.Time `gorm:"column:next_follow_up;index" json:"next_follow_up"`
	Relationship *string    `gorm:"column:relationship;type:varchar(64)" json:"relationship"`
	Importance   *string    `gorm:"column:importance;type:varchar(64)" json:"importance"`

	Tags         []*Tag         `gorm:"many2many:contact_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	Interactions []*Interaction `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"interactions,omitempty"`
	ContactNotes []*Note        `gorm:"foreignKey:ContactID;constraint:OnDelete:SET NULL" json:"contact_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
