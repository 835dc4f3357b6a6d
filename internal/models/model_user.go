package models

import "time"

// User is an account holder. StripeCustomerID is assigned lazily on the
// first checkout and is the key webhook events are resolved by.
type User struct {
	ID               string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email            string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Name             *string   `gorm:"column:name;type:varchar(255)" json:"name"`
	PasswordHash     string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	IsAdmin          bool      `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id;type:varchar(255);uniqueIndex" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
