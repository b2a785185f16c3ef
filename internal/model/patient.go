package model

import "time"

// Placeholder values for profiles created implicitly on first booking.
const (
	PlaceholderAddress = "Not updated"
	PlaceholderPhone   = "N/A"
)

// Patient is the profile of a user who books appointments.
type Patient struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"size:150;not null"`
	Email       string     `json:"email" gorm:"size:255;index"`
	PhoneNumber string     `json:"phone_number" gorm:"size:50"`
	Address     string     `json:"address" gorm:"size:255"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}
