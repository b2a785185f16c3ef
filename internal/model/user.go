package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents an authenticated identity in the system.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	FullName     string         `json:"full_name" gorm:"size:150;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PhoneNumber  string         `json:"phone_number" gorm:"size:50"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role           `json:"role" gorm:"type:varchar(20);not null;default:'User';index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
