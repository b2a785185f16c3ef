package model

import "time"

// Doctor is the clinical profile owned by a user with the Doctor role.
// Email mirrors the owning user's email.
type Doctor struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	Name       string    `json:"name" gorm:"size:120;not null"`
	Email      string    `json:"email" gorm:"size:100;not null;index"`
	Specialty  string    `json:"specialty" gorm:"size:100"`
	Phone      string    `json:"phone" gorm:"size:50"`
	AvatarPath string    `json:"avatar_path" gorm:"size:255"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}
