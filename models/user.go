package models

import (
	"time"

	"gorm.io/gorm"
)

// User holds the account and the profile in one row, points included
// (the wallet is a plain points balance, not a separate ledger table).
type User struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email     string         `json:"email" gorm:"unique;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Name      string         `json:"name"`
	Document  string         `json:"document"`
	Phone     string         `json:"phone"`
	Gender    string         `json:"gender"`
	BirthDate string         `json:"birth_date"`
	Role      string         `json:"role" gorm:"default:'user'"`
	Points    int64          `json:"points" gorm:"default:1000"`
	AvatarURL string         `json:"avatar_url"`
	Bio       string         `json:"bio"`
	LastLogin *time.Time     `json:"last_login" gorm:"default:NULL"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// ResetToken is issued by the password reset endpoint and consumed once.
type ResetToken struct {
	Token     string    `gorm:"primaryKey;type:varchar(36)" json:"token"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
