package models

import (
	"time"

	"gorm.io/gorm"
)

// Bet is one entry in the public feed.
type Bet struct {
	BetID       string         `gorm:"primaryKey;type:varchar(36)" json:"bet_id"`
	Team1       string         `json:"team1"`
	Team2       string         `json:"team2"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	CreatorID   string         `gorm:"type:varchar(36);index" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BetLike records one user liking one bet. The unique index makes the like
// toggle idempotent at the database level.
type BetLike struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BetID     string    `gorm:"type:varchar(36);uniqueIndex:idx_bet_user" json:"bet_id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex:idx_bet_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BetEntry is a placed bet: the user staked Amount points on Team.
type BetEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BetID     string    `gorm:"type:varchar(36);index" json:"bet_id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Team      string    `json:"team"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
