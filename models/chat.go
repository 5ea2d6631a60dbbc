package models

import "time"

// Chat is a private conversation between two users. The pair is unordered:
// lookups must match (user1, user2) in either direction.
type Chat struct {
	ChatID    string    `gorm:"primaryKey;type:varchar(36)" json:"chat_id"`
	User1     string    `gorm:"type:varchar(36);index" json:"user1"`
	User2     string    `gorm:"type:varchar(36);index" json:"user2"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User1User User `gorm:"foreignKey:User1;references:ID" json:"user1_user"`
	User2User User `gorm:"foreignKey:User2;references:ID" json:"user2_user"`
}
