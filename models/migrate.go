package models

import (
	"log"

	"gorm.io/gorm"
)

// Migrate auto-migrates every table against the given database.
func Migrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&User{},
		&ResetToken{},
		&Chat{},
		&Message{},
		&Bet{},
		&BetLike{},
		&BetEntry{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
