package controllers

import (
	"errors"
	"log"
	"net/http"

	"betchat/config"
	"betchat/middlewares"
	"betchat/models"
	"betchat/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetWallet returns the current points balance.
func GetWallet(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	// Re-read: the balance may have changed since the middleware loaded it.
	var fresh models.User
	if err := config.DB.Where("id = ?", user.ID).First(&fresh).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to fetch wallet")
		return
	}
	utils.RespondSuccess(c, gin.H{"points": fresh.Points}, nil)
}

// PlaceBet stakes points on one team of a bet. The debit and the entry are
// written in one transaction so the balance can never go negative.
func PlaceBet(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	betID := c.Param("id")

	var input struct {
		Team   string `json:"team" binding:"required"`
		Amount int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.Amount <= 0 {
		utils.RespondError(c, http.StatusBadRequest, "Amount must be positive")
		return
	}

	var bet models.Bet
	if err := config.DB.Where("bet_id = ?", betID).First(&bet).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, "Bet not found")
		return
	}
	if input.Team != bet.Team1 && input.Team != bet.Team2 {
		utils.RespondError(c, http.StatusBadRequest, "Team is not part of this bet")
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var fresh models.User
		if err := tx.Where("id = ?", user.ID).First(&fresh).Error; err != nil {
			return err
		}
		if fresh.Points < input.Amount {
			return errInsufficientPoints
		}
		if err := tx.Model(&fresh).Update("points", fresh.Points-input.Amount).Error; err != nil {
			return err
		}
		entry := models.BetEntry{
			BetID:  betID,
			UserID: user.ID,
			Team:   input.Team,
			Amount: input.Amount,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if err == errInsufficientPoints {
			utils.RespondError(c, http.StatusBadRequest, "Insufficient points")
			return
		}
		log.Println("Failed to place bet:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to place bet")
		return
	}

	utils.RespondSuccess(c, gin.H{"message": "Bet placed"}, nil)
}

var errInsufficientPoints = errors.New("insufficient points")

// GetMyEntries lists the current user's placed bets, newest first.
func GetMyEntries(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	var entries []models.BetEntry
	err := config.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to fetch entries")
		return
	}
	utils.RespondSuccess(c, entries, nil)
}
