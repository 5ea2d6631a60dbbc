package controllers

import (
	"log"
	"net/http"

	"betchat/config"
	"betchat/middlewares"
	"betchat/models"
	"betchat/services"
	"betchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type BetResponse struct {
	models.Bet
	LikesCount int64 `json:"likes_count"`
	Liked      bool  `json:"liked"`
}

// GetBets returns the feed, newest first, with like counts for the
// current user.
func GetBets(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	var bets []models.Bet
	if err := config.DB.Order("created_at DESC").Find(&bets).Error; err != nil {
		log.Println("Error fetching bets:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to fetch bets")
		return
	}

	feed := make([]BetResponse, 0, len(bets))
	for _, bet := range bets {
		var count int64
		config.DB.Model(&models.BetLike{}).Where("bet_id = ?", bet.BetID).Count(&count)

		var mine int64
		config.DB.Model(&models.BetLike{}).
			Where("bet_id = ? AND user_id = ?", bet.BetID, user.ID).
			Count(&mine)

		feed = append(feed, BetResponse{Bet: bet, LikesCount: count, Liked: mine > 0})
	}

	utils.RespondSuccess(c, feed, nil)
}

// CreateBet adds a feed entry. Admin only.
func CreateBet(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	if user.Role != "admin" {
		utils.RespondError(c, http.StatusForbidden, "Only admins can create bets")
		return
	}

	var input struct {
		Team1       string `json:"team1" binding:"required"`
		Team2       string `json:"team2" binding:"required"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	bet := models.Bet{
		BetID:       uuid.New().String(),
		Team1:       input.Team1,
		Team2:       input.Team2,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		CreatorID:   user.ID,
	}
	if err := config.DB.Create(&bet).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create bet")
		return
	}
	utils.RespondSuccess(c, gin.H{"bet_id": bet.BetID}, nil)
}

// UploadBetImage stores the feed image for a bet and saves its URL. Admin only.
func UploadBetImage(store *services.MediaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middlewares.CurrentUser(c)
		if !ok {
			utils.RespondError(c, http.StatusNotFound, "User not found")
			return
		}
		if user.Role != "admin" {
			utils.RespondError(c, http.StatusForbidden, "Only admins can upload bet images")
			return
		}
		betID := c.Param("id")

		var bet models.Bet
		if err := config.DB.Where("bet_id = ?", betID).First(&bet).Error; err != nil {
			utils.RespondError(c, http.StatusNotFound, "Bet not found")
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Missing file upload")
			return
		}
		defer file.Close()

		url, err := store.SaveBetImage(betID, file)
		if err != nil {
			if err == services.ErrBadImage {
				utils.RespondError(c, http.StatusBadRequest, "File is not a valid image")
				return
			}
			log.Println("Failed to store bet image:", err)
			utils.RespondError(c, http.StatusInternalServerError, "Failed to store image")
			return
		}

		if err := config.DB.Model(&bet).Update("image_url", url).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to update bet")
			return
		}
		utils.RespondSuccess(c, gin.H{"url": url}, nil)
	}
}

// DeleteBet removes a feed entry. Admin only.
func DeleteBet(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	if user.Role != "admin" {
		utils.RespondError(c, http.StatusForbidden, "Only admins can delete bets")
		return
	}

	betID := c.Param("id")
	if err := config.DB.Where("bet_id = ?", betID).Delete(&models.Bet{}).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to delete bet")
		return
	}
	utils.RespondSuccess(c, gin.H{"message": "Bet deleted"}, nil)
}

// ToggleLike likes the bet if the user has not liked it yet, otherwise
// removes the like. Returns the new count.
func ToggleLike(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	betID := c.Param("id")

	var bet models.Bet
	if err := config.DB.Where("bet_id = ?", betID).First(&bet).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, "Bet not found")
		return
	}

	// Insert-or-ignore on the unique (bet_id, user_id) index so two requests
	// racing each other cannot error out; zero rows affected means the like
	// already exists and this request toggles it off.
	like := models.BetLike{BetID: betID, UserID: user.ID}
	res := config.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to like bet")
		return
	}
	liked := res.RowsAffected > 0
	if !liked {
		if err := config.DB.Where("bet_id = ? AND user_id = ?", betID, user.ID).
			Delete(&models.BetLike{}).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to remove like")
			return
		}
	}

	var count int64
	config.DB.Model(&models.BetLike{}).Where("bet_id = ?", betID).Count(&count)
	utils.RespondSuccess(c, gin.H{"likes_count": count, "liked": liked}, nil)
}
