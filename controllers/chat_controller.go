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
)

// CreateChat returns the chat between the current user and the receiver,
// creating it when the pair has no chat yet.
func CreateChat(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	var input struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if input.ReceiverID == user.ID {
		utils.RespondError(c, http.StatusBadRequest, "Cannot create a chat with yourself")
		return
	}

	var receiver models.User
	if err := config.DB.Where("id = ?", input.ReceiverID).First(&receiver).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, "Receiver does not exist")
		return
	}

	chat, err := services.GetOrCreateChat(user.ID, input.ReceiverID)
	if err != nil {
		log.Println("Error creating chat:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	utils.RespondSuccess(c, gin.H{"chat_id": chat.ChatID}, nil)
}

// GetChats lists the current user's chats with the counterpart's info.
func GetChats(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	var chats []models.Chat
	err := config.DB.
		Preload("User1User").
		Preload("User2User").
		Where("user1 = ? OR user2 = ?", user.ID, user.ID).
		Find(&chats).Error
	if err != nil {
		log.Println("Error fetching chats:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to fetch chats")
		return
	}

	formatted := make([]map[string]interface{}, 0, len(chats))
	for _, chat := range chats {
		other := chat.User2User
		if chat.User2 == user.ID {
			other = chat.User1User
		}
		formatted = append(formatted, map[string]interface{}{
			"chat_id": chat.ChatID,
			"participant": map[string]interface{}{
				"user_id":    other.ID,
				"name":       other.Name,
				"email":      other.Email,
				"avatar":     other.AvatarURL,
				"last_login": other.LastLogin,
			},
		})
	}

	utils.RespondSuccess(c, formatted, nil)
}
