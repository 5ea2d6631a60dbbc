package controllers

import (
	"log"
	"net/http"
	"strings"

	"betchat/config"
	"betchat/middlewares"
	"betchat/models"
	"betchat/services"
	"betchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetMessages returns a chat's full history, oldest first.
func GetMessages(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	chatID := c.Param("chat_id")

	var chat models.Chat
	if err := config.DB.Where("chat_id = ?", chatID).First(&chat).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, "Chat not found")
		return
	}
	if !services.IsParticipant(chat, user.ID) {
		utils.RespondError(c, http.StatusForbidden, "You are not part of this chat")
		return
	}

	messages, err := services.ChatMessages(chatID)
	if err != nil {
		log.Println("Error fetching messages:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	utils.RespondSuccess(c, messages, nil)
}

// SendMessage persists a text or image message and publishes the INSERT
// event to the chat's realtime subscribers. The client_token is stored and
// echoed back so the sender can resolve its optimistic placeholder.
func SendMessage(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	chatID := c.Param("chat_id")

	var input struct {
		Kind        string `json:"kind" binding:"required"`
		Content     string `json:"content"`
		MediaURL    string `json:"media_url"`
		ClientToken string `json:"client_token"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var chat models.Chat
	if err := config.DB.Where("chat_id = ?", chatID).First(&chat).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, "Chat not found")
		return
	}
	if !services.IsParticipant(chat, user.ID) {
		utils.RespondError(c, http.StatusForbidden, "You are not part of this chat")
		return
	}

	message := models.Message{
		MessageID:   uuid.New().String(),
		ChatID:      chatID,
		SenderID:    user.ID,
		Kind:        input.Kind,
		ClientToken: input.ClientToken,
	}

	switch input.Kind {
	case models.MessageText:
		content := strings.TrimSpace(input.Content)
		if content == "" {
			utils.RespondError(c, http.StatusBadRequest, "Message content is empty")
			return
		}
		message.Content = content
	case models.MessageImage:
		if input.MediaURL == "" {
			utils.RespondError(c, http.StatusBadRequest, "Image message requires media_url")
			return
		}
		message.MediaURL = input.MediaURL
	default:
		utils.RespondError(c, http.StatusBadRequest, "Unknown message kind")
		return
	}

	if err := config.DB.Create(&message).Error; err != nil {
		log.Println("Failed to store message:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to send message")
		return
	}

	services.Manager.PublishInsert(message)

	utils.RespondSuccess(c, gin.H{"message_id": message.MessageID}, nil)
}

// UploadChatMedia accepts a multipart image for a chat and returns the
// stored public URL. The object key is timestamp-salted, uploads never
// overwrite an existing object.
func UploadChatMedia(store *services.MediaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middlewares.CurrentUser(c)
		if !ok {
			utils.RespondError(c, http.StatusNotFound, "User not found")
			return
		}
		chatID := c.Param("chat_id")

		var chat models.Chat
		if err := config.DB.Where("chat_id = ?", chatID).First(&chat).Error; err != nil {
			utils.RespondError(c, http.StatusNotFound, "Chat not found")
			return
		}
		if !services.IsParticipant(chat, user.ID) {
			utils.RespondError(c, http.StatusForbidden, "You are not part of this chat")
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Missing file upload")
			return
		}
		defer file.Close()

		url, err := store.SaveChatImage(chatID, user.ID, file)
		if err != nil {
			switch err {
			case services.ErrBadImage:
				utils.RespondError(c, http.StatusBadRequest, "File is not a valid image")
			case services.ErrExists:
				utils.RespondError(c, http.StatusConflict, "Object already exists")
			default:
				log.Println("Failed to store media:", err)
				utils.RespondError(c, http.StatusInternalServerError, "Failed to store media")
			}
			return
		}

		utils.RespondSuccess(c, gin.H{"url": url}, nil)
	}
}
