package services

import (
	"fmt"

	"betchat/config"
	"betchat/models"

	"github.com/google/uuid"
)

// GetOrCreateChat returns the chat between the two users, creating it if
// none exists. The pair is unordered: (a,b) and (b,a) are the same chat.
func GetOrCreateChat(userID1, userID2 string) (models.Chat, error) {
	var chat models.Chat
	err := config.DB.
		Where("(user1 = ? AND user2 = ?) OR (user1 = ? AND user2 = ?)",
			userID1, userID2, userID2, userID1).
		First(&chat).Error
	if err == nil {
		return chat, nil
	}

	chat = models.Chat{
		ChatID: uuid.New().String(),
		User1:  userID1,
		User2:  userID2,
	}
	if err := config.DB.Create(&chat).Error; err != nil {
		return models.Chat{}, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// ChatMessages returns the full history for a chat, oldest first.
func ChatMessages(chatID string) ([]models.Message, error) {
	var messages []models.Message
	err := config.DB.
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

// IsParticipant reports whether userID belongs to the chat.
func IsParticipant(chat models.Chat, userID string) bool {
	return chat.User1 == userID || chat.User2 == userID
}
