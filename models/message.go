package models

import "time"

// Message kinds.
const (
	MessageText  = "text"
	MessageImage = "image"
)

// Message is one chat entry. A text message never carries MediaURL and an
// image message has empty Content. ClientToken is the correlation token the
// sender generated for its optimistic placeholder; it is echoed back in the
// realtime INSERT event so the client can resolve the exact placeholder.
type Message struct {
	MessageID   string    `gorm:"primaryKey;type:varchar(36)" json:"message_id"`
	ChatID      string    `gorm:"type:varchar(36);index" json:"chat_id"`
	SenderID    string    `gorm:"type:varchar(36);index" json:"sender_id"`
	Kind        string    `gorm:"type:varchar(10)" json:"kind"`
	Content     string    `json:"content"`
	MediaURL    string    `json:"media_url,omitempty"`
	ClientToken string    `gorm:"type:varchar(36)" json:"client_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
