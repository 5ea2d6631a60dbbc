// Package client is the app-side library for the betchat backend: typed
// collaborator contracts (message store, media store, event channel), HTTP
// and websocket implementations of them, and the Timeline, which keeps an
// ordered, deduplicated view of a chat by reconciling optimistic local
// sends with the confirmed messages the backend pushes back.
package client

import (
	"context"
	"errors"
	"io"

	"betchat/models"
)

// Message is one visible chat entry. Local marks an optimistic placeholder
// that has not been confirmed by the backend yet.
type Message struct {
	models.Message
	Local bool `json:"-"`
}

// SendState is the lifecycle of a placeholder.
type SendState int

const (
	SendPending SendState = iota
	SendConfirmed
	SendRejected
)

// InsertRequest is the payload for MessageStore.Insert.
type InsertRequest struct {
	ChatID      string `json:"-"`
	Kind        string `json:"kind"`
	Content     string `json:"content,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	ClientToken string `json:"client_token"`
}

// MessageStore persists messages keyed by chat and returns them ordered by
// creation time.
type MessageStore interface {
	Fetch(ctx context.Context, chatID string) ([]models.Message, error)
	Insert(ctx context.Context, req InsertRequest) error
}

// MediaStore accepts image payloads and returns a stable public URL.
type MediaStore interface {
	Upload(ctx context.Context, chatID string, r io.Reader) (string, error)
}

// Subscription is an open event channel registration. Close is idempotent.
type Subscription interface {
	Close() error
}

// EventChannel delivers insert notifications for a chat, at-least-once,
// approximately in commit order.
type EventChannel interface {
	Subscribe(ctx context.Context, chatID string, handler func(models.Message)) (Subscription, error)
}

// Session carries the authenticated identity. It is passed explicitly to
// every component instead of being looked up from ambient state.
type Session struct {
	UserID string
	Token  string
}

var (
	// ErrEmptyMessage is returned when a text send has no content after trimming.
	ErrEmptyMessage = errors.New("client: message content is empty")
	// ErrSendTimeout rejects a placeholder whose confirmation never arrived.
	ErrSendTimeout = errors.New("client: send confirmation timed out")
	// ErrClosed is returned for operations on a torn-down timeline.
	ErrClosed = errors.New("client: timeline is closed")
)
