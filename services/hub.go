package services

import (
	"encoding/json"
	"log"
	"sync"

	"betchat/models"
)

// Frame types pushed to realtime subscribers.
const (
	FrameInsert     = "INSERT"
	FrameSubscribed = "SUBSCRIBED"
)

// Frame is the wire envelope for realtime notifications.
type Frame struct {
	Type    string          `json:"type"`
	ChatID  string          `json:"chat_id"`
	Message *models.Message `json:"message,omitempty"`
}

// Subscriber receives frames for the chats it subscribed to. Send is drained
// by the owning connection's write pump; a subscriber that stops draining is
// dropped by the hub.
type Subscriber struct {
	Send chan []byte

	closeOnce sync.Once
}

// NewSubscriber returns a subscriber with a buffered send queue.
func NewSubscriber() *Subscriber {
	return &Subscriber{Send: make(chan []byte, 64)}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.Send) })
}

type subRequest struct {
	sub    *Subscriber
	chatID string
}

type pubRequest struct {
	chatID string
	frame  []byte
}

// Hub fans message INSERT events out to the subscribers of each chat.
// All registry mutation happens on the Run goroutine, delivery is in the
// order events were published.
type Hub struct {
	chats      map[string]map[*Subscriber]bool
	subscribe  chan subRequest
	unsub      chan *Subscriber
	publishing chan pubRequest
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub; call Run in a goroutine before using it.
func NewHub() *Hub {
	return &Hub{
		chats:      make(map[string]map[*Subscriber]bool),
		subscribe:  make(chan subRequest),
		unsub:      make(chan *Subscriber),
		publishing: make(chan pubRequest, 256),
		stop:       make(chan struct{}),
	}
}

// Run processes subscribe/unsubscribe/publish requests until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case req := <-h.subscribe:
			set, ok := h.chats[req.chatID]
			if !ok {
				set = make(map[*Subscriber]bool)
				h.chats[req.chatID] = set
			}
			set[req.sub] = true

		case sub := <-h.unsub:
			h.drop(sub)

		case req := <-h.publishing:
			for sub := range h.chats[req.chatID] {
				select {
				case sub.Send <- req.frame:
				default:
					log.Printf("Dropping slow realtime subscriber on chat %s", req.chatID)
					h.drop(sub)
				}
			}

		case <-h.stop:
			for _, set := range h.chats {
				for sub := range set {
					sub.close()
				}
			}
			h.chats = make(map[string]map[*Subscriber]bool)
			return
		}
	}
}

// Close shuts the hub down and closes every subscriber queue.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Subscribe registers sub for INSERT events on chatID.
func (h *Hub) Subscribe(chatID string, sub *Subscriber) {
	select {
	case h.subscribe <- subRequest{sub: sub, chatID: chatID}:
	case <-h.stop:
	}
}

// Unsubscribe removes sub from every chat and closes its queue. Idempotent.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unsub <- sub:
	case <-h.stop:
	}
}

// PublishInsert notifies the subscribers of msg's chat that it was stored.
func (h *Hub) PublishInsert(msg models.Message) {
	frame, err := json.Marshal(Frame{Type: FrameInsert, ChatID: msg.ChatID, Message: &msg})
	if err != nil {
		log.Printf("Failed to marshal insert frame: %v", err)
		return
	}
	select {
	case h.publishing <- pubRequest{chatID: msg.ChatID, frame: frame}:
	case <-h.stop:
	}
}

// drop runs on the Run goroutine only.
func (h *Hub) drop(sub *Subscriber) {
	for chatID, set := range h.chats {
		if set[sub] {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.chats, chatID)
			}
		}
	}
	sub.close()
}

// Manager is the process-wide hub used by the HTTP handlers.
var Manager = NewHub()
