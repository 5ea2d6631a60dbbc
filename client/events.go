package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"betchat/models"
	"betchat/services"

	"github.com/gorilla/websocket"
)

// WSChannel implements EventChannel over the server's /ws endpoint. Each
// subscription holds its own connection; closing it stops delivery.
type WSChannel struct {
	BaseURL string
	Session Session
	Dialer  *websocket.Dialer
}

// NewWSChannel returns a channel for the given server. BaseURL may use
// http(s) scheme, it is rewritten to ws(s).
func NewWSChannel(baseURL string, session Session) *WSChannel {
	return &WSChannel{
		BaseURL: baseURL,
		Session: session,
		Dialer:  websocket.DefaultDialer,
	}
}

type wsSubscription struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	})
	return nil
}

// Subscribe opens a connection, registers for the chat's INSERT events and
// pumps them into handler until the subscription closes or ctx is done.
// The channel is best effort: a dropped connection surfaces as the end of
// delivery, reconnection is the caller's decision.
func (w *WSChannel) Subscribe(ctx context.Context, chatID string, handler func(models.Message)) (Subscription, error) {
	wsURL := strings.Replace(w.BaseURL, "http", "ws", 1)
	endpoint := fmt.Sprintf("%s/ws?token=%s", wsURL, url.QueryEscape(w.Session.Token))

	conn, _, err := w.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial event channel: %w", err)
	}

	cmd, _ := json.Marshal(map[string]string{"type": "subscribe", "chat_id": chatID})
	if err := conn.WriteMessage(websocket.TextMessage, cmd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to chat %s: %w", chatID, err)
	}

	// Wait for the ack so no insert committed after Subscribe returns can
	// slip past the registration.
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("await subscribe ack for chat %s: %w", chatID, err)
		}
		var frame services.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Type == services.FrameSubscribed && frame.ChatID == chatID {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})

	sub := &wsSubscription{conn: conn}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(done)
		defer sub.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame services.Frame
			if err := json.Unmarshal(raw, &frame); err != nil {
				log.Println("Invalid realtime frame:", string(raw))
				continue
			}
			if frame.Type == services.FrameInsert && frame.ChatID == chatID && frame.Message != nil {
				handler(*frame.Message)
			}
		}
	}()

	return sub, nil
}
