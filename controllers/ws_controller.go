package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"betchat/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsCommand struct {
	Type   string `json:"type"` // "subscribe"
	ChatID string `json:"chat_id"`
}

// WSController upgrades /ws and bridges the connection to the realtime hub.
// The client sends {"type":"subscribe","chat_id":...} frames and receives
// INSERT frames for the chats it subscribed to. Closing the connection
// unsubscribes unconditionally.
func WSController(c *gin.Context) {
	if _, err := services.ParseToken(c.Query("token")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	sub := services.NewSubscriber()

	go writePump(conn, sub)
	go readPump(conn, sub)
}

func readPump(conn *websocket.Conn, sub *services.Subscriber) {
	defer func() {
		services.Manager.Unsubscribe(sub)
		conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			log.Println("Invalid ws command:", string(raw))
			continue
		}
		if cmd.Type == "subscribe" && cmd.ChatID != "" {
			services.Manager.Subscribe(cmd.ChatID, sub)
			ack, _ := json.Marshal(services.Frame{Type: services.FrameSubscribed, ChatID: cmd.ChatID})
			select {
			case sub.Send <- ack:
			default:
			}
		}
	}
}

func writePump(conn *websocket.Conn, sub *services.Subscriber) {
	defer conn.Close()
	for frame := range sub.Send {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	// Hub closed the queue, tell the peer before dropping the connection.
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}
