package handlers

import (
	"log"

	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// ServeWs registers an authenticated push connection. The first frame must be
// {"type":"auth","token":"..."}; later frames are only read to detect the close.
func ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	identity, err := middleware.ParseToken(authMsg.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	// The hub writes to registered connections, so "ready" goes out before registration.
	if err := c.WriteJSON(fiber.Map{"type": "ready"}); err != nil {
		c.Close()
		return
	}
	client := &websocket.Client{UserID: identity.UserID, Conn: c}
	websocket.Register <- client
	defer func() {
		websocket.Unregister <- client
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for client %s: %v", identity.UserID, err)
			}
			return
		}
	}
}
