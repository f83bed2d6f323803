package websocket

import (
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Event is pushed to every open connection of its recipient.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type delivery struct {
	userID uuid.UUID
	event  Event
}

var (
	clients   = make(map[uuid.UUID]map[*websocket.Conn]struct{})
	clientsMu sync.RWMutex

	Register   = make(chan *Client)
	Unregister = make(chan *Client)
	outbox     = make(chan delivery, 256)
)

// Notify queues ev for userID. It never blocks; when the queue is full the event is dropped
// and the client catches up through GET /api/payouts/my-status.
func Notify(userID uuid.UUID, ev Event) {
	select {
	case outbox <- delivery{userID: userID, event: ev}:
	default:
		slog.Warn("push queue full, dropping event", "user_id", userID, "type", ev.Type)
	}
}

// Connected reports how many sockets userID has open.
func Connected(userID uuid.UUID) int {
	clientsMu.RLock()
	defer clientsMu.RUnlock()
	return len(clients[userID])
}

func RunHub() {
	for {
		select {
		case client := <-Register:
			clientsMu.Lock()
			if clients[client.UserID] == nil {
				clients[client.UserID] = make(map[*websocket.Conn]struct{})
			}
			clients[client.UserID][client.Conn] = struct{}{}
			clientsMu.Unlock()
			slog.Info("push client registered", "user_id", client.UserID)
		case client := <-Unregister:
			clientsMu.Lock()
			if conns, ok := clients[client.UserID]; ok {
				delete(conns, client.Conn)
				if len(conns) == 0 {
					delete(clients, client.UserID)
				}
			}
			clientsMu.Unlock()
			slog.Info("push client unregistered", "user_id", client.UserID)
		case d := <-outbox:
			deliver(d)
		}
	}
}

func deliver(d delivery) {
	clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(clients[d.userID]))
	for conn := range clients[d.userID] {
		conns = append(conns, conn)
	}
	clientsMu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(d.event); err != nil {
			slog.Error("push write failed", "user_id", d.userID, "error", err)
			conn.Close()
			clientsMu.Lock()
			delete(clients[d.userID], conn)
			clientsMu.Unlock()
		}
	}
}
