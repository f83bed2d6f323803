package routes

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/logoped_crm/models"
	hub "github.com/anjiri1684/logoped_crm/websocket"
	wsclient "github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var hubOnce sync.Once

func TestPushChannelHandshake(t *testing.T) {
	hubOnce.Do(func() { go hub.RunHub() })
	app, _ := setupApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	user := models.User{ID: uuid.New(), Role: models.RoleLogoped}
	conn, _, err := wsclient.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": tokenFor(t, user)}))

	var first map[string]any
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, "ready", first["type"])

	require.Eventually(t, func() bool { return hub.Connected(user.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(user.ID, hub.Event{Type: "payout.status", Payload: map[string]any{"status": models.PayoutApproved}})
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "payout.status", ev["type"])
	require.Equal(t, models.PayoutApproved, ev["payload"].(map[string]any)["status"])
}

func TestPushChannelRejectsBadToken(t *testing.T) {
	hubOnce.Do(func() { go hub.RunHub() })
	app, _ := setupApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := wsclient.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "nope"}))
	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "Invalid token", reply["error"])
}
