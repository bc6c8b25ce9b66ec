package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mathler-backend/internal/services"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, ws *WebSocketHandler, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return ws.ClientCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketPriceBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newTestServer(t)
	require.NoError(t, s.prices.StorePriceSnapshot(context.Background(), "67000.12"))

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	first := dialHub(t, srv)
	defer first.Close()

	greeting := readMessage(t, first)
	assert.Equal(t, services.MessageTypePriceUpdate, greeting.Type)
	assert.Equal(t, "67000.12", greeting.Price)

	second := dialHub(t, srv)
	defer second.Close()
	readMessage(t, second)

	waitForClients(t, s.ws, 2)
	s.ws.BroadcastPrice("67001.50")

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, Message{Type: "btc_price_update", Price: "67001.50"}, msg)
	}

	require.NoError(t, first.WriteJSON(Message{Type: "PING"}))
	pong := readMessage(t, first)
	assert.Equal(t, "PONG", pong.Type)
	assert.NotZero(t, pong.Timestamp)

	first.Close()
	waitForClients(t, s.ws, 1)

	s.ws.Stop()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
	second.Close()
	srv.Close()
}

func TestWebSocketWithoutSnapshot(t *testing.T) {
	ws := NewWebSocketHandler(nil, nil)
	defer ws.Stop()

	assert.Equal(t, 0, ws.ClientCount())
	ws.BroadcastPrice("1.00")

	ws.Stop()
	assert.Equal(t, 0, ws.ClientCount())
	ws.BroadcastPrice("2.00")
}
