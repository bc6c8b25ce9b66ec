package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type recordingBroadcaster struct {
	prices chan string
}

func (b *recordingBroadcaster) BroadcastPrice(price string) {
	b.prices <- price
}

func TestParsePriceMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"binance trade", `{"e":"trade","s":"BTCUSDT","p":"67000.12345"}`, "67000.12", false},
		{"rounds", `{"p":"0.126"}`, "0.13", false},
		{"plain price field", `{"price":"42"}`, "42.00", false},
		{"numeric price", `{"price":101.5}`, "101.50", false},
		{"missing price", `{"e":"trade"}`, "", true},
		{"not a number", `{"p":"abc"}`, "", true},
		{"nan", `{"p":"NaN"}`, "", true},
		{"not json", `ping`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePriceMessage([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPriceMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceFeedRelaysAndReconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := connections.Add(1)
		if n == 1 {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"p":"100.456"}`))
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"p":"200"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	broadcaster := &recordingBroadcaster{prices: make(chan string, 4)}
	snapshots := NewMemoryPriceSnapshot()
	feed := NewPriceFeed("ws"+strings.TrimPrefix(srv.URL, "http"), broadcaster, snapshots, zap.NewNop())
	feed.minBackoff = 10 * time.Millisecond
	feed.maxBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	assert.Equal(t, "100.46", receivePrice(t, broadcaster.prices))
	assert.Equal(t, "200.00", receivePrice(t, broadcaster.prices))

	latest, err := snapshots.PriceSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200.00", latest)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("price feed did not stop")
	}
}

func TestPriceFeedDisabled(t *testing.T) {
	feed := NewPriceFeed("", &recordingBroadcaster{}, nil, nil)
	assert.False(t, feed.Enabled())
	assert.NoError(t, feed.Run(context.Background()))
}

func TestPriceFeedStopsWhileDialFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := NewPriceFeed("ws://127.0.0.1:1/unreachable", &recordingBroadcaster{}, nil, nil)
	feed.minBackoff = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := feed.Run(ctx)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.NoError(t, err)
}

func receivePrice(t *testing.T, prices <-chan string) string {
	t.Helper()
	select {
	case p := <-prices:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for price")
		return ""
	}
}
