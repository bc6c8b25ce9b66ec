package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mathler-backend/internal/services"
)

type priceMessage struct {
	Type  string `json:"type"`
	Price string `json:"price"`
}

// WatchPrices connects to the server's push feed and calls fn for every
// price update until ctx is done or the connection drops.
func (c *Client) WatchPrices(ctx context.Context, fn func(price string)) error {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to price feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg priceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("skipping feed message", zap.Error(err))
			continue
		}
		if msg.Type == services.MessageTypePriceUpdate && msg.Price != "" {
			fn(msg.Price)
		}
	}
}
