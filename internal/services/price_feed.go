package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	priceFeedMinBackoff = time.Second
	priceFeedMaxBackoff = 30 * time.Second
)

var ErrBadPriceMessage = errors.New("price message has no usable price")

// PriceFeed subscribes to an upstream trade stream and relays each price to
// the broadcaster.
type PriceFeed struct {
	url         string
	broadcaster Broadcaster
	snapshots   PriceSnapshotStore
	dialer      *websocket.Dialer
	logger      *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewPriceFeed(url string, broadcaster Broadcaster, snapshots PriceSnapshotStore, logger *zap.Logger) *PriceFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceFeed{
		url:         url,
		broadcaster: broadcaster,
		snapshots:   snapshots,
		dialer:      websocket.DefaultDialer,
		logger:      logger,
		minBackoff:  priceFeedMinBackoff,
		maxBackoff:  priceFeedMaxBackoff,
	}
}

func (f *PriceFeed) Enabled() bool {
	return f.url != ""
}

// Run keeps the upstream subscription alive until ctx is done.
func (f *PriceFeed) Run(ctx context.Context) error {
	if !f.Enabled() {
		f.logger.Info("price feed disabled")
		return nil
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = f.minBackoff
	retry.MaxInterval = f.maxBackoff

	for {
		relayed, err := f.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if relayed {
			retry.Reset()
		}

		wait := retry.NextBackOff()
		f.logger.Warn("price feed disconnected",
			zap.String("url", f.url),
			zap.Duration("retry_in", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// consume reads from one upstream connection until it fails. It reports
// whether at least one price was relayed.
func (f *PriceFeed) consume(ctx context.Context) (bool, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to dial price feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	f.logger.Info("price feed connected", zap.String("url", f.url))

	relayed := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return relayed, err
		}

		price, err := ParsePriceMessage(data)
		if err != nil {
			f.logger.Debug("skipping price message", zap.Error(err))
			continue
		}

		if f.snapshots != nil {
			if err := f.snapshots.StorePriceSnapshot(ctx, price); err != nil {
				f.logger.Warn("failed to store price snapshot", zap.Error(err))
			}
		}
		f.broadcaster.BroadcastPrice(price)
		relayed = true
	}
}

type tradeMessage struct {
	P     json.RawMessage `json:"p"`
	Price json.RawMessage `json:"price"`
}

// ParsePriceMessage extracts the trade price from an upstream message and
// formats it with two decimals. Both the Binance "p" field and a plain
// "price" field are accepted, as a string or a number.
func ParsePriceMessage(data []byte) (string, error) {
	var msg tradeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPriceMessage, err)
	}

	raw := msg.P
	if len(raw) == 0 {
		raw = msg.Price
	}
	if len(raw) == 0 {
		return "", ErrBadPriceMessage
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPriceMessage, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", ErrBadPriceMessage
	}

	return strconv.FormatFloat(value, 'f', 2, 64), nil
}
