package services

import (
	"context"
	"sync"
)

const MessageTypePriceUpdate = "btc_price_update"

type Broadcaster interface {
	BroadcastPrice(price string)
}

// PriceSnapshotStore remembers the last relayed price.
type PriceSnapshotStore interface {
	StorePriceSnapshot(ctx context.Context, price string) error
	PriceSnapshot(ctx context.Context) (string, error)
}

// MemoryPriceSnapshot is the PriceSnapshotStore used without Redis.
type MemoryPriceSnapshot struct {
	mu    sync.RWMutex
	price string
}

func NewMemoryPriceSnapshot() *MemoryPriceSnapshot {
	return &MemoryPriceSnapshot{}
}

func (s *MemoryPriceSnapshot) StorePriceSnapshot(_ context.Context, price string) error {
	s.mu.Lock()
	s.price = price
	s.mu.Unlock()
	return nil
}

func (s *MemoryPriceSnapshot) PriceSnapshot(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price, nil
}
