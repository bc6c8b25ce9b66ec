package services

import (
	"context"
	"errors"
	"sync"

	"mathler-backend/internal/models"
)

var (
	ErrProgressNotFound = errors.New("progress not found")
	// ErrProgressConflict means the record changed since it was loaded.
	ErrProgressConflict = errors.New("progress revision conflict")
)

// ProgressStore persists one Progress record per user. SaveProgress succeeds
// only when the stored revision equals p.Revision, and advances p.Revision.
type ProgressStore interface {
	LoadProgress(ctx context.Context, userID string) (*models.Progress, error)
	SaveProgress(ctx context.Context, userID string, p *models.Progress) error
	DeleteProgress(ctx context.Context, userID string) error
}

type MemoryProgressStore struct {
	mu      sync.Mutex
	records map[string]*models.Progress
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{records: make(map[string]*models.Progress)}
}

func (s *MemoryProgressStore) LoadProgress(ctx context.Context, userID string) (*models.Progress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[userID]
	if !ok {
		return nil, ErrProgressNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryProgressStore) SaveProgress(ctx context.Context, userID string, p *models.Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.records[userID]; ok {
		current = existing.Revision
	}
	if current != p.Revision {
		return ErrProgressConflict
	}

	p.Revision++
	s.records[userID] = p.Clone()
	return nil
}

func (s *MemoryProgressStore) DeleteProgress(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
