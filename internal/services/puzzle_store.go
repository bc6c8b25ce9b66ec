package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"mathler-backend/internal/clock"
	"mathler-backend/internal/models"
)

var ErrPuzzleNotFound = errors.New("puzzle session expired or invalid ID")

type PuzzleStore interface {
	// Put stores p; it must become unreadable once ttl has elapsed.
	Put(ctx context.Context, p *models.Puzzle, ttl time.Duration) error
	// Get returns ErrPuzzleNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*models.Puzzle, error)
}

type memoryEntry struct {
	puzzle    models.Puzzle
	expiresAt time.Time
	timer     clock.Timer
}

// MemoryPuzzleStore keeps puzzles in process. Eviction is scheduled on the
// clock when a puzzle is stored; reads also compare against the deadline so a
// lookup racing the eviction callback still sees the puzzle as gone.
type MemoryPuzzleStore struct {
	clock   clock.Clock
	mu      sync.Mutex
	puzzles map[string]*memoryEntry
}

func NewMemoryPuzzleStore(c clock.Clock) *MemoryPuzzleStore {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryPuzzleStore{
		clock:   c,
		puzzles: make(map[string]*memoryEntry),
	}
}

func (s *MemoryPuzzleStore) Put(ctx context.Context, p *models.Puzzle, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := &memoryEntry{
		puzzle:    *p,
		expiresAt: s.clock.Now().Add(ttl),
	}

	s.mu.Lock()
	if old, ok := s.puzzles[p.ID]; ok && old.timer != nil {
		old.timer.Stop()
	}
	s.puzzles[p.ID] = entry
	s.mu.Unlock()

	id := p.ID
	timer := s.clock.AfterFunc(ttl, func() { s.evict(id, entry) })

	s.mu.Lock()
	entry.timer = timer
	s.mu.Unlock()

	return nil
}

func (s *MemoryPuzzleStore) Get(ctx context.Context, id string) (*models.Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.puzzles[id]
	if !ok || !s.clock.Now().Before(entry.expiresAt) {
		return nil, ErrPuzzleNotFound
	}

	p := entry.puzzle
	return &p, nil
}

func (s *MemoryPuzzleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puzzles)
}

// evict removes id only if it still maps to entry, so a re-Put of the same id
// is not dropped by the earlier timer.
func (s *MemoryPuzzleStore) evict(id string, entry *memoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.puzzles[id]; ok && current == entry {
		delete(s.puzzles, id)
	}
}
