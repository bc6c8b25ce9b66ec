package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"mathler-backend/internal/clock"
	"mathler-backend/internal/models"
)

const DefaultPuzzleTTL = 10 * time.Minute

type PuzzleRegistry struct {
	store  PuzzleStore
	pool   *PuzzlePool
	clock  clock.Clock
	ttl    time.Duration
	logger *zap.Logger
}

func NewPuzzleRegistry(store PuzzleStore, pool *PuzzlePool, c clock.Clock, ttl time.Duration, logger *zap.Logger) *PuzzleRegistry {
	if c == nil {
		c = clock.Real()
	}
	if ttl <= 0 {
		ttl = DefaultPuzzleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PuzzleRegistry{
		store:  store,
		pool:   pool,
		clock:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *PuzzleRegistry) SolutionLength() int {
	return r.pool.SolutionLength()
}

// Issue registers a fresh puzzle and returns its public view.
func (r *PuzzleRegistry) Issue(ctx context.Context) (*models.PuzzleInfo, error) {
	now := r.clock.Now()
	entry := r.pool.Pick(now)

	puzzle := &models.Puzzle{
		ID:           models.GeneratePuzzleID(),
		TargetNumber: entry.TargetNumber,
		Solution:     entry.Solution,
		CreatedAt:    now,
	}

	if err := r.store.Put(ctx, puzzle, r.ttl); err != nil {
		return nil, fmt.Errorf("failed to store puzzle: %w", err)
	}

	r.logger.Debug("puzzle issued",
		zap.String("puzzle_id", puzzle.ID),
		zap.Int("target", puzzle.TargetNumber),
		zap.Duration("ttl", r.ttl))

	return &models.PuzzleInfo{
		PuzzleID:       puzzle.ID,
		TargetNumber:   puzzle.TargetNumber,
		SolutionLength: r.pool.SolutionLength(),
	}, nil
}

// CheckGuess scores guess against the stored puzzle. The only error returned
// for a well-formed call is ErrPuzzleNotFound; every gameplay rejection comes
// back inside the outcome with GameStatus playing.
func (r *PuzzleRegistry) CheckGuess(ctx context.Context, puzzleID, guess string) (*models.GuessOutcome, error) {
	puzzle, err := r.store.Get(ctx, puzzleID)
	if err != nil {
		return nil, err
	}

	length := r.pool.SolutionLength()
	if utf8.RuneCountInString(guess) != length {
		return &models.GuessOutcome{
			Guess:      guess,
			TileColors: []models.TileState{},
			GameStatus: models.StatusPlaying,
			Error:      fmt.Sprintf("Guess must be %d characters.", length),
		}, nil
	}

	value, err := Evaluate(guess)
	if err != nil {
		return &models.GuessOutcome{
			Guess:      guess,
			TileColors: []models.TileState{},
			GameStatus: models.StatusPlaying,
			Error:      "Invalid mathematical expression.",
		}, nil
	}

	tiles, err := Score(guess, puzzle.Solution)
	if err != nil {
		return nil, fmt.Errorf("failed to score guess: %w", err)
	}

	outcome := &models.GuessOutcome{
		Guess:          guess,
		EvaluatedValue: models.Float64Ptr(value),
		TileColors:     tiles,
		GameStatus:     models.StatusPlaying,
	}

	if value != float64(puzzle.TargetNumber) {
		outcome.Error = fmt.Sprintf("Expression evaluates to %s, not %d.", models.FormatValue(value), puzzle.TargetNumber)
		return outcome, nil
	}

	outcome.MatchesTarget = true
	// A different expression with the same value keeps the game going.
	if AllCorrect(tiles) {
		outcome.GameStatus = models.StatusWon
		outcome.Solution = puzzle.Solution
	}

	return outcome, nil
}
