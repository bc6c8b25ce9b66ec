package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mathler-backend/internal/clock"
	"mathler-backend/internal/models"
)

const maxSaveAttempts = 3

// OutcomeRecorder is the single entry point for finished games. It updates
// the player's progress and, for a first ever win, triggers the achievement
// mint. The progress write always happens before the mint; a failed mint is
// reported in the receipt and never undoes the recorded win.
type OutcomeRecorder struct {
	store  ProgressStore
	minter Minter
	clock  clock.Clock
	logger *zap.Logger
}

func NewOutcomeRecorder(store ProgressStore, minter Minter, c clock.Clock, logger *zap.Logger) *OutcomeRecorder {
	if minter == nil {
		minter = DisabledMinter{}
	}
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeRecorder{store: store, minter: minter, clock: c, logger: logger}
}

func (r *OutcomeRecorder) Progress(ctx context.Context, userID string) (*models.Progress, error) {
	p, err := r.store.LoadProgress(ctx, userID)
	if errors.Is(err, ErrProgressNotFound) {
		return models.NewProgress(), nil
	}
	return p, err
}

func (r *OutcomeRecorder) RecordOutcome(ctx context.Context, userID, walletAddress string, outcome models.Outcome) (*models.OutcomeReceipt, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if err := outcome.Validate(); err != nil {
		return nil, err
	}
	if outcome.Date == "" {
		outcome.Date = models.DateKey(r.clock.Now())
	}

	var (
		progress  *models.Progress
		firstWin  bool
		replayed  bool
		lastError error
	)

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		// A conflicting writer may have recorded this same outcome.
		firstWin = false

		p, err := r.Progress(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}

		if isReplay(p, outcome) {
			progress, replayed = p, true
			break
		}

		firstWin = outcome.Win && !p.HasEverSolvedAMathler && p.FirstWinNFT == nil
		applyOutcome(p, outcome)
		p.UpdatedAt = r.clock.Now()
		if firstWin {
			p.FirstWinNFT = &models.FirstWinNFT{AttemptedAt: r.clock.Now()}
		}

		lastError = r.store.SaveProgress(ctx, userID, p)
		if lastError == nil {
			progress = p
			break
		}
		if !errors.Is(lastError, ErrProgressConflict) {
			return nil, fmt.Errorf("failed to save progress: %w", lastError)
		}
	}
	if progress == nil {
		return nil, fmt.Errorf("failed to save progress: %w", lastError)
	}

	receipt := &models.OutcomeReceipt{Progress: progress, Replayed: replayed}

	r.logger.Info("game outcome recorded",
		zap.String("user_id", userID),
		zap.String("puzzle_id", outcome.PuzzleID),
		zap.Bool("win", outcome.Win),
		zap.Bool("replayed", replayed),
		zap.Int("total_wins", progress.TotalWins))

	if !firstWin {
		return receipt, nil
	}

	result, mintErr := r.minter.MintFirstWin(ctx, walletAddress, userID)
	if mintErr != nil {
		receipt.MintError = mintErr.Error()
		r.logger.Warn("first win mint failed",
			zap.String("user_id", userID),
			zap.Error(mintErr))
	} else {
		receipt.Mint = result
	}

	if err := r.recordMint(ctx, userID, result, mintErr); err != nil {
		r.logger.Error("failed to store mint result",
			zap.String("user_id", userID),
			zap.Error(err))
	} else if p, err := r.store.LoadProgress(ctx, userID); err == nil {
		receipt.Progress = p
	}

	return receipt, nil
}

// ResetProgress clears the game fields of a player's record.
func (r *OutcomeRecorder) ResetProgress(ctx context.Context, userID string) error {
	if err := r.store.DeleteProgress(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	r.logger.Info("progress reset", zap.String("user_id", userID))
	return nil
}

func (r *OutcomeRecorder) recordMint(ctx context.Context, userID string, result *models.MintResult, mintErr error) error {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		p, err := r.store.LoadProgress(ctx, userID)
		if err != nil {
			return err
		}
		if p.FirstWinNFT == nil {
			p.FirstWinNFT = &models.FirstWinNFT{AttemptedAt: r.clock.Now()}
		}
		if mintErr != nil {
			p.FirstWinNFT.Error = mintErr.Error()
		} else {
			p.FirstWinNFT.Error = ""
			p.FirstWinNFT.TransactionHash = result.TransactionHash
			p.FirstWinNFT.TokenID = result.TokenID
		}

		lastErr = r.store.SaveProgress(ctx, userID, p)
		if !errors.Is(lastErr, ErrProgressConflict) {
			return lastErr
		}
	}
	return lastErr
}

func isReplay(p *models.Progress, o models.Outcome) bool {
	entry, ok := p.MathlerHistory[o.Date]
	if !ok || o.PuzzleID == "" {
		return false
	}
	return entry.PuzzleID == o.PuzzleID && entry.Status == o.Status()
}

func applyOutcome(p *models.Progress, o models.Outcome) {
	p.Normalize()

	if o.Win {
		p.HasEverSolvedAMathler = true
		p.TotalWins++
	}

	entry := models.HistoryEntry{
		PuzzleID: o.PuzzleID,
		Guesses:  append([]string(nil), o.Guesses...),
		Status:   o.Status(),
	}
	if o.Win {
		entry.Solution = o.Solution
	}
	p.MathlerHistory[o.Date] = entry
	p.SchemaVersion = models.ProgressVersion
}
