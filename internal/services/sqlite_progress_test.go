package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathler-backend/internal/models"
)

func TestSQLiteProgressStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteProgressStore(ctx, filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.LoadProgress(ctx, "user-1")
	assert.ErrorIs(t, err, ErrProgressNotFound)

	p := models.NewProgress()
	p.TotalWins = 1
	p.HasEverSolvedAMathler = true
	p.MathlerHistory["2025-01-01"] = models.HistoryEntry{PuzzleID: "p1", Guesses: []string{"10*2+5"}, Status: models.StatusWon, Solution: "10*2+5"}
	require.NoError(t, store.SaveProgress(ctx, "user-1", p))
	assert.Equal(t, int64(1), p.Revision)

	loaded, err := store.LoadProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.TotalWins)
	assert.Equal(t, int64(1), loaded.Revision)
	assert.Equal(t, "10*2+5", loaded.MathlerHistory["2025-01-01"].Solution)

	stale := models.NewProgress()
	assert.ErrorIs(t, store.SaveProgress(ctx, "user-1", stale), ErrProgressConflict)

	loaded.TotalWins = 2
	require.NoError(t, store.SaveProgress(ctx, "user-1", loaded))
	assert.ErrorIs(t, store.SaveProgress(ctx, "user-1", p), ErrProgressConflict)

	require.NoError(t, store.DeleteProgress(ctx, "user-1"))
	_, err = store.LoadProgress(ctx, "user-1")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestSQLiteBackedRecorder(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteProgressStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	minter := &fakeMinter{}
	rec := NewOutcomeRecorder(store, minter, nil, nil)

	receipt, err := rec.RecordOutcome(ctx, "user-9", wallet, models.Outcome{PuzzleID: "p", Win: true, Guesses: []string{"50*2-0"}, Solution: "50*2-0"})
	require.NoError(t, err)
	require.NotNil(t, receipt.Mint)
	assert.Equal(t, int64(2), receipt.Progress.Revision)
	assert.Equal(t, 1, minter.calls)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLiteProgressStore(context.Background(), " ")
	assert.Error(t, err)
}
