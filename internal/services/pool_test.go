package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPoolIsValid(t *testing.T) {
	pool, err := NewPuzzlePool(DefaultPoolEntries, 6, SelectSequential)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultPoolEntries), pool.Len())
	assert.Equal(t, 6, pool.SolutionLength())
}

func TestPoolRejectsBadEntries(t *testing.T) {
	cases := map[string]PoolEntry{
		"short":         {TargetNumber: 30, Solution: "6*5+0"},
		"wrong value":   {TargetNumber: 13, Solution: "18-3*2"},
		"not evaluable": {TargetNumber: 1, Solution: "10/0+1"},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPuzzlePool([]PoolEntry{entry}, 6, SelectSequential)
			assert.Error(t, err)
		})
	}

	_, err := NewPuzzlePool(nil, 6, SelectSequential)
	assert.Error(t, err)
}

func TestPoolSequentialRoundRobin(t *testing.T) {
	pool, err := NewPuzzlePool(DefaultPoolEntries[:3], 6, SelectSequential)
	require.NoError(t, err)

	now := time.Now()
	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, pool.Pick(now).Solution)
	}
	assert.Equal(t, []string{"18-3*2", "10*2+5", "10-3+0", "18-3*2"}, got)
}

func TestPoolDailyIsStableWithinDay(t *testing.T) {
	pool, err := NewPuzzlePool(DefaultPoolEntries, 6, SelectDaily)
	require.NoError(t, err)

	morning := time.Date(2025, 2, 3, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 2, 3, 23, 0, 0, 0, time.UTC)
	tomorrow := morning.Add(24 * time.Hour)

	assert.Equal(t, pool.Pick(morning), pool.Pick(evening))
	assert.NotEqual(t, pool.Pick(morning), pool.Pick(tomorrow))
}

func TestLoadPoolEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	content := `puzzles:
  - target: 12
    solution: "18-3*2"
  - target: 9
    solution: "3*3+0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := LoadPoolEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, PoolEntry{TargetNumber: 9, Solution: "3*3+0"}, entries[1])

	_, err = NewPuzzlePool(entries, 6, SelectSequential)
	assert.Error(t, err, "the five character entry must be rejected")

	_, err = LoadPoolEntries(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseSelectionPolicy(t *testing.T) {
	policy, err := ParseSelectionPolicy("daily")
	require.NoError(t, err)
	assert.Equal(t, SelectDaily, policy)

	policy, err = ParseSelectionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SelectSequential, policy)

	_, err = ParseSelectionPolicy("random")
	assert.Error(t, err)
}

func TestBundledPoolFileIsValid(t *testing.T) {
	entries, err := LoadPoolEntries(filepath.Join("..", "..", "configs", "puzzles.yaml"))
	require.NoError(t, err)

	pool, err := NewPuzzlePool(entries, 6, SelectSequential)
	require.NoError(t, err)
	assert.Equal(t, len(entries), pool.Len())
}
