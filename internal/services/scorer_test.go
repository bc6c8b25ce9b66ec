package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathler-backend/internal/models"
)

const (
	correct = models.TileCorrect
	present = models.TilePresent
	absent  = models.TileAbsent
)

func TestScore(t *testing.T) {
	cases := []struct {
		name     string
		guess    string
		solution string
		want     []models.TileState
	}{
		{"exact", "5*2+0", "5*2+0", []models.TileState{correct, correct, correct, correct, correct}},
		{"value mismatch still scored", "1+1+1", "5*2+0", []models.TileState{absent, absent, absent, correct, absent}},
		{"rearranged", "2*5+0", "5*2+0", []models.TileState{present, correct, present, correct, correct}},
		{"nothing shared", "9-8-7", "5*2+0", []models.TileState{absent, absent, absent, absent, absent}},
		// the single '1' in the solution is already claimed by the exact match
		{"correct beats earlier present", "11+2", "21+3", []models.TileState{absent, correct, correct, present}},
		{"duplicate guess chars capped", "1111", "1234", []models.TileState{correct, absent, absent, absent}},
		{"first duplicate wins present", "2211", "1122", []models.TileState{present, present, present, present}},
		{"leftmost present only", "3300", "0003", []models.TileState{present, absent, correct, present}},
		{"pool entries", "10*2+5", "18-3*2", []models.TileState{correct, absent, present, present, absent, absent}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(tc.guess, tc.solution)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Score(%q, %q) mismatch (-want +got):\n%s", tc.guess, tc.solution, diff)
			}
		})
	}
}

func TestScoreLengthMismatch(t *testing.T) {
	_, err := Score("1+1", "5*2+0")
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestScoreCreditNeverExceedsSolutionCount(t *testing.T) {
	solutions := []string{"18-3*2", "10*2+5", "10-3+0", "50*2-0", "10/5-1", "11+1-1"}
	guesses := []string{"111111", "1+1+11", "000000", "10*2+5", "-+*/01", "2*5+10", "18-3*2"}

	for _, sol := range solutions {
		for _, g := range guesses {
			tiles, err := Score(g, sol)
			require.NoError(t, err)

			counts := map[rune]int{}
			for _, r := range sol {
				counts[r]++
			}
			credited := map[rune]int{}
			for i, r := range []rune(g) {
				if tiles[i] != models.TileAbsent {
					credited[r]++
				}
			}
			for r, n := range credited {
				assert.LessOrEqualf(t, n, counts[r], "guess %q vs %q over-credits %q", g, sol, r)
			}
		}
	}
}

func TestScoreSelfIsAllCorrect(t *testing.T) {
	for _, sol := range []string{"18-3*2", "5*2+0", "1111", "0/1+9"} {
		tiles, err := Score(sol, sol)
		require.NoError(t, err)
		assert.True(t, AllCorrect(tiles), sol)
	}
	assert.False(t, AllCorrect(nil))
}
