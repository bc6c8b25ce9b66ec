package services

import (
	"errors"

	"mathler-backend/internal/models"
)

var ErrLengthMismatch = errors.New("guess and solution lengths differ")

// Score grades guess against solution position by position. Exact matches
// are credited first; the remaining characters are then credited as present,
// left to right, while the solution still has unclaimed copies of them.
func Score(guess, solution string) ([]models.TileState, error) {
	g := []rune(guess)
	s := []rune(solution)
	if len(g) != len(s) {
		return nil, ErrLengthMismatch
	}

	remaining := make(map[rune]int, len(s))
	for _, r := range s {
		remaining[r]++
	}

	tiles := make([]models.TileState, len(g))
	for i := range g {
		if g[i] == s[i] {
			tiles[i] = models.TileCorrect
			remaining[g[i]]--
		}
	}

	for i := range g {
		if tiles[i] == models.TileCorrect {
			continue
		}
		if remaining[g[i]] > 0 {
			tiles[i] = models.TilePresent
			remaining[g[i]]--
		} else {
			tiles[i] = models.TileAbsent
		}
	}

	return tiles, nil
}

func AllCorrect(tiles []models.TileState) bool {
	if len(tiles) == 0 {
		return false
	}
	for _, t := range tiles {
		if t != models.TileCorrect {
			return false
		}
	}
	return true
}
