package models

import "time"

type TileState string

const (
	TileCorrect TileState = "correct"
	TilePresent TileState = "present"
	TileAbsent  TileState = "absent"
)

// Rank orders tile states for keyboard upgrades: correct > present > absent.
func (s TileState) Rank() int {
	switch s {
	case TileCorrect:
		return 3
	case TilePresent:
		return 2
	case TileAbsent:
		return 1
	default:
		return 0
	}
}

type GameStatus string

const (
	StatusLoading       GameStatus = "loading"
	StatusPlaying       GameStatus = "playing"
	StatusSubmitting    GameStatus = "submitting"
	StatusWon           GameStatus = "won"
	StatusLost          GameStatus = "lost"
	StatusErrorFetching GameStatus = "error_fetching"
)

func (s GameStatus) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// Puzzle is the server-held record. Solution never leaves the registry
// except in a winning GuessOutcome.
type Puzzle struct {
	ID           string    `json:"id" redis:"id"`
	TargetNumber int       `json:"target_number" redis:"target_number"`
	Solution     string    `json:"solution" redis:"solution"`
	CreatedAt    time.Time `json:"created_at" redis:"created_at"`
}

type PuzzleInfo struct {
	PuzzleID       string `json:"puzzleId"`
	TargetNumber   int    `json:"targetNumber"`
	SolutionLength int    `json:"solutionLength"`
}

type GuessOutcome struct {
	Guess          string      `json:"guess"`
	MatchesTarget  bool        `json:"matchesTarget"`
	EvaluatedValue *float64    `json:"evaluatedValue"`
	TileColors     []TileState `json:"tileColors"`
	GameStatus     GameStatus  `json:"gameStatus"`
	Error          string      `json:"error,omitempty"`
	Solution       string      `json:"solution,omitempty"`
}

type Tile struct {
	Value rune      `json:"value"`
	State TileState `json:"state"`
}

type GuessAttempt struct {
	Guess string `json:"guess"`
	Tiles []Tile `json:"tiles"`
}

// NewGuessAttempt pairs each character of guess with its scored state.
// states must have the same rune length as guess.
func NewGuessAttempt(guess string, states []TileState) GuessAttempt {
	runes := []rune(guess)
	tiles := make([]Tile, len(states))
	for i, st := range states {
		var r rune
		if i < len(runes) {
			r = runes[i]
		}
		tiles[i] = Tile{Value: r, State: st}
	}
	return GuessAttempt{Guess: guess, Tiles: tiles}
}
