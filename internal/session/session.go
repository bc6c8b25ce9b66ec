// Package session holds the client side of a Mathler game: the current guess
// being typed, the submitted attempts and the status that drives the UI.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mathler-backend/internal/models"
	"mathler-backend/internal/services"
)

const (
	MaxGuesses = 6

	KeyEnter     = "ENTER"
	KeyBackspace = "BACKSPACE"

	BypassGuess    = "BYPASSED"
	BypassSolution = "BYPASSED - Solution N/A"
	BypassMark     = '✓'
)

var (
	ErrSubmissionInFlight = errors.New("a guess is already being submitted")
	ErrResetNotAllowed    = errors.New("game is still in progress")
	ErrUnknownKey         = errors.New("unsupported key")
)

// API is the puzzle service as seen from the client.
type API interface {
	NewPuzzle(ctx context.Context) (*models.PuzzleInfo, error)
	SubmitGuess(ctx context.Context, puzzleID, guess string) (*models.GuessOutcome, error)
}

// OutcomeSink persists a finished game.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, outcome models.Outcome) (*models.OutcomeReceipt, error)
}

type Session struct {
	api    API
	sink   OutcomeSink
	logger *zap.Logger

	mu         sync.Mutex
	generation int
	status     models.GameStatus
	puzzleID   string
	target     int
	length     int
	history    []models.GuessAttempt
	input      []rune
	message    string
	solution   string
	keyStates  map[rune]models.TileState
	persistErr error
	receipt    *models.OutcomeReceipt
}

// Snapshot is a copy of the session state safe to hand to a renderer.
type Snapshot struct {
	Status         models.GameStatus
	PuzzleID       string
	TargetNumber   int
	SolutionLength int
	History        []models.GuessAttempt
	Input          string
	Error          string
	Solution       string
	KeyStates      map[rune]models.TileState
	GuessesLeft    int
	PersistErr     error
	Receipt        *models.OutcomeReceipt
}

// New returns a session in the loading state. A nil sink skips outcome
// persistence.
func New(api API, sink OutcomeSink, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		api:       api,
		sink:      sink,
		logger:    logger,
		status:    models.StatusLoading,
		keyStates: make(map[rune]models.TileState),
	}
}

// Start fetches the first puzzle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	gen := s.beginLoadingLocked()
	s.mu.Unlock()

	return s.load(ctx, gen)
}

// Reset discards a finished game and fetches a new puzzle.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	switch s.status {
	case models.StatusWon, models.StatusLost, models.StatusErrorFetching:
	default:
		s.mu.Unlock()
		return ErrResetNotAllowed
	}
	gen := s.beginLoadingLocked()
	s.mu.Unlock()

	return s.load(ctx, gen)
}

func (s *Session) beginLoadingLocked() int {
	s.generation++
	s.status = models.StatusLoading
	s.puzzleID = ""
	s.target = 0
	s.length = 0
	s.history = nil
	s.input = nil
	s.message = ""
	s.solution = ""
	s.keyStates = make(map[rune]models.TileState)
	s.persistErr = nil
	s.receipt = nil
	return s.generation
}

func (s *Session) load(ctx context.Context, gen int) error {
	info, err := s.api.NewPuzzle(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}

	if err != nil {
		s.status = models.StatusErrorFetching
		s.message = fmt.Sprintf("Could not load new puzzle: %v", err)
		s.logger.Warn("failed to load puzzle", zap.Error(err))
		return err
	}

	s.status = models.StatusPlaying
	s.puzzleID = info.PuzzleID
	s.target = info.TargetNumber
	s.length = info.SolutionLength
	return nil
}

// Press handles one key from the on-screen or physical keyboard: a digit,
// an operator, KeyBackspace or KeyEnter. Keys outside the playing state are
// ignored, except that KeyEnter while a guess is in flight reports
// ErrSubmissionInFlight.
func (s *Session) Press(ctx context.Context, key string) error {
	switch key {
	case KeyEnter:
		return s.submit(ctx)
	case KeyBackspace:
		s.backspace()
		return nil
	}

	runes := []rune(key)
	if len(runes) != 1 || !isGuessRune(runes[0]) {
		return ErrUnknownKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.StatusPlaying {
		return nil
	}
	if len(s.input) < s.length {
		s.input = append(s.input, runes[0])
	}
	s.message = ""
	return nil
}

// Type presses each character of text in order.
func (s *Session) Type(ctx context.Context, text string) error {
	for _, r := range text {
		if err := s.Press(ctx, string(r)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) backspace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.StatusPlaying {
		return
	}
	if len(s.input) > 0 {
		s.input = s.input[:len(s.input)-1]
	}
	s.message = ""
}

func (s *Session) submit(ctx context.Context) error {
	s.mu.Lock()
	switch s.status {
	case models.StatusSubmitting:
		s.mu.Unlock()
		return ErrSubmissionInFlight
	case models.StatusPlaying:
	default:
		s.mu.Unlock()
		return nil
	}

	guess := string(s.input)
	if msg := s.preflightLocked(guess); msg != "" {
		s.message = msg
		s.mu.Unlock()
		return nil
	}

	s.status = models.StatusSubmitting
	s.message = ""
	gen := s.generation
	puzzleID := s.puzzleID
	s.mu.Unlock()

	out, err := s.api.SubmitGuess(ctx, puzzleID, guess)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}

	if errors.Is(err, services.ErrPuzzleNotFound) {
		s.status = models.StatusErrorFetching
		s.message = "Puzzle session expired or invalid ID. Start a new game."
		s.mu.Unlock()
		s.logger.Warn("puzzle no longer available", zap.String("puzzle_id", puzzleID))
		return nil
	}
	if err != nil {
		s.status = models.StatusPlaying
		s.message = fmt.Sprintf("Submission failed: %v", err)
		s.mu.Unlock()
		s.logger.Warn("guess submission failed", zap.String("puzzle_id", puzzleID), zap.Error(err))
		return nil
	}

	s.status = models.StatusPlaying
	s.message = out.Error

	// A reply without a full row of tiles, or for a value the server did not
	// accept, is a rejection and does not use up a guess.
	if len(out.TileColors) != s.length || !out.MatchesTarget {
		s.mu.Unlock()
		return nil
	}

	s.history = append(s.history, models.NewGuessAttempt(guess, out.TileColors))
	s.input = nil
	s.updateKeyStatesLocked()

	var outcome *models.Outcome
	switch {
	case out.GameStatus == models.StatusWon:
		s.status = models.StatusWon
		s.solution = out.Solution
		outcome = s.outcomeLocked(true, out.Solution)
	case len(s.history) >= MaxGuesses:
		s.status = models.StatusLost
		outcome = s.outcomeLocked(false, "")
	}
	s.mu.Unlock()

	if outcome != nil {
		s.persist(ctx, gen, *outcome)
	}
	return nil
}

// preflightLocked repeats the server's checks locally so that a guess which
// cannot count is never sent.
func (s *Session) preflightLocked(guess string) string {
	if len(s.input) != s.length {
		return fmt.Sprintf("Equation must be %d characters.", s.length)
	}
	value, err := services.Evaluate(guess)
	if err != nil {
		return "Invalid math expression format."
	}
	if value != float64(s.target) {
		return fmt.Sprintf("Expression evaluates to %s, not %d.", models.FormatValue(value), s.target)
	}
	return ""
}

// Bypass ends the current game as a win without consulting the server. The
// board shows a single row of check marks.
func (s *Session) Bypass(ctx context.Context) {
	s.mu.Lock()
	if s.status != models.StatusPlaying || s.length == 0 {
		s.mu.Unlock()
		return
	}

	tiles := make([]models.Tile, s.length)
	for i := range tiles {
		tiles[i] = models.Tile{Value: BypassMark, State: models.TileCorrect}
	}

	s.history = []models.GuessAttempt{{Guess: BypassGuess, Tiles: tiles}}
	s.input = nil
	s.message = ""
	s.status = models.StatusWon
	s.solution = BypassSolution

	gen := s.generation
	outcome := s.outcomeLocked(true, BypassSolution)
	s.mu.Unlock()

	s.logger.Info("game bypassed", zap.String("puzzle_id", outcome.PuzzleID))
	s.persist(ctx, gen, *outcome)
}

func (s *Session) outcomeLocked(win bool, solution string) *models.Outcome {
	guesses := make([]string, len(s.history))
	for i, a := range s.history {
		guesses[i] = a.Guess
	}
	return &models.Outcome{
		PuzzleID: s.puzzleID,
		Win:      win,
		Guesses:  guesses,
		Solution: solution,
	}
}

// persist runs after the terminal status is already visible. Its failure is
// kept for display and never changes the status.
func (s *Session) persist(ctx context.Context, gen int, outcome models.Outcome) {
	if s.sink == nil {
		return
	}

	receipt, err := s.sink.RecordOutcome(ctx, outcome)
	if err != nil {
		s.logger.Error("failed to record game outcome",
			zap.String("puzzle_id", outcome.PuzzleID),
			zap.Bool("win", outcome.Win),
			zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.persistErr = err
	s.receipt = receipt
}

// updateKeyStatesLocked rebuilds the keyboard hints from every attempt. A
// key only ever moves up in rank.
func (s *Session) updateKeyStatesLocked() {
	for _, attempt := range s.history {
		for _, tile := range attempt.Tiles {
			if tile.State.Rank() > s.keyStates[tile.Value].Rank() {
				s.keyStates[tile.Value] = tile.State
			}
		}
	}
}

func (s *Session) Status() models.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.GuessAttempt, len(s.history))
	for i, a := range s.history {
		history[i] = models.GuessAttempt{Guess: a.Guess, Tiles: append([]models.Tile(nil), a.Tiles...)}
	}
	keys := make(map[rune]models.TileState, len(s.keyStates))
	for k, v := range s.keyStates {
		keys[k] = v
	}

	return Snapshot{
		Status:         s.status,
		PuzzleID:       s.puzzleID,
		TargetNumber:   s.target,
		SolutionLength: s.length,
		History:        history,
		Input:          string(s.input),
		Error:          s.message,
		Solution:       s.solution,
		KeyStates:      keys,
		GuessesLeft:    MaxGuesses - len(s.history),
		PersistErr:     s.persistErr,
		Receipt:        s.receipt,
	}
}

func isGuessRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '+', r == '-', r == '*', r == '/':
		return true
	}
	return false
}
