package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mathler-backend/internal/models"
	"mathler-backend/internal/session"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game",
	Long: `Starts a game against the server. Type a full equation and press enter
to submit it. Other commands:
  new     start another puzzle once the game is over
  bypass  end the current game as a win (testing aid)
  quit    leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var sink session.OutcomeSink
		if token != "" {
			sink = c
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No --token given, results will not be saved.")
		}

		s := session.New(c, sink, logger)
		return playLoop(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func playLoop(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) error {
	// A failed fetch is shown on the board.
	_ = s.Start(ctx)
	renderBoard(out, s.Snapshot())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "new":
			if err := s.Reset(ctx); errors.Is(err, session.ErrResetNotAllowed) {
				fmt.Fprintln(out, "Finish the current game first.")
				continue
			}
		case "bypass":
			s.Bypass(ctx)
		default:
			if err := enterGuess(ctx, s, line); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
		}

		renderBoard(out, s.Snapshot())
	}
}

// enterGuess replaces whatever is typed with line and submits it.
func enterGuess(ctx context.Context, s *session.Session, line string) error {
	for range []rune(s.Snapshot().Input) {
		if err := s.Press(ctx, session.KeyBackspace); err != nil {
			return err
		}
	}
	if err := s.Type(ctx, line); err != nil {
		return fmt.Errorf("only digits and + - * / are allowed")
	}
	return s.Press(ctx, session.KeyEnter)
}

func renderBoard(w io.Writer, snap session.Snapshot) {
	switch snap.Status {
	case models.StatusLoading:
		fmt.Fprintln(w, "Loading puzzle...")
		return
	case models.StatusErrorFetching:
		fmt.Fprintln(w, snap.Error)
		fmt.Fprintln(w, "Type 'new' to try again.")
		return
	}

	fmt.Fprintf(w, "\nFind the equation that equals %d (%d characters)\n", snap.TargetNumber, snap.SolutionLength)
	for _, attempt := range snap.History {
		fmt.Fprintln(w, "  "+renderTiles(attempt.Tiles))
	}
	for i := len(snap.History); i < session.MaxGuesses; i++ {
		fmt.Fprintln(w, "  "+strings.TrimSpace(strings.Repeat(" _ ", snap.SolutionLength)))
	}

	if keys := renderKeys(snap.KeyStates); keys != "" {
		fmt.Fprintln(w, "Keys: "+keys)
	}
	if snap.Error != "" {
		fmt.Fprintln(w, snap.Error)
	}

	switch snap.Status {
	case models.StatusWon:
		fmt.Fprintf(w, "Solved! The equation was %s\n", snap.Solution)
	case models.StatusLost:
		fmt.Fprintln(w, "Out of guesses.")
	default:
		fmt.Fprintf(w, "%d guesses left\n", snap.GuessesLeft)
	}

	if snap.Status.IsTerminal() {
		if snap.PersistErr != nil {
			fmt.Fprintf(w, "Could not save your result: %v\n", snap.PersistErr)
		} else if r := snap.Receipt; r != nil {
			if r.Mint != nil {
				fmt.Fprintf(w, "First win NFT minted: token %s (tx %s)\n", r.Mint.TokenID, r.Mint.TransactionHash)
			} else if r.MintError != "" {
				fmt.Fprintf(w, "First win NFT could not be minted: %s\n", r.MintError)
			}
			if r.Progress != nil {
				fmt.Fprintf(w, "Total wins: %d\n", r.Progress.TotalWins)
			}
		}
		fmt.Fprintln(w, "Type 'new' for another puzzle.")
	}
}

func renderTiles(tiles []models.Tile) string {
	parts := make([]string, len(tiles))
	for i, t := range tiles {
		parts[i] = renderTile(t.Value, t.State)
	}
	return strings.Join(parts, "")
}

func renderTile(r rune, state models.TileState) string {
	switch state {
	case models.TileCorrect:
		return "[" + string(r) + "]"
	case models.TilePresent:
		return "(" + string(r) + ")"
	default:
		return " " + string(r) + " "
	}
}

func renderKeys(states map[rune]models.TileState) string {
	if len(states) == 0 {
		return ""
	}
	keys := make([]rune, 0, len(states))
	for r := range states {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var b strings.Builder
	for _, r := range keys {
		b.WriteString(renderTile(r, states[r]))
	}
	return b.String()
}
