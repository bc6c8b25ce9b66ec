package models

import (
	"fmt"
	"strings"
)

// Outcome is a finished game as reported by a client.
type Outcome struct {
	PuzzleID string   `json:"puzzleId"`
	Win      bool     `json:"win"`
	Guesses  []string `json:"guesses"`
	Solution string   `json:"solution,omitempty"`
	// Date is YYYY-MM-DD; empty means today (UTC).
	Date string `json:"date,omitempty"`
}

type OutcomeReceipt struct {
	Progress *Progress `json:"progress"`
	// Replayed is true when the outcome had already been recorded.
	Replayed  bool        `json:"replayed"`
	Mint      *MintResult `json:"mint,omitempty"`
	MintError string      `json:"mintError,omitempty"`
}

func (o *Outcome) Status() GameStatus {
	if o.Win {
		return StatusWon
	}
	return StatusLost
}

func (o *Outcome) Validate() error {
	if o.Date != "" {
		if _, err := parseDate(o.Date); err != nil {
			return fmt.Errorf("invalid date %q: %w", o.Date, err)
		}
	}
	if len(o.Guesses) == 0 {
		return fmt.Errorf("outcome must include at least one guess")
	}
	for i, g := range o.Guesses {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("guess %d is empty", i)
		}
	}
	return nil
}
