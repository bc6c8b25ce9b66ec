package models

// SubmitGuessRequest keeps GuessString as a pointer so that a missing or
// non-string field can be told apart from an empty guess.
type SubmitGuessRequest struct {
	PuzzleID    string  `json:"puzzleId"`
	GuessString *string `json:"guessString"`
}

type MintRequest struct {
	UserWalletAddress string `json:"userWalletAddress" binding:"required"`
	UserID            string `json:"userId" binding:"required"`
}

type MintResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	TransactionHash string `json:"transactionHash,omitempty"`
	TokenID         string `json:"tokenId,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
