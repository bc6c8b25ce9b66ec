package models

import "time"

// ProgressVersion is bumped whenever the stored shape changes.
const ProgressVersion = 1

type Progress struct {
	SchemaVersion int `json:"schemaVersion"`
	// Revision increases on every save and doubles as an optimistic marker.
	Revision int64 `json:"revision"`

	HasEverSolvedAMathler bool                    `json:"hasEverSolvedAMathler"`
	TotalWins             int                     `json:"totalWins"`
	MathlerHistory        map[string]HistoryEntry `json:"mathlerHistory"`
	FirstWinNFT           *FirstWinNFT            `json:"firstWinNft,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

type HistoryEntry struct {
	PuzzleID string     `json:"puzzleId,omitempty"`
	Guesses  []string   `json:"guesses"`
	Status   GameStatus `json:"status"`
	Solution string     `json:"solution,omitempty"`
}

type FirstWinNFT struct {
	AttemptedAt     time.Time `json:"attemptedAt"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	TokenID         string    `json:"tokenId,omitempty"`
	Error           string    `json:"error,omitempty"`
}

func NewProgress() *Progress {
	return &Progress{
		SchemaVersion:  ProgressVersion,
		MathlerHistory: map[string]HistoryEntry{},
	}
}

// Normalize fills in fields that older or hand-written records may lack.
func (p *Progress) Normalize() {
	if p.SchemaVersion == 0 {
		p.SchemaVersion = ProgressVersion
	}
	if p.MathlerHistory == nil {
		p.MathlerHistory = map[string]HistoryEntry{}
	}
}

func (p *Progress) Clone() *Progress {
	out := *p
	out.MathlerHistory = make(map[string]HistoryEntry, len(p.MathlerHistory))
	for k, v := range p.MathlerHistory {
		v.Guesses = append([]string(nil), v.Guesses...)
		out.MathlerHistory[k] = v
	}
	if p.FirstWinNFT != nil {
		nft := *p.FirstWinNFT
		out.FirstWinNFT = &nft
	}
	return &out
}
