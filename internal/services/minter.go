package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mathler-backend/internal/models"
)

var (
	ErrMintingDisabled = errors.New("NFT minting is not configured")
	ErrAlreadyAwarded  = errors.New("first win NFT already awarded to this address")
)

// Minter awards the first-win achievement token to a wallet.
type Minter interface {
	MintFirstWin(ctx context.Context, walletAddress, userID string) (*models.MintResult, error)
}

type DisabledMinter struct{}

func (DisabledMinter) MintFirstWin(context.Context, string, string) (*models.MintResult, error) {
	return nil, ErrMintingDisabled
}

// RelayMinter asks a signing relay to submit the achievement mint on chain
// and waits for the relay to report the confirmed transaction.
type RelayMinter struct {
	url    string
	token  string
	client *http.Client
	logger *zap.Logger
}

type relayMintRequest struct {
	Recipient string `json:"recipient"`
	UserID    string `json:"userId"`
}

type relayMintResponse struct {
	TransactionHash string `json:"transactionHash"`
	TokenID         string `json:"tokenId"`
	Message         string `json:"message"`
	Code            string `json:"code"`
}

func NewRelayMinter(url, token string, timeout time.Duration, logger *zap.Logger) *RelayMinter {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayMinter{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (m *RelayMinter) MintFirstWin(ctx context.Context, walletAddress, userID string) (*models.MintResult, error) {
	if !models.IsWalletAddress(walletAddress) {
		return nil, fmt.Errorf("invalid wallet address %q", walletAddress)
	}

	body, err := json.Marshal(relayMintRequest{Recipient: walletAddress, UserID: userID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("NFT minting failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	m.logger.Info("requesting first win mint",
		zap.String("wallet", walletAddress),
		zap.String("user_id", userID))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NFT minting failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("NFT minting failed: read relay response: %w", err)
	}

	var out relayMintResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("NFT minting failed: decode relay response: %w", err)
		}
	}

	if resp.StatusCode == http.StatusConflict || out.Code == "already_awarded" {
		return nil, ErrAlreadyAwarded
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("NFT minting failed: %s", msg)
	}
	if out.TransactionHash == "" {
		return nil, fmt.Errorf("NFT minting failed: relay returned no transaction hash")
	}

	m.logger.Info("first win mint confirmed",
		zap.String("tx_hash", out.TransactionHash),
		zap.String("token_id", out.TokenID))

	return &models.MintResult{TransactionHash: out.TransactionHash, TokenID: out.TokenID}, nil
}
