// Package client talks to the Mathler HTTP API. It implements the session's
// puzzle API and outcome sink.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"mathler-backend/internal/models"
	"mathler-backend/internal/services"
)

var (
	// ErrPuzzleExpired is the server's 404 for an unknown or expired puzzle.
	ErrPuzzleExpired    = services.ErrPuzzleNotFound
	ErrNotAuthenticated = errors.New("no session token configured")
)

// APIError is a non-2xx reply carrying the server's message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

// WithToken sets the bearer token sent to the progress endpoints.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 2 * time.Minute},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) NewPuzzle(ctx context.Context) (*models.PuzzleInfo, error) {
	var info models.PuzzleInfo
	if err := c.do(ctx, http.MethodGet, "/api/puzzle/new", nil, false, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) SubmitGuess(ctx context.Context, puzzleID, guess string) (*models.GuessOutcome, error) {
	req := models.SubmitGuessRequest{PuzzleID: puzzleID, GuessString: &guess}

	var out models.GuessOutcome
	err := c.do(ctx, http.MethodPost, "/api/puzzle/submit-guess", req, false, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, ErrPuzzleExpired
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecordOutcome(ctx context.Context, outcome models.Outcome) (*models.OutcomeReceipt, error) {
	var receipt models.OutcomeReceipt
	if err := c.do(ctx, http.MethodPost, "/api/progress/outcome", outcome, true, &receipt); err != nil {
		return nil, err
	}
	if receipt.MintError != "" {
		c.logger.Warn("first win mint failed", zap.String("error", receipt.MintError))
	}
	return &receipt, nil
}

func (c *Client) Progress(ctx context.Context) (*models.Progress, error) {
	var p models.Progress
	if err := c.do(ctx, http.MethodGet, "/api/progress", nil, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ResetProgress(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/progress", nil, true, nil)
}

// MintFirstWin calls the standalone mint endpoint.
func (c *Client) MintFirstWin(ctx context.Context, walletAddress, userID string) (*models.MintResponse, error) {
	req := models.MintRequest{UserWalletAddress: walletAddress, UserID: userID}

	var out models.MintResponse
	if err := c.do(ctx, http.MethodPost, "/api/feature/mint-first-win-nft", req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool, out any) error {
	if auth && c.token == "" {
		return ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e models.ErrorResponse
		_ = json.Unmarshal(raw, &e)
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", e.Message))
		return &APIError{StatusCode: resp.StatusCode, Message: e.Message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
