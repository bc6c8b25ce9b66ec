package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"mathler-backend/internal/clock"
	"mathler-backend/internal/config"
	"mathler-backend/internal/handlers"
	"mathler-backend/internal/models"
	"mathler-backend/internal/services"
	"mathler-backend/internal/session"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

type okMinter struct{}

func (okMinter) MintFirstWin(context.Context, string, string) (*models.MintResult, error) {
	return &models.MintResult{TransactionHash: "0xbeef", TokenID: "1"}, nil
}

type fixture struct {
	server *httptest.Server
	clock  *clock.Manual
	jwt    *services.JWTService
	ws     *handlers.WebSocketHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := clock.NewManual(time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC))
	pool, err := services.NewPuzzlePool([]services.PoolEntry{{TargetNumber: 25, Solution: "10*2+5"}}, 6, services.SelectSequential)
	require.NoError(t, err)

	logger := zap.NewNop()
	registry := services.NewPuzzleRegistry(services.NewMemoryPuzzleStore(c), pool, c, time.Minute, logger)
	recorder := services.NewOutcomeRecorder(services.NewMemoryProgressStore(), okMinter{}, c, logger)
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "secret", JWTTTL: time.Hour})
	ws := handlers.NewWebSocketHandler(nil, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		JWT:       jwtService,
		Puzzles:   handlers.NewPuzzleHandler(registry, logger),
		Features:  handlers.NewFeatureHandler(okMinter{}, logger),
		Users:     handlers.NewUserHandler(recorder, logger),
		WebSocket: ws,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		ws.Stop()
		srv.Close()
	})
	return &fixture{server: srv, clock: c, jwt: jwtService, ws: ws}
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	token, err := f.jwt.GenerateToken("player-1", testWallet)
	require.NoError(t, err)
	return token
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("http://localhost:8080/")
	assert.NoError(t, err)
}

func TestPuzzleRoundTrip(t *testing.T) {
	f := newFixture(t)
	c, err := New(f.server.URL)
	require.NoError(t, err)
	ctx := context.Background()

	info, err := c.NewPuzzle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, info.TargetNumber)
	assert.Equal(t, 6, info.SolutionLength)

	out, err := c.SubmitGuess(ctx, info.PuzzleID, "10*2+5")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWon, out.GameStatus)
	assert.Equal(t, "10*2+5", out.Solution)

	_, err = c.SubmitGuess(ctx, "missing", "10*2+5")
	assert.ErrorIs(t, err, ErrPuzzleExpired)

	f.clock.Advance(time.Minute)
	_, err = c.SubmitGuess(ctx, info.PuzzleID, "10*2+5")
	assert.ErrorIs(t, err, ErrPuzzleExpired)
}

func TestProgressNeedsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	anon, err := New(f.server.URL)
	require.NoError(t, err)
	_, err = anon.Progress(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	bad, err := New(f.server.URL, WithToken("forged"))
	require.NoError(t, err)
	_, err = bad.Progress(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid or expired token", apiErr.Message)
}

func TestSessionAgainstServer(t *testing.T) {
	f := newFixture(t)
	c, err := New(f.server.URL, WithToken(f.token(t)))
	require.NoError(t, err)
	ctx := context.Background()

	s := session.New(c, c, nil)
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.Type(ctx, "20+5*1"))
	require.NoError(t, s.Press(ctx, session.KeyEnter))
	require.NoError(t, s.Type(ctx, "10*2+5"))
	require.NoError(t, s.Press(ctx, session.KeyEnter))

	snap := s.Snapshot()
	require.Equal(t, models.StatusWon, snap.Status)
	assert.Len(t, snap.History, 2)
	require.NoError(t, snap.PersistErr)
	require.NotNil(t, snap.Receipt)
	require.NotNil(t, snap.Receipt.Mint)
	assert.Equal(t, "0xbeef", snap.Receipt.Mint.TransactionHash)

	p, err := c.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalWins)
	entry := p.MathlerHistory["2025-04-02"]
	assert.Equal(t, []string{"20+5*1", "10*2+5"}, entry.Guesses)

	require.NoError(t, c.ResetProgress(ctx))
	p, err = c.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalWins)
}

func TestMintFirstWin(t *testing.T) {
	f := newFixture(t)
	c, err := New(f.server.URL)
	require.NoError(t, err)

	resp, err := c.MintFirstWin(context.Background(), testWallet, "player-1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "1", resp.TokenID)

	_, err = c.MintFirstWin(context.Background(), "bogus", "player-1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestWatchPrices(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t)
	c, err := New(f.server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	prices := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.WatchPrices(ctx, func(p string) { prices <- p })
	}()

	require.Eventually(t, func() bool { return f.ws.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	f.ws.BroadcastPrice("64000.00")

	select {
	case p := <-prices:
		assert.Equal(t, "64000.00", p)
	case <-time.After(2 * time.Second):
		t.Fatal("no price received")
	}

	cancel()
	require.NoError(t, <-done)

	f.ws.Stop()
	f.server.Close()
}

func TestSessionRecoversFromExpiredPuzzle(t *testing.T) {
	f := newFixture(t)
	c, err := New(f.server.URL)
	require.NoError(t, err)
	ctx := context.Background()

	s := session.New(c, nil, nil)
	require.NoError(t, s.Start(ctx))

	f.clock.Advance(time.Minute)
	require.NoError(t, s.Type(ctx, "10*2+5"))
	require.NoError(t, s.Press(ctx, session.KeyEnter))
	assert.Equal(t, models.StatusErrorFetching, s.Status())

	require.NoError(t, s.Reset(ctx))
	require.NoError(t, s.Type(ctx, "10*2+5"))
	require.NoError(t, s.Press(ctx, session.KeyEnter))
	assert.Equal(t, models.StatusWon, s.Status())
}
