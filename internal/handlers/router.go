package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mathler-backend/internal/middleware"
	"mathler-backend/internal/services"
)

type RouterConfig struct {
	ClientOrigin    string
	SubmitRateLimit int

	JWT         *services.JWTService
	RateLimiter middleware.RateLimiter

	Puzzles   *PuzzleHandler
	Features  *FeatureHandler
	Users     *UserHandler
	WebSocket *WebSocketHandler

	Logger *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.ClientOrigin))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.WebSocket != nil {
		router.GET("/ws", cfg.WebSocket.HandleWebSocket)
	}

	api := router.Group("/api")
	{
		puzzle := api.Group("/puzzle")
		{
			puzzle.GET("/new", cfg.Puzzles.NewPuzzle)
			puzzle.POST("/submit-guess",
				middleware.RateLimitMiddleware(cfg.RateLimiter, "submit", cfg.SubmitRateLimit, time.Minute, cfg.Logger),
				cfg.Puzzles.SubmitGuess)
		}

		api.POST("/feature/mint-first-win-nft", cfg.Features.MintFirstWinNFT)

		if cfg.JWT != nil && cfg.Users != nil {
			progress := api.Group("/progress")
			progress.Use(middleware.AuthMiddleware(cfg.JWT))
			{
				progress.GET("", cfg.Users.GetProgress)
				progress.POST("/outcome", cfg.Users.RecordOutcome)
				progress.DELETE("", cfg.Users.ResetProgress)
			}
		}
	}

	return router
}
