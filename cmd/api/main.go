package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mathler-backend/internal/clock"
	"mathler-backend/internal/config"
	"mathler-backend/internal/handlers"
	"mathler-backend/internal/logging"
	"mathler-backend/internal/middleware"
	"mathler-backend/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, os.Getenv("DEBUG") != "")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	realClock := clock.Real()

	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		var err error
		redisService, err = services.NewRedisService(ctx, cfg)
		if err != nil {
			return err
		}
		defer redisService.Close()
		logger.Info("connected to redis", zap.String("addr", cfg.RedisURL))
	}

	var puzzleStore services.PuzzleStore = services.NewMemoryPuzzleStore(realClock)
	if redisService != nil {
		puzzleStore = redisService
	}

	progressStore, closeProgress, err := openProgressStore(ctx, cfg, redisService)
	if err != nil {
		return err
	}
	defer closeProgress()

	entries := services.DefaultPoolEntries
	if cfg.PuzzlePoolFile != "" {
		entries, err = services.LoadPoolEntries(cfg.PuzzlePoolFile)
		if err != nil {
			return err
		}
	}
	policy, err := services.ParseSelectionPolicy(cfg.PuzzleSelection)
	if err != nil {
		return err
	}
	pool, err := services.NewPuzzlePool(entries, cfg.SolutionLength, policy)
	if err != nil {
		return err
	}
	logger.Info("puzzle pool loaded",
		zap.Int("puzzles", pool.Len()),
		zap.Int("solution_length", pool.SolutionLength()),
		zap.String("selection", cfg.PuzzleSelection))

	registry := services.NewPuzzleRegistry(puzzleStore, pool, realClock, cfg.PuzzleTTL, logger)

	var minter services.Minter = services.DisabledMinter{}
	if cfg.MintRelayURL != "" {
		minter = services.NewRelayMinter(cfg.MintRelayURL, cfg.MintRelayToken, cfg.MintTimeout, logger)
	} else {
		logger.Warn("MINT_RELAY_URL not set, NFT minting disabled")
	}
	recorder := services.NewOutcomeRecorder(progressStore, minter, realClock, logger)

	var jwtService *services.JWTService
	if cfg.JWTSecret != "" {
		jwtService = services.NewJWTService(cfg)
	} else {
		logger.Warn("JWT_SECRET not set, progress endpoints disabled")
	}

	var snapshots services.PriceSnapshotStore = services.NewMemoryPriceSnapshot()
	var limiter middleware.RateLimiter
	if redisService != nil {
		snapshots = redisService
		limiter = redisService
	}

	wsHandler := handlers.NewWebSocketHandler(snapshots, logger)
	defer wsHandler.Stop()
	priceFeed := services.NewPriceFeed(cfg.PriceFeedURL, wsHandler, snapshots, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		ClientOrigin:    cfg.ClientOrigin,
		SubmitRateLimit: cfg.SubmitRateLimit,
		JWT:             jwtService,
		RateLimiter:     limiter,
		Puzzles:         handlers.NewPuzzleHandler(registry, logger),
		Features:        handlers.NewFeatureHandler(minter, logger),
		Users:           handlers.NewUserHandler(recorder, logger),
		WebSocket:       wsHandler,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return priceFeed.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		wsHandler.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openProgressStore(ctx context.Context, cfg *config.Config, redisService *services.RedisService) (services.ProgressStore, func(), error) {
	switch cfg.ProgressBackend {
	case config.ProgressBackendRedis:
		if redisService == nil {
			return nil, nil, fmt.Errorf("redis progress backend requires REDIS_URL")
		}
		return redisService, func() {}, nil

	case config.ProgressBackendSQLite:
		store, err := services.OpenSQLiteProgressStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		return services.NewMemoryProgressStore(), func() {}, nil
	}
}
