package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/nyambogahezron/connectThree/internal/config"
	"github.com/nyambogahezron/connectThree/internal/logger"
	"github.com/nyambogahezron/connectThree/internal/repository/postgres"
	"github.com/nyambogahezron/connectThree/internal/repository/redis"
	"github.com/nyambogahezron/connectThree/internal/service/bot"
	"github.com/nyambogahezron/connectThree/internal/service/cleanup"
	"github.com/nyambogahezron/connectThree/internal/service/game"
	transportHttp "github.com/nyambogahezron/connectThree/internal/transport/http"
	"github.com/nyambogahezron/connectThree/internal/transport/websocket"
	"github.com/nyambogahezron/connectThree/pkg/auth"
)

const startupTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	cfg := config.LoadConfig()

	log := logger.New(cfg.LogLevel, config.GetEnv("LOG_FORMAT", "json") == "console")
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence is optional; without a database games are played in memory only
	var (
		repo    game.GameRepository
		history game.HistoryRepository
		cleaner cleanup.GameCleaner
	)
	if cfg.DatabaseURL != "" {
		startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		db, err := postgres.Connect(startCtx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeMin) * time.Minute,
		})
		if err != nil {
			cancel()
			log.Fatal().Err(err).Msg("database unreachable")
		}
		defer db.Close()

		log.Info().Msg("running database migrations")
		if err := postgres.RunMigrations(startCtx, db); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("migration failed")
		}
		cancel()

		gameRepo := postgres.NewGameRepo(db)
		repo, history, cleaner = gameRepo, gameRepo, gameRepo
	} else {
		log.Warn().Msg("DATABASE_URL not set, finished games will not be stored")
	}

	var cache game.SnapshotStore
	redisCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	redisClient, err := redis.Connect(redisCtx, cfg.RedisURL, cfg.RedisPassword)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, live snapshots will not be cached")
	} else {
		defer redisClient.Close()
		cache = redis.NewSnapshotCache(redisClient, cfg.SnapshotTTL)
	}

	connManager := websocket.NewConnectionManager(log)
	aiPlayer := bot.New(bot.ThinkingTimes{
		Easy:   cfg.AIThinkEasy,
		Medium: cfg.AIThinkMedium,
		Hard:   cfg.AIThinkHard,
	}, log)

	sessionManager := game.NewSessionManager(game.Options{
		Repo:     repo,
		Cache:    cache,
		Notifier: connManager,
		Bot:      aiPlayer,
		Timing:   game.Timing{DropDelay: cfg.DropDelay, RoundDelay: cfg.RoundDelay},
		Logger:   log,
	})
	gameService := game.NewService(sessionManager, history)

	cleanup.NewWorker(sessionManager, cleaner, log).Start(ctx)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.PlayerTokenTTL)
	wsHandler := websocket.NewHandler(connManager, sessionManager, tokens, cfg.AllowedOrigins, log)

	router := transportHttp.NewRouter(transportHttp.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Tokens:         tokens,
		Players:        transportHttp.NewPlayerHandler(tokens, strings.HasPrefix(cfg.FrontendURL, "https://"), log),
		Games:          transportHttp.NewGameHandler(gameService),
		History:        transportHttp.NewHistoryHandler(gameService),
		WebSocket:      gin.WrapF(wsHandler.HandleWebSocket),
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server is shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := sessionManager.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("pending games were not stored")
	}
	log.Info().Msg("server exited gracefully")
}
