package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/internal/transport/http/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string
	Tokens         middleware.TokenValidator
	Players        *PlayerHandler
	Games          *GameHandler
	History        *HistoryHandler
	// mounted at /ws when set; it authenticates on its own
	WebSocket gin.HandlerFunc
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins, cfg.Logger))

	router.POST("/api/players/guest", cfg.Players.CreateGuest)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.Tokens))
	{
		protected.POST("/games", cfg.Games.CreateGame)
		protected.GET("/games/live", cfg.Games.GetLiveGames)
		protected.GET("/games/:id", cfg.Games.GetGame)
		protected.POST("/games/:id/moves", cfg.Games.MakeMove)
		protected.POST("/games/:id/reset", cfg.Games.ResetGame)

		protected.GET("/history", cfg.History.GetHistory)
	}

	if cfg.WebSocket != nil {
		router.GET("/ws", cfg.WebSocket)
	}
	return router
}
