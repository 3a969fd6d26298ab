package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nyambogahezron/connectThree/internal/domain"
	"github.com/nyambogahezron/connectThree/internal/service/game"
	"github.com/nyambogahezron/connectThree/internal/transport/http/middleware"
)

type GameHandler struct {
	Service *game.Service
}

func NewGameHandler(service *game.Service) *GameHandler {
	return &GameHandler{Service: service}
}

type createGameRequest struct {
	Variant    string `json:"variant"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
}

type moveRequest struct {
	Column *int `json:"column" binding:"required"`
}

// CreateGame starts a game for the caller, replacing any game they had
func (h *GameHandler) CreateGame(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	variant, err := domain.ParseVariant(req.Variant)
	if err != nil {
		respondError(c, err)
		return
	}
	mode, err := domain.ParseMode(req.Mode, req.Difficulty)
	if err != nil {
		respondError(c, err)
		return
	}

	session := h.Service.Sessions.CreateSession(playerID, variant, mode)
	c.JSON(http.StatusCreated, session.View())
}

// GetLiveGames lists unfinished games
func (h *GameHandler) GetLiveGames(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Sessions.LiveSessions())
}

// GetGame returns the live game, or the stored record once it has left memory
func (h *GameHandler) GetGame(c *gin.Context) {
	playerID, _ := middleware.PlayerID(c)

	view, record, err := h.Service.GetGame(c.Request.Context(), c.Param("id"), playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if view != nil {
		c.JSON(http.StatusOK, view)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *GameHandler) MakeMove(c *gin.Context) {
	playerID, _ := middleware.PlayerID(c)

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "column is required"})
		return
	}

	session, err := h.Service.Sessions.GetSessionForPlayer(c.Param("id"), playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := session.HandleMove(playerID, *req.Column); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

func (h *GameHandler) ResetGame(c *gin.Context) {
	playerID, _ := middleware.PlayerID(c)

	session, err := h.Service.Sessions.GetSessionForPlayer(c.Param("id"), playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := session.Reset(playerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}
