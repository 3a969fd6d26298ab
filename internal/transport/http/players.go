package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/pkg/httputil"
	"github.com/nyambogahezron/connectThree/pkg/uid"
)

type TokenGenerator interface {
	GeneratePlayerToken(playerID string) (string, error)
	TTL() time.Duration
}

type PlayerHandler struct {
	Tokens        TokenGenerator
	SecureCookies bool
	logger        zerolog.Logger
}

func NewPlayerHandler(tokens TokenGenerator, secureCookies bool, logger zerolog.Logger) *PlayerHandler {
	return &PlayerHandler{
		Tokens:        tokens,
		SecureCookies: secureCookies,
		logger:        logger.With().Str("component", "players").Logger(),
	}
}

// CreateGuest issues a token for a fresh player ID
func (h *PlayerHandler) CreateGuest(c *gin.Context) {
	playerID := uid.GeneratePlayerID()

	token, err := h.Tokens.GeneratePlayerToken(playerID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate player token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	httputil.SetPlayerCookie(c.Writer, token, h.Tokens.TTL(), h.SecureCookies)
	h.logger.Info().Str("player_id", playerID).Msg("guest player created")

	c.JSON(http.StatusCreated, gin.H{
		"playerId":  playerID,
		"token":     token,
		"expiresAt": time.Now().Add(h.Tokens.TTL()),
	})
}
