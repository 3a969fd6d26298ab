package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nyambogahezron/connectThree/internal/service/game"
	"github.com/nyambogahezron/connectThree/internal/transport/http/middleware"
)

type HistoryHandler struct {
	Service *game.Service
}

func NewHistoryHandler(service *game.Service) *HistoryHandler {
	return &HistoryHandler{Service: service}
}

// GetHistory lists the caller's stored games. ?limit= caps the count.
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	playerID, _ := middleware.PlayerID(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = parsed
	}

	records, err := h.Service.PlayerHistory(c.Request.Context(), playerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
