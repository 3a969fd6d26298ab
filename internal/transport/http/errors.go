package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var domainErr domain.Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr {
	case domain.ErrGameNotFound:
		return http.StatusNotFound
	case domain.ErrNotAPlayer:
		return http.StatusForbidden
	case domain.ErrInvalidColumn, domain.ErrColumnFull, domain.ErrUnknownVariant, domain.ErrUnknownMode:
		return http.StatusBadRequest
	case domain.ErrGameOver, domain.ErrMoveInProgress, domain.ErrNotYourTurn:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"error": message})
}
