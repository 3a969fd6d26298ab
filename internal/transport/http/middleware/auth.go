package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nyambogahezron/connectThree/pkg/auth"
	"github.com/nyambogahezron/connectThree/pkg/httputil"
)

const playerIDKey = "player_id"

type TokenValidator interface {
	ValidatePlayerToken(token string) (*auth.PlayerClaims, error)
}

// AuthMiddleware validates the player token from the header or cookie and
// stores the player ID on the context
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := httputil.GetTokenFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := tokens.ValidatePlayerToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(playerIDKey, claims.PlayerID)
		c.Next()
	}
}

// PlayerID returns the player set by AuthMiddleware
func PlayerID(c *gin.Context) (string, bool) {
	id := c.GetString(playerIDKey)
	return id, id != ""
}
