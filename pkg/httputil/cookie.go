package httputil

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const PlayerCookieName = "player_token"

var ErrNoToken = errors.New("no player token found in header or cookie")

// SetPlayerCookie stores the player token for browser clients. secure is
// set when serving over HTTPS.
func SetPlayerCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	cookie := &http.Cookie{
		Name:     PlayerCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
	}

	// SameSite=None requires Secure=true, so use Lax for development
	if secure {
		cookie.SameSite = http.SameSiteNoneMode
	} else {
		cookie.SameSite = http.SameSiteLaxMode
	}

	http.SetCookie(w, cookie)
}

// GetTokenFromRequest reads a bearer token, falling back to the cookie
func GetTokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, nil
		}
	}

	cookie, err := r.Cookie(PlayerCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", ErrNoToken
}
