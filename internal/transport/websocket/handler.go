package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/internal/domain"
	"github.com/nyambogahezron/connectThree/internal/service/game"
	"github.com/nyambogahezron/connectThree/pkg/auth"
	"github.com/nyambogahezron/connectThree/pkg/httputil"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

type TokenValidator interface {
	ValidatePlayerToken(token string) (*auth.PlayerClaims, error)
}

// Handler serves the game socket
type Handler struct {
	ConnManager    *ConnectionManager
	SessionManager *game.SessionManager
	Tokens         TokenValidator
	Upgrader       websocket.Upgrader
	logger         zerolog.Logger
}

// NewHandler builds the socket handler. Origins are checked against
// allowedOrigins; an empty list accepts any origin.
func NewHandler(cm *ConnectionManager, sm *game.SessionManager, tokens TokenValidator, allowedOrigins []string, logger zerolog.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		ConnManager:    cm,
		SessionManager: sm,
		Tokens:         tokens,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// HandleWebSocket upgrades the request. A token in the Authorization header
// or cookie authenticates immediately; otherwise the first message must be
// an init carrying one.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	token, _ := httputil.GetTokenFromRequest(r)
	h.handleConnection(conn, token)
}

func (h *Handler) handleConnection(conn *websocket.Conn, token string) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if token == "" {
		var err error
		token, err = h.readInit(conn)
		if err != nil {
			h.logger.Debug().Err(err).Msg("connection closed before init")
			conn.Close()
			return
		}
	}

	claims, err := h.Tokens.ValidatePlayerToken(token)
	if err != nil {
		h.logger.Info().Err(err).Msg("rejected connection with invalid token")
		_ = conn.WriteJSON(domain.ErrorMessage("Invalid or expired token"))
		conn.Close()
		return
	}
	playerID := claims.PlayerID
	logger := h.logger.With().Str("player_id", playerID).Logger()

	h.ConnManager.AddConnection(playerID, conn)
	logger.Info().Msg("connection initialized")

	defer func() {
		// the session stays in memory for a reconnect; cleanup drops it when idle
		h.ConnManager.RemoveConnectionIfMatching(playerID, conn)
		logger.Info().Msg("connection closed")
	}()

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(playerID, conn, done)

	h.resume(playerID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("player disconnected unexpectedly")
			}
			return
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug().Err(err).Msg("invalid message format")
			h.sendError(playerID, errors.New("invalid message format"))
			continue
		}

		if err := h.processMessage(playerID, msg); err != nil {
			logger.Debug().Err(err).Str("type", msg.Type).Msg("message rejected")
			h.sendError(playerID, err)
		}
	}
}

// readInit waits for the init message and returns its token
func (h *Handler) readInit(conn *websocket.Conn) (string, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	var msg domain.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", errors.Wrap(err, "invalid init message")
	}
	if msg.Type != domain.MsgInit || msg.Token == "" {
		return "", errors.Errorf("expected %s with a token, got %q", domain.MsgInit, msg.Type)
	}
	return msg.Token, nil
}

func (h *Handler) keepAlive(playerID string, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.ConnManager.ping(playerID, conn); err != nil {
				return
			}
		}
	}
}

// resume sends the state of a game the player left running
func (h *Handler) resume(playerID string) {
	session, exists := h.SessionManager.GetSessionByPlayer(playerID)
	if !exists {
		return
	}

	view := session.View()
	_ = h.ConnManager.SendMessage(playerID, domain.ServerMessage{
		Type:     domain.MsgGameState,
		GameID:   view.GameID,
		Mode:     &view.Mode,
		Snapshot: &view.Snapshot,
		Scores:   view.Scores,
	})
}

func (h *Handler) processMessage(playerID string, msg domain.ClientMessage) error {
	switch msg.Type {
	case domain.MsgInit:
		// already authenticated; a repeated init only asks for the state again
		h.resume(playerID)
		return nil

	case domain.MsgNewGame:
		variant, err := domain.ParseVariant(msg.Variant)
		if err != nil {
			return err
		}
		mode, err := domain.ParseMode(msg.Mode, msg.Difficulty)
		if err != nil {
			return err
		}
		h.SessionManager.CreateSession(playerID, variant, mode)
		return nil

	case domain.MsgMakeMove:
		if msg.Column == nil {
			return domain.ErrInvalidColumn
		}
		session, err := h.sessionFor(playerID, msg.GameID)
		if err != nil {
			return err
		}
		return session.HandleMove(playerID, *msg.Column)

	case domain.MsgResetGame:
		session, err := h.sessionFor(playerID, msg.GameID)
		if err != nil {
			return err
		}
		return session.Reset(playerID)

	case domain.MsgSetVariant:
		variant, err := domain.ParseVariant(msg.Variant)
		if err != nil {
			return err
		}
		session, err := h.sessionFor(playerID, msg.GameID)
		if err != nil {
			return err
		}
		return session.SetVariant(playerID, variant)

	case domain.MsgSetMode:
		mode, err := domain.ParseMode(msg.Mode, msg.Difficulty)
		if err != nil {
			return err
		}
		session, err := h.sessionFor(playerID, msg.GameID)
		if err != nil {
			return err
		}
		return session.SetMode(playerID, mode)
	}

	return errors.Errorf("unknown message type %q", msg.Type)
}

// sessionFor resolves gameID when the client names one and the player's
// current game otherwise
func (h *Handler) sessionFor(playerID, gameID string) (*game.GameSession, error) {
	if gameID != "" {
		return h.SessionManager.GetSessionForPlayer(gameID, playerID)
	}
	session, exists := h.SessionManager.GetSessionByPlayer(playerID)
	if !exists {
		return nil, domain.ErrGameNotFound
	}
	return session, nil
}

func (h *Handler) sendError(playerID string, err error) {
	if sendErr := h.ConnManager.SendMessage(playerID, domain.ErrorMessage(err.Error())); sendErr != nil {
		h.logger.Debug().Err(sendErr).Str("player_id", playerID).Msg("failed to send error")
	}
}
