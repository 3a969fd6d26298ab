package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyambogahezron/connectThree/internal/domain"
	"github.com/nyambogahezron/connectThree/internal/service/game"
	"github.com/nyambogahezron/connectThree/pkg/auth"
)

type wsHarness struct {
	t        *testing.T
	server   *httptest.Server
	tokens   *auth.TokenIssuer
	conns    *ConnectionManager
	sessions *game.SessionManager
}

func newWSHarness(t *testing.T) *wsHarness {
	t.Helper()
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	conns := NewConnectionManager(zerolog.Nop())
	sessions := game.NewSessionManager(game.Options{
		Notifier: conns,
		Timing:   game.DefaultTiming(),
		Logger:   zerolog.Nop(),
	})
	handler := NewHandler(conns, sessions, tokens, nil, zerolog.Nop())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	return &wsHarness{t: t, server: server, tokens: tokens, conns: conns, sessions: sessions}
}

func (h *wsHarness) token(playerID string) string {
	h.t.Helper()
	token, err := h.tokens.GeneratePlayerToken(playerID)
	require.NoError(h.t, err)
	return token
}

func (h *wsHarness) dial(header http.Header) *websocket.Conn {
	h.t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { conn.Close() })
	return conn
}

// connect dials and authenticates with an init message
func (h *wsHarness) connect(playerID string) *websocket.Conn {
	h.t.Helper()
	conn := h.dial(nil)
	send(h.t, conn, domain.ClientMessage{Type: domain.MsgInit, Token: h.token(playerID)})
	require.Eventually(h.t, func() bool { return h.conns.IsConnected(playerID) }, time.Second, 5*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg domain.ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// expect reads until a message of type msgType arrives
func expect(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == msgType {
			return msg
		}
	}
}

func intPtr(v int) *int { return &v }

func TestInitThenNewGame(t *testing.T) {
	h := newWSHarness(t)
	conn := h.connect("p1")

	send(t, conn, domain.ClientMessage{Type: domain.MsgNewGame, Variant: "classic"})
	start := expect(t, conn, domain.MsgGameStart)

	session, ok := h.sessions.GetSessionByPlayer("p1")
	require.True(t, ok)
	assert.Equal(t, session.GameID, start["gameId"])
	snapshot := start["snapshot"].(map[string]any)
	assert.Equal(t, "classic", snapshot["variant"])
}

func TestMoveIsBroadcastToPlayer(t *testing.T) {
	h := newWSHarness(t)
	conn := h.connect("p1")

	send(t, conn, domain.ClientMessage{Type: domain.MsgNewGame})
	expect(t, conn, domain.MsgGameStart)

	send(t, conn, domain.ClientMessage{Type: domain.MsgMakeMove, Column: intPtr(1)})
	moved := expect(t, conn, domain.MsgMoveMade)
	assert.Equal(t, "red", moved["player"])
	assert.EqualValues(t, 1, moved["column"])
	assert.EqualValues(t, domain.Rows-1, moved["row"])

	state := expect(t, conn, domain.MsgGameState)
	snapshot := state["snapshot"].(map[string]any)
	assert.Equal(t, "yellow", snapshot["currentPlayer"])
}

func TestHeaderTokenAuthenticates(t *testing.T) {
	h := newWSHarness(t)
	header := http.Header{"Authorization": {"Bearer " + h.token("p2")}}
	conn := h.dial(header)

	send(t, conn, domain.ClientMessage{Type: domain.MsgMakeMove, Column: intPtr(0)})
	msg := expect(t, conn, domain.MsgError)
	assert.Equal(t, domain.ErrGameNotFound.Error(), msg["message"])
}

func TestRejectedMessages(t *testing.T) {
	h := newWSHarness(t)
	conn := h.connect("p1")
	send(t, conn, domain.ClientMessage{Type: domain.MsgNewGame})
	expect(t, conn, domain.MsgGameStart)

	tests := []struct {
		name string
		msg  domain.ClientMessage
		want string
	}{
		{"missing column", domain.ClientMessage{Type: domain.MsgMakeMove}, domain.ErrInvalidColumn.Error()},
		{"column out of range", domain.ClientMessage{Type: domain.MsgMakeMove, Column: intPtr(7)}, domain.ErrInvalidColumn.Error()},
		{"unknown variant", domain.ClientMessage{Type: domain.MsgSetVariant, Variant: "gomoku"}, domain.ErrUnknownVariant.Error()},
		{"unknown mode", domain.ClientMessage{Type: domain.MsgSetMode, Mode: "online"}, domain.ErrUnknownMode.Error()},
		{"foreign game", domain.ClientMessage{Type: domain.MsgResetGame, GameID: "other"}, domain.ErrGameNotFound.Error()},
		{"unknown type", domain.ClientMessage{Type: "find_match"}, `unknown message type "find_match"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msg)
			msg := expect(t, conn, domain.MsgError)
			assert.Equal(t, tt.want, msg["message"])
		})
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := expect(t, conn, domain.MsgError)
	assert.Equal(t, "invalid message format", msg["message"])
}

func TestInvalidTokenClosesConnection(t *testing.T) {
	h := newWSHarness(t)
	conn := h.dial(nil)

	send(t, conn, domain.ClientMessage{Type: domain.MsgInit, Token: "garbage"})
	expect(t, conn, domain.MsgError)

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, h.conns.Count())
}

func TestMissingInitClosesConnection(t *testing.T) {
	h := newWSHarness(t)
	conn := h.dial(nil)

	send(t, conn, domain.ClientMessage{Type: domain.MsgNewGame})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestReconnectResumesGame(t *testing.T) {
	h := newWSHarness(t)
	first := h.connect("p1")
	send(t, first, domain.ClientMessage{Type: domain.MsgNewGame, Mode: "pvp"})
	expect(t, first, domain.MsgGameStart)
	send(t, first, domain.ClientMessage{Type: domain.MsgMakeMove, Column: intPtr(2)})
	expect(t, first, domain.MsgGameState)

	second := h.dial(http.Header{"Authorization": {"Bearer " + h.token("p1")}})
	state := expect(t, second, domain.MsgGameState)
	snapshot := state["snapshot"].(map[string]any)
	assert.EqualValues(t, 1, snapshot["moveCount"])

	// the older socket was replaced
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, h.conns.Count())
}

func TestSendMessageWithoutConnection(t *testing.T) {
	conns := NewConnectionManager(zerolog.Nop())
	assert.NoError(t, conns.SendMessage("nobody", domain.ErrorMessage("x")))
	assert.False(t, conns.IsConnected("nobody"))
}
