package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

const writeWait = 10 * time.Second

// ConnectionManager tracks one socket per player
type ConnectionManager struct {
	connections map[string]*websocket.Conn

	// conn.WriteJSON is not safe for concurrent use; one lock per player
	writeMu map[string]*sync.Mutex

	mu     sync.RWMutex
	logger zerolog.Logger
}

func NewConnectionManager(logger zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		writeMu:     make(map[string]*sync.Mutex),
		logger:      logger.With().Str("component", "ws").Logger(),
	}
}

// AddConnection registers conn for playerID. A socket the player already
// had open is closed.
func (cm *ConnectionManager) AddConnection(playerID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, exists := cm.connections[playerID]; exists && old != conn {
		cm.logger.Debug().Str("player_id", playerID).Msg("replacing existing connection")
		old.Close()
	}
	cm.connections[playerID] = conn
	cm.writeMu[playerID] = &sync.Mutex{}
}

// RemoveConnectionIfMatching only drops the entry while it still points at
// conn, so a stale reader cannot close the player's newer socket.
func (cm *ConnectionManager) RemoveConnectionIfMatching(playerID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if current, exists := cm.connections[playerID]; exists && current == conn {
		current.Close()
		delete(cm.connections, playerID)
		delete(cm.writeMu, playerID)
	}
}

func (cm *ConnectionManager) IsConnected(playerID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.connections[playerID]
	return exists
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// SendMessage writes message to the player's socket. Players without a
// socket are skipped silently; they pick the state up again on reconnect.
func (cm *ConnectionManager) SendMessage(playerID string, message domain.ServerMessage) error {
	cm.mu.RLock()
	conn, exists := cm.connections[playerID]
	mu, muExists := cm.writeMu[playerID]
	cm.mu.RUnlock()

	if !exists || !muExists {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(message)
}

// ping sends a keep-alive frame under the player's write lock
func (cm *ConnectionManager) ping(playerID string, conn *websocket.Conn) error {
	cm.mu.RLock()
	mu, exists := cm.writeMu[playerID]
	current := cm.connections[playerID]
	cm.mu.RUnlock()

	if !exists || current != conn {
		return websocket.ErrCloseSent
	}

	mu.Lock()
	defer mu.Unlock()
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
