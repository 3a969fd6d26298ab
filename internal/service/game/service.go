package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/internal/domain"
	"github.com/nyambogahezron/connectThree/internal/service/scoring"
	"github.com/nyambogahezron/connectThree/pkg/uid"
)

// Notifier delivers server messages to a connected player
type Notifier interface {
	SendMessage(playerID string, message domain.ServerMessage) error
}

type GameRepository interface {
	SaveGame(ctx context.Context, record domain.GameRecord) error
}

// SnapshotStore keeps the latest state of live games where other processes can read it
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, gameID string, snap domain.Snapshot) error
	DeleteSnapshot(ctx context.Context, gameID string) error
}

// MoveRequester picks the AI's column. bot.Bot implements it.
type MoveRequester interface {
	Player() domain.Player
	RequestMove(ctx context.Context, board domain.Board, difficulty domain.Difficulty) (domain.AIMove, error)
}

// Timing paces how a resolved move is shown to the player
type Timing struct {
	// before the first match of a move is shown
	DropDelay time.Duration
	// between two cascade rounds
	RoundDelay time.Duration
}

func DefaultTiming() Timing {
	return Timing{DropDelay: 300 * time.Millisecond, RoundDelay: 600 * time.Millisecond}
}

const (
	finishedSessionTTL = 1 * time.Hour
	idleSessionTTL     = 24 * time.Hour
	storeTimeout       = 5 * time.Second
)

type Options struct {
	Repo     GameRepository
	Cache    SnapshotStore
	Notifier Notifier
	Bot      MoveRequester
	Timing   Timing
	Logger   zerolog.Logger
}

// SessionManager manages active game sessions
type SessionManager struct {
	sessions     map[string]*GameSession // gameID → GameSession
	playerToGame map[string]string       // playerID → gameID (for quick lookup)
	mu           sync.RWMutex

	repo     GameRepository
	cache    SnapshotStore
	notifier Notifier
	bot      MoveRequester
	timing   Timing
	logger   zerolog.Logger

	// schedules delayed work; replaced in tests
	after func(d time.Duration, f func())
	// pending async saves
	saves sync.WaitGroup
}

func NewSessionManager(opts Options) *SessionManager {
	return &SessionManager{
		sessions:     make(map[string]*GameSession),
		playerToGame: make(map[string]string),
		repo:         opts.Repo,
		cache:        opts.Cache,
		notifier:     opts.Notifier,
		bot:          opts.Bot,
		timing:       opts.Timing,
		logger:       opts.Logger.With().Str("component", "session").Logger(),
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// CreateSession starts a new game for playerID. A game the player already
// had is closed first.
func (sm *SessionManager) CreateSession(playerID string, variant domain.Variant, mode domain.GameMode) *GameSession {
	session := newGameSession(sm, playerID, variant, mode)

	sm.mu.Lock()
	var previous *GameSession
	if gameID, ok := sm.playerToGame[playerID]; ok {
		previous = sm.sessions[gameID]
		delete(sm.sessions, gameID)
	}
	sm.sessions[session.GameID] = session
	sm.playerToGame[playerID] = session.GameID
	sm.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	sm.logger.Info().
		Str("game_id", session.GameID).
		Str("player_id", playerID).
		Str("variant", string(variant)).
		Str("mode", string(mode.Type)).
		Str("difficulty", string(mode.Difficulty)).
		Msg("session created")

	session.start()
	return session
}

func (sm *SessionManager) GetSession(gameID string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[gameID]
	return session, exists
}

func (sm *SessionManager) GetSessionByPlayer(playerID string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	gameID, exists := sm.playerToGame[playerID]
	if !exists {
		return nil, false
	}
	session, exists := sm.sessions[gameID]
	return session, exists
}

// GetSessionForPlayer looks a game up and checks that playerID owns it
func (sm *SessionManager) GetSessionForPlayer(gameID, playerID string) (*GameSession, error) {
	session, exists := sm.GetSession(gameID)
	if !exists {
		return nil, domain.ErrGameNotFound
	}
	if session.PlayerID != playerID {
		return nil, domain.ErrNotAPlayer
	}
	return session, nil
}

func (sm *SessionManager) RemoveSession(gameID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[gameID]
	if !exists {
		sm.mu.Unlock()
		return domain.ErrGameNotFound
	}
	sm.removeSessionLocked(session)
	sm.mu.Unlock()

	session.Close()
	return nil
}

// removeSessionLocked removes session from maps without acquiring lock (caller must hold it)
func (sm *SessionManager) removeSessionLocked(session *GameSession) {
	sm.logger.Debug().Str("game_id", session.GameID).Msg("removing session")

	delete(sm.sessions, session.GameID)
	if sm.playerToGame[session.PlayerID] == session.GameID {
		delete(sm.playerToGame, session.PlayerID)
	}
}

// LiveSessions lists unfinished games, newest first
func (sm *SessionManager) LiveSessions() []Summary {
	sm.mu.RLock()
	sessions := make([]*GameSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	live := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		summary := s.Summary()
		if summary.State == domain.StatePlaying {
			live = append(live, summary)
		}
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	return live
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupOldSessions drops finished games after an hour and games nobody
// has touched for a day. It returns how many sessions were removed.
func (sm *SessionManager) CleanupOldSessions() int {
	now := time.Now()

	sm.mu.Lock()
	var stale []*GameSession
	for _, session := range sm.sessions {
		if session.isStale(now) {
			sm.removeSessionLocked(session)
			stale = append(stale, session)
		}
	}
	sm.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}

	if len(stale) > 0 {
		sm.logger.Info().Int("removed", len(stale)).Msg("memory cleanup: removed stale game sessions")
	}
	return len(stale)
}

// Shutdown closes every session, storing unfinished games as abandoned,
// and waits for pending saves until ctx expires
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sessions := make([]*GameSession, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sm.removeSessionLocked(session)
		sessions = append(sessions, session)
	}
	sm.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	done := make(chan struct{})
	go func() {
		sm.saves.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summary is the public view of a session used in listings
type Summary struct {
	GameID        string           `json:"gameId"`
	PlayerID      string           `json:"playerId"`
	Mode          domain.GameMode  `json:"mode"`
	Variant       domain.Variant   `json:"variant"`
	State         domain.GameState `json:"gameState"`
	CurrentPlayer domain.Player    `json:"currentPlayer"`
	MoveCount     int              `json:"moveCount"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// View is a session's full state as served to its player
type View struct {
	GameID   string                `json:"gameId"`
	Mode     domain.GameMode       `json:"mode"`
	Snapshot domain.Snapshot       `json:"snapshot"`
	Scores   []scoring.PlayerScore `json:"scores"`
}

func newGameSession(sm *SessionManager, playerID string, variant domain.Variant, mode domain.GameMode) *GameSession {
	gameID := uid.GenerateGameID()
	logger := sm.logger.With().Str("game_id", gameID).Logger()
	tracker := scoring.NewTracker(variant)
	now := time.Now()

	return &GameSession{
		GameID:       gameID,
		PlayerID:     playerID,
		CreatedAt:    now,
		LastActivity: now,
		recordID:     gameID,
		mode:         mode,
		engine:       domain.NewEngine(variant, domain.WithListener(tracker), domain.WithLogger(logger)),
		tracker:      tracker,
		manager:      sm,
		logger:       logger,
	}
}
