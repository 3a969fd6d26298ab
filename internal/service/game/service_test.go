package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyambogahezron/connectThree/internal/domain"
	"github.com/nyambogahezron/connectThree/internal/service/scoring"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []domain.ServerMessage
}

func (n *fakeNotifier) SendMessage(playerID string, msg domain.ServerMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

func (n *fakeNotifier) last(msgType string) (domain.ServerMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.messages) - 1; i >= 0; i-- {
		if n.messages[i].Type == msgType {
			return n.messages[i], true
		}
	}
	return domain.ServerMessage{}, false
}

func (n *fakeNotifier) count(msgType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m.Type == msgType {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
}

type fakeRepo struct {
	mu      sync.Mutex
	records []domain.GameRecord
}

func (r *fakeRepo) SaveGame(ctx context.Context, record domain.GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRepo) saved(status domain.SessionStatus) []domain.GameRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GameRecord
	for _, record := range r.records {
		if record.Status == status {
			out = append(out, record)
		}
	}
	return out
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fakeCache struct {
	mu        sync.Mutex
	snapshots map[string]domain.Snapshot
	deleted   []string
}

func (c *fakeCache) SaveSnapshot(ctx context.Context, gameID string, snap domain.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[gameID] = snap
	return nil
}

func (c *fakeCache) DeleteSnapshot(ctx context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, gameID)
	c.deleted = append(c.deleted, gameID)
	return nil
}

func (c *fakeCache) get(gameID string) (domain.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[gameID]
	return snap, ok
}

// fakeBot answers only when a column is pushed to release
type fakeBot struct {
	release   chan int
	mu        sync.Mutex
	cancelled int
}

func newFakeBot() *fakeBot {
	return &fakeBot{release: make(chan int, 4)}
}

func (b *fakeBot) Player() domain.Player { return domain.Red }

func (b *fakeBot) RequestMove(ctx context.Context, board domain.Board, difficulty domain.Difficulty) (domain.AIMove, error) {
	select {
	case <-ctx.Done():
		b.mu.Lock()
		b.cancelled++
		b.mu.Unlock()
		return domain.AIMove{}, ctx.Err()
	case col := <-b.release:
		return domain.AIMove{Column: col, MoveType: domain.MoveStrategic, Confidence: 50}, nil
	}
}

func (b *fakeBot) cancelCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

// manualScheduler queues delayed work until the test runs it
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *manualScheduler) after(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
}

func (s *manualScheduler) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *manualScheduler) runAll() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		f := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		f()
	}
}

type harness struct {
	sm        *SessionManager
	notifier  *fakeNotifier
	repo      *fakeRepo
	cache     *fakeCache
	scheduler *manualScheduler
}

func newHarness(t *testing.T, bot MoveRequester) *harness {
	t.Helper()
	h := &harness{
		notifier:  &fakeNotifier{},
		repo:      &fakeRepo{},
		cache:     &fakeCache{snapshots: map[string]domain.Snapshot{}},
		scheduler: &manualScheduler{},
	}
	h.sm = NewSessionManager(Options{
		Repo:     h.repo,
		Cache:    h.cache,
		Notifier: h.notifier,
		Bot:      bot,
		Timing:   DefaultTiming(),
		Logger:   zerolog.Nop(),
	})
	h.sm.after = h.scheduler.after
	return h
}

func play(t *testing.T, h *harness, gs *GameSession, columns ...int) {
	t.Helper()
	for _, col := range columns {
		require.NoError(t, gs.HandleMove(gs.PlayerID, col), "column %d", col)
		h.scheduler.runAll()
	}
}

func TestCreateSessionAnnouncesGame(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())

	msg, ok := h.notifier.last(domain.MsgGameStart)
	require.True(t, ok)
	assert.Equal(t, gs.GameID, msg.GameID)
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, domain.Red, msg.Snapshot.CurrentPlayer)

	_, cached := h.cache.get(gs.GameID)
	assert.True(t, cached)

	found, ok := h.sm.GetSessionByPlayer("guest_1")
	require.True(t, ok)
	assert.Same(t, gs, found)
	assert.Equal(t, 1, h.sm.Count())
}

func TestCreateSessionReplacesPlayersGame(t *testing.T) {
	h := newHarness(t, nil)
	first := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	play(t, h, first, 0)

	second := h.sm.CreateSession("guest_1", domain.VariantClassic, domain.PvPMode())

	assert.Equal(t, 1, h.sm.Count())
	_, ok := h.sm.GetSession(first.GameID)
	assert.False(t, ok)
	assert.ErrorIs(t, first.HandleMove("guest_1", 1), domain.ErrGameNotFound)

	found, ok := h.sm.GetSessionByPlayer("guest_1")
	require.True(t, ok)
	assert.Equal(t, second.GameID, found.GameID)

	require.Eventually(t, func() bool { return len(h.repo.saved(domain.SessionAbandoned)) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(h.repo.saved(domain.SessionActive)) == 1 }, time.Second, 5*time.Millisecond)
}

func TestGetSessionForPlayer(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())

	_, err := h.sm.GetSessionForPlayer("missing", "guest_1")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	_, err = h.sm.GetSessionForPlayer(gs.GameID, "guest_2")
	assert.ErrorIs(t, err, domain.ErrNotAPlayer)

	found, err := h.sm.GetSessionForPlayer(gs.GameID, "guest_1")
	require.NoError(t, err)
	assert.Same(t, gs, found)
}

func TestHandleMoveRejectsOtherPlayers(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())

	assert.ErrorIs(t, gs.HandleMove("guest_2", 0), domain.ErrNotAPlayer)
	assert.ErrorIs(t, gs.HandleMove("guest_1", 7), domain.ErrInvalidColumn)
	assert.Equal(t, 0, gs.Snapshot().MoveCount)
}

func TestConnect3WinIsPresentedThenStored(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())

	play(t, h, gs, 2, 3, 2, 3)
	h.notifier.clear()

	require.NoError(t, gs.HandleMove("guest_1", 2))
	assert.Equal(t, []string{domain.MsgMoveMade}, h.notifier.types())
	assert.Equal(t, 1, h.scheduler.size())

	// the winning match is still being shown
	assert.ErrorIs(t, gs.HandleMove("guest_1", 0), domain.ErrMoveInProgress)

	h.scheduler.runAll()
	assert.Equal(t, []string{domain.MsgMoveMade, domain.MsgMatchFound, domain.MsgGameOver}, h.notifier.types())

	over, _ := h.notifier.last(domain.MsgGameOver)
	assert.Equal(t, domain.Red, over.Winner)
	assert.Equal(t, domain.ReasonThreeInARow, over.Reason)

	assert.ErrorIs(t, gs.HandleMove("guest_1", 0), domain.ErrGameOver)

	require.Eventually(t, func() bool { return len(h.repo.saved(domain.SessionCompleted)) == 1 }, time.Second, 5*time.Millisecond)
	record := h.repo.saved(domain.SessionCompleted)[0]
	assert.Equal(t, domain.Red, record.Winner)
	assert.Equal(t, domain.WinRegular, record.WinType)
	assert.Equal(t, 5, record.TotalMoves)
	assert.Equal(t, "guest_1", record.PlayerID)
	require.Len(t, record.Scores, 2)
	assert.Equal(t, 4150, record.Scores[0].Score)
	assert.ElementsMatch(t, []string{"first_match", "perfect_game"}, record.Scores[0].Achievements)
	assert.Equal(t, 0, record.Scores[1].Score)
	assert.NotEmpty(t, record.Events)

	cached, ok := h.cache.get(gs.GameID)
	require.True(t, ok)
	assert.Equal(t, domain.StateWon, cached.State)
}

func TestClassicRoundsHoldTheEngine(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantClassic, domain.PvPMode())

	play(t, h, gs, 0, 0, 1, 1)
	h.notifier.clear()

	require.NoError(t, gs.HandleMove("guest_1", 2))
	assert.Greater(t, h.scheduler.size(), 0)
	assert.ErrorIs(t, gs.HandleMove("guest_1", 3), domain.ErrMoveInProgress)

	h.scheduler.runAll()
	assert.Equal(t, 1, h.notifier.count(domain.MsgMatchFound))
	assert.Equal(t, 1, h.notifier.count(domain.MsgKingConversion))

	types := h.notifier.types()
	assert.Equal(t, domain.MsgGameState, types[len(types)-1])

	state, _ := h.notifier.last(domain.MsgGameState)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, 1, state.Snapshot.RedKings)
	assert.Equal(t, domain.Yellow, state.Snapshot.CurrentPlayer)

	scores, ok := state.Scores.([]scoring.PlayerScore)
	require.True(t, ok)
	assert.Equal(t, 150, scores[0].CurrentScore)

	require.NoError(t, gs.HandleMove("guest_1", 3))
}

func TestResetDropsPendingRounds(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantClassic, domain.PvPMode())

	play(t, h, gs, 0, 0, 1, 1)
	require.NoError(t, gs.HandleMove("guest_1", 2))
	require.Greater(t, h.scheduler.size(), 0)

	require.NoError(t, gs.Reset("guest_1"))
	h.notifier.clear()
	h.scheduler.runAll()

	assert.Empty(t, h.notifier.types())
	snap := gs.Snapshot()
	assert.Equal(t, 0, snap.MoveCount)
	assert.Equal(t, 0, snap.Board.CountPieces())
	assert.Equal(t, 0, gs.View().Scores[0].CurrentScore)

	require.NoError(t, gs.HandleMove("guest_1", 0))
}

func TestSetVariantAndModeRestart(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	play(t, h, gs, 0, 1)

	require.NoError(t, gs.SetVariant("guest_1", domain.VariantClassic))
	snap := gs.Snapshot()
	assert.Equal(t, domain.VariantClassic, snap.Variant)
	assert.Equal(t, 0, snap.MoveCount)

	require.NoError(t, gs.SetMode("guest_1", domain.AIMode(domain.DifficultyHard)))
	assert.Equal(t, domain.AIMode(domain.DifficultyHard), gs.Mode())

	assert.ErrorIs(t, gs.SetVariant("guest_2", domain.VariantConnect3), domain.ErrNotAPlayer)

	// only the game with moves is stored
	require.Eventually(t, func() bool { return len(h.repo.saved(domain.SessionAbandoned)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.ReasonAbandoned, h.repo.saved(domain.SessionAbandoned)[0].Reason)
}

func TestBotMovesFirstInAIMode(t *testing.T) {
	bot := newFakeBot()
	h := newHarness(t, bot)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.AIMode(domain.DifficultyMedium))

	thinking, ok := h.notifier.last(domain.MsgAIThinking)
	require.True(t, ok)
	assert.Equal(t, domain.DifficultyMedium, thinking.Difficulty)

	assert.ErrorIs(t, gs.HandleMove("guest_1", 0), domain.ErrNotYourTurn)

	bot.release <- 2
	require.Eventually(t, func() bool { return gs.Snapshot().MoveCount == 1 }, time.Second, 5*time.Millisecond)

	moved, ok := h.notifier.last(domain.MsgMoveMade)
	require.True(t, ok)
	assert.Equal(t, domain.Red, moved.Player)
	require.NotNil(t, moved.AIMove)
	assert.Equal(t, 2, moved.AIMove.Column)

	require.NoError(t, gs.HandleMove("guest_1", 0))
	assert.Equal(t, 2, h.notifier.count(domain.MsgAIThinking))

	bot.release <- 2
	require.Eventually(t, func() bool { return gs.Snapshot().MoveCount == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.Yellow, gs.Snapshot().CurrentPlayer)
}

func TestResetCancelsPendingBotMove(t *testing.T) {
	bot := newFakeBot()
	h := newHarness(t, bot)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.AIMode(domain.DifficultyEasy))

	require.NoError(t, gs.Reset("guest_1"))
	require.Eventually(t, func() bool { return bot.cancelCount() == 1 }, time.Second, 5*time.Millisecond)

	bot.release <- 4
	require.Eventually(t, func() bool { return gs.Snapshot().MoveCount == 1 }, time.Second, 5*time.Millisecond)

	// nothing else was applied
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, gs.Snapshot().MoveCount)
	assert.Equal(t, 1, h.notifier.count(domain.MsgMoveMade))
}

func TestRemoveSessionStoresAbandonedGame(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	play(t, h, gs, 0, 1, 0)

	require.NoError(t, h.sm.RemoveSession(gs.GameID))
	assert.ErrorIs(t, h.sm.RemoveSession(gs.GameID), domain.ErrGameNotFound)
	assert.Equal(t, 0, h.sm.Count())

	require.Eventually(t, func() bool { return len(h.repo.saved(domain.SessionAbandoned)) == 1 }, time.Second, 5*time.Millisecond)
	record := h.repo.saved(domain.SessionAbandoned)[0]
	assert.Equal(t, domain.ReasonAbandoned, record.Reason)
	assert.Equal(t, 3, record.TotalMoves)

	_, cached := h.cache.get(gs.GameID)
	assert.False(t, cached)
}

func TestRemoveUntouchedSessionStoresNothing(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())

	require.NoError(t, h.sm.RemoveSession(gs.GameID))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, h.repo.count())
}

func TestShutdownStoresUnfinishedGames(t *testing.T) {
	h := newHarness(t, nil)
	played := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	play(t, h, played, 0, 1)
	h.sm.CreateSession("guest_2", domain.VariantClassic, domain.PvPMode())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.sm.Shutdown(ctx))

	assert.Equal(t, 0, h.sm.Count())
	abandoned := h.repo.saved(domain.SessionAbandoned)
	require.Len(t, abandoned, 1)
	assert.Equal(t, played.GameID, abandoned[0].ID)
}

func TestLiveSessions(t *testing.T) {
	h := newHarness(t, nil)
	older := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	newer := h.sm.CreateSession("guest_2", domain.VariantClassic, domain.PvPMode())
	finished := h.sm.CreateSession("guest_3", domain.VariantConnect3, domain.PvPMode())

	older.CreatedAt = time.Now().Add(-time.Minute)
	play(t, h, finished, 2, 3, 2, 3, 2)

	live := h.sm.LiveSessions()
	require.Len(t, live, 2)
	assert.Equal(t, newer.GameID, live[0].GameID)
	assert.Equal(t, older.GameID, live[1].GameID)
	assert.Equal(t, domain.VariantClassic, live[0].Variant)
}

func TestCleanupOldSessions(t *testing.T) {
	h := newHarness(t, nil)
	idle := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	done := h.sm.CreateSession("guest_2", domain.VariantConnect3, domain.PvPMode())
	fresh := h.sm.CreateSession("guest_3", domain.VariantConnect3, domain.PvPMode())

	idle.LastActivity = time.Now().Add(-25 * time.Hour)
	done.FinishedAt = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 2, h.sm.CleanupOldSessions())
	assert.Equal(t, 1, h.sm.Count())

	_, ok := h.sm.GetSession(fresh.GameID)
	assert.True(t, ok)
	assert.Equal(t, 0, h.sm.CleanupOldSessions())
}

type fakeHistory struct {
	records map[string]domain.GameRecord
	limit   int
}

func (f *fakeHistory) GetGameByID(ctx context.Context, id string) (*domain.GameRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return &record, nil
}

func (f *fakeHistory) GetPlayerHistory(ctx context.Context, playerID string, limit int) ([]domain.GameRecord, error) {
	f.limit = limit
	var out []domain.GameRecord
	for _, r := range f.records {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestServiceGetGame(t *testing.T) {
	h := newHarness(t, nil)
	gs := h.sm.CreateSession("guest_1", domain.VariantConnect3, domain.PvPMode())
	history := &fakeHistory{records: map[string]domain.GameRecord{
		"stored": {ID: "stored", PlayerID: "guest_1", Status: domain.SessionCompleted},
	}}
	svc := NewService(h.sm, history)
	ctx := context.Background()

	view, record, err := svc.GetGame(ctx, gs.GameID, "guest_1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Nil(t, record)
	assert.Equal(t, gs.GameID, view.GameID)

	_, _, err = svc.GetGame(ctx, gs.GameID, "guest_2")
	assert.ErrorIs(t, err, domain.ErrNotAPlayer)

	view, record, err = svc.GetGame(ctx, "stored", "guest_1")
	require.NoError(t, err)
	assert.Nil(t, view)
	require.NotNil(t, record)
	assert.Equal(t, domain.SessionCompleted, record.Status)

	_, _, err = svc.GetGame(ctx, "stored", "guest_2")
	assert.ErrorIs(t, err, domain.ErrNotAPlayer)

	_, _, err = svc.GetGame(ctx, "missing", "guest_1")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestServicePlayerHistoryLimit(t *testing.T) {
	history := &fakeHistory{records: map[string]domain.GameRecord{}}
	svc := NewService(newHarness(t, nil).sm, history)
	ctx := context.Background()

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, defaultHistoryLimit},
		{"as asked", 5, 5},
		{"capped", 1000, maxHistoryLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlayerHistory(ctx, "guest_1", tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, history.limit)
		})
	}
}
