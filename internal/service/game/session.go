package game

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/internal/domain"
	"github.com/nyambogahezron/connectThree/internal/service/scoring"
	"github.com/nyambogahezron/connectThree/pkg/uid"
)

// GameSession is one player's game: an engine, its mode and its scores.
// Every exported method is safe for concurrent use.
type GameSession struct {
	GameID       string
	PlayerID     string
	CreatedAt    time.Time
	FinishedAt   time.Time
	LastActivity time.Time
	Reason       string

	// id the current game is stored under; a reset starts a new record
	recordID string
	mode     domain.GameMode
	engine   *domain.Engine
	tracker  *scoring.Tracker

	// cancels the pending bot request, nil when none is pending
	botCancel context.CancelFunc
	closed    bool
	mu        sync.Mutex

	manager *SessionManager
	logger  zerolog.Logger
}

// HandleMove plays column for the session's player
func (gs *GameSession) HandleMove(playerID string, column int) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := gs.checkPlayerLocked(playerID); err != nil {
		return err
	}
	if gs.isBotTurnLocked() {
		return domain.ErrNotYourTurn
	}
	return gs.applyMoveLocked(column, nil)
}

// Reset starts a new game with the same variant and mode
func (gs *GameSession) Reset(playerID string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := gs.checkPlayerLocked(playerID); err != nil {
		return err
	}
	gs.abandonLocked()
	gs.engine.Reset()
	gs.restartLocked()
	return nil
}

// SetVariant switches the rules and starts a new game
func (gs *GameSession) SetVariant(playerID string, variant domain.Variant) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := gs.checkPlayerLocked(playerID); err != nil {
		return err
	}
	gs.abandonLocked()
	gs.engine.SetVariant(variant)
	gs.restartLocked()
	return nil
}

// SetMode switches between PvP and the AI and starts a new game
func (gs *GameSession) SetMode(playerID string, mode domain.GameMode) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := gs.checkPlayerLocked(playerID); err != nil {
		return err
	}
	gs.abandonLocked()
	gs.mode = mode
	gs.engine.Reset()
	gs.restartLocked()
	return nil
}

func (gs *GameSession) Snapshot() domain.Snapshot {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.engine.Snapshot()
}

func (gs *GameSession) Mode() domain.GameMode {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.mode
}

func (gs *GameSession) View() View {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	return View{
		GameID:   gs.GameID,
		Mode:     gs.mode,
		Snapshot: gs.engine.Snapshot(),
		Scores:   gs.tracker.Scores(),
	}
}

func (gs *GameSession) Summary() Summary {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	snap := gs.engine.Snapshot()
	return Summary{
		GameID:        gs.GameID,
		PlayerID:      gs.PlayerID,
		Mode:          gs.mode,
		Variant:       snap.Variant,
		State:         snap.State,
		CurrentPlayer: snap.CurrentPlayer,
		MoveCount:     snap.MoveCount,
		CreatedAt:     gs.CreatedAt,
	}
}

// Close stops pending work. An unfinished game with moves on the board is
// stored as abandoned.
func (gs *GameSession) Close() {
	gs.mu.Lock()
	if gs.closed {
		gs.mu.Unlock()
		return
	}
	gs.abandonLocked()
	gs.closed = true
	gs.mu.Unlock()

	if cache := gs.manager.cache; cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := cache.DeleteSnapshot(ctx, gs.GameID); err != nil {
			gs.logger.Warn().Err(err).Msg("failed to drop cached snapshot")
		}
	}
	gs.logger.Info().Msg("session closed")
}

func (gs *GameSession) start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.startLocked()
}

func (gs *GameSession) isStale(now time.Time) bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.FinishedAt.IsZero() && now.Sub(gs.FinishedAt) > finishedSessionTTL {
		return true
	}
	return now.Sub(gs.LastActivity) > idleSessionTTL
}

func (gs *GameSession) checkPlayerLocked(playerID string) error {
	if playerID != gs.PlayerID {
		return domain.ErrNotAPlayer
	}
	if gs.closed {
		return domain.ErrGameNotFound
	}
	return nil
}

func (gs *GameSession) isBotTurnLocked() bool {
	bot := gs.manager.bot
	if !gs.mode.IsAI() || bot == nil || gs.engine.IsFinished() {
		return false
	}
	return gs.engine.CurrentPlayer() == bot.Player()
}

func (gs *GameSession) startLocked() {
	snap := gs.engine.Snapshot()
	mode := gs.mode
	gs.notify(domain.ServerMessage{
		Type:     domain.MsgGameStart,
		Mode:     &mode,
		Snapshot: &snap,
		Scores:   gs.tracker.Scores(),
	})
	gs.cacheSnapshotLocked(snap)

	if gs.isBotTurnLocked() {
		gs.scheduleBotLocked()
	}
}

// restartLocked begins a new game after the engine has been reset
func (gs *GameSession) restartLocked() {
	gs.cancelBotLocked()
	gs.tracker.Reset(gs.engine.Variant())

	now := time.Now()
	gs.recordID = uid.GenerateGameID()
	gs.CreatedAt = now
	gs.LastActivity = now
	gs.FinishedAt = time.Time{}
	gs.Reason = ""

	gs.logger.Info().
		Str("variant", string(gs.engine.Variant())).
		Str("mode", string(gs.mode.Type)).
		Msg("game restarted")
	gs.startLocked()
}

// applyMoveLocked plays column for whoever is to move. aiMove is set when
// the bot chose the column.
func (gs *GameSession) applyMoveLocked(column int, aiMove *domain.AIMove) error {
	result, err := gs.engine.ApplyMove(column)
	if err != nil {
		return err
	}
	gs.LastActivity = time.Now()
	gs.tracker.RecordMove(result.Player, result.Snapshot)

	// an active row outlives a server crash and is later marked abandoned
	if result.Snapshot.MoveCount == 1 && !result.Snapshot.IsFinished() {
		gs.saveGameAsync(gs.recordLocked(domain.SessionActive, result.Snapshot))
	}

	row, col := result.Position.Row, result.Position.Col
	placed := result.Placed
	gs.notify(domain.ServerMessage{
		Type:   domain.MsgMoveMade,
		Player: result.Player,
		Column: &col,
		Row:    &row,
		Board:  &placed,
		AIMove: aiMove,
	})

	if len(result.Rounds) == 0 {
		gs.finishMoveLocked()
		return nil
	}

	gen := gs.engine.BeginAnimation()
	gs.scheduleRoundLocked(result.Rounds, 0, gen, gs.manager.timing.DropDelay)
	return nil
}

// scheduleRoundLocked shows rounds[i] after delay and chains to the next
// round. The engine stays held until the last one has been shown.
func (gs *GameSession) scheduleRoundLocked(rounds []domain.Round, i int, gen uint64, delay time.Duration) {
	gs.manager.after(delay, func() {
		gs.mu.Lock()
		defer gs.mu.Unlock()

		if gs.closed || gs.engine.Generation() != gen {
			return
		}
		gs.presentRoundLocked(rounds[i])

		if i+1 < len(rounds) {
			gs.scheduleRoundLocked(rounds, i+1, gen, gs.manager.timing.RoundDelay)
			return
		}
		gs.engine.EndAnimation(gen)
		gs.finishMoveLocked()
	})
}

func (gs *GameSession) presentRoundLocked(round domain.Round) {
	board := round.Board
	for i := range round.Matches {
		match := round.Matches[i]
		gs.notify(domain.ServerMessage{
			Type:  domain.MsgMatchFound,
			Board: &board,
			Match: &match,
		})
	}
	for i := range round.Conversions {
		conversion := round.Conversions[i]
		gs.notify(domain.ServerMessage{
			Type:       domain.MsgKingConversion,
			Board:      &board,
			Conversion: &conversion,
		})
	}
}

// finishMoveLocked runs once a move has been fully shown
func (gs *GameSession) finishMoveLocked() {
	snap := gs.engine.Snapshot()
	gs.cacheSnapshotLocked(snap)

	if snap.IsFinished() {
		gs.completeLocked(snap)
		return
	}

	gs.notify(domain.ServerMessage{
		Type:     domain.MsgGameState,
		Snapshot: &snap,
		Scores:   gs.tracker.Scores(),
	})

	if gs.isBotTurnLocked() {
		gs.scheduleBotLocked()
	}
}

func (gs *GameSession) completeLocked(snap domain.Snapshot) {
	gs.tracker.Complete(snap)
	gs.FinishedAt = time.Now()
	gs.Reason = domain.ReasonFor(snap)

	var winner domain.Player
	if snap.WinCondition != nil {
		winner = snap.WinCondition.Player
	}

	gs.notify(domain.ServerMessage{
		Type:     domain.MsgGameOver,
		Snapshot: &snap,
		Winner:   winner,
		Reason:   gs.Reason,
		Scores:   gs.tracker.Scores(),
	})

	gs.logger.Info().
		Str("winner", winner.String()).
		Str("reason", gs.Reason).
		Int("moves", snap.MoveCount).
		Msg("game finished")

	gs.saveGameAsync(gs.recordLocked(domain.SessionCompleted, snap))
}

// abandonLocked stores the current game as abandoned if it was started and
// never finished
func (gs *GameSession) abandonLocked() {
	gs.cancelBotLocked()

	snap := gs.engine.Snapshot()
	if gs.closed || snap.IsFinished() || snap.MoveCount == 0 {
		return
	}
	gs.FinishedAt = time.Now()
	gs.Reason = domain.ReasonAbandoned
	gs.saveGameAsync(gs.recordLocked(domain.SessionAbandoned, snap))
}

// scheduleBotLocked asks the bot for a move on a copy of the board. The
// answer is dropped if the game was reset or closed meanwhile.
func (gs *GameSession) scheduleBotLocked() {
	if gs.botCancel != nil {
		return
	}

	bot := gs.manager.bot
	gen := gs.engine.Generation()
	board := gs.engine.Snapshot().Board
	difficulty := gs.mode.Difficulty

	ctx, cancel := context.WithCancel(context.Background())
	gs.botCancel = cancel

	gs.notify(domain.ServerMessage{Type: domain.MsgAIThinking, Difficulty: difficulty})

	go func() {
		defer cancel()
		move, err := bot.RequestMove(ctx, board, difficulty)

		gs.mu.Lock()
		defer gs.mu.Unlock()

		// a reset moves the generation on and clears botCancel itself
		if gs.engine.Generation() == gen {
			gs.botCancel = nil
		}

		if err != nil {
			if !errors.Is(err, context.Canceled) {
				gs.logger.Error().Err(err).Msg("bot failed to pick a move")
			}
			return
		}
		if gs.closed || gs.engine.Generation() != gen || !gs.isBotTurnLocked() {
			gs.logger.Debug().Int("column", move.Column).Msg("dropping stale bot move")
			return
		}

		if err := gs.applyMoveLocked(move.Column, &move); err != nil {
			gs.logger.Error().Err(err).Int("column", move.Column).Msg("bot move rejected")
		}
	}()
}

func (gs *GameSession) cancelBotLocked() {
	if gs.botCancel != nil {
		gs.botCancel()
		gs.botCancel = nil
	}
}

func (gs *GameSession) recordLocked(status domain.SessionStatus, snap domain.Snapshot) domain.GameRecord {
	finished := gs.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	record := domain.GameRecord{
		ID:              gs.recordID,
		PlayerID:        gs.PlayerID,
		Variant:         snap.Variant,
		Mode:            gs.mode,
		Status:          status,
		Reason:          gs.Reason,
		TotalMoves:      snap.MoveCount,
		DurationSeconds: int(finished.Sub(gs.CreatedAt).Seconds()),
		Board:           snap.Board,
		CreatedAt:       gs.CreatedAt,
		FinishedAt:      finished,
	}
	if snap.WinCondition != nil {
		record.Winner = snap.WinCondition.Player
		record.WinType = snap.WinCondition.Type
	}

	for _, score := range gs.tracker.Scores() {
		achievements := []string{}
		for _, a := range score.Achievements {
			if a.Unlocked {
				achievements = append(achievements, string(a.ID))
			}
		}
		record.Scores = append(record.Scores, domain.ScoreRecord{
			Player:       score.Player,
			Score:        score.CurrentScore,
			BasePoints:   score.BasePoints,
			BonusPoints:  score.BonusPoints,
			Matches:      score.TotalMatches,
			MaxCascade:   score.MaxCascadeLevel,
			KingsCreated: score.KingsCreated,
			Moves:        score.MovesUsed,
			Achievements: achievements,
		})
	}

	for _, e := range gs.tracker.History() {
		record.Events = append(record.Events, domain.ScoreEventRecord{
			Player:      e.Player,
			Type:        string(e.Type),
			Points:      e.Points,
			Multiplier:  e.Multiplier,
			Description: e.Description,
			CreatedAt:   e.Timestamp,
		})
	}
	return record
}

func (gs *GameSession) saveGameAsync(record domain.GameRecord) {
	repo := gs.manager.repo
	if repo == nil {
		return
	}

	gs.manager.saves.Add(1)
	go func() {
		defer gs.manager.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := repo.SaveGame(ctx, record); err != nil {
			gs.logger.Error().Err(err).Str("record_id", record.ID).Msg("error saving game")
			return
		}
		gs.logger.Info().
			Str("record_id", record.ID).
			Str("status", string(record.Status)).
			Msg("game saved successfully")
	}()
}

func (gs *GameSession) cacheSnapshotLocked(snap domain.Snapshot) {
	cache := gs.manager.cache
	if cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := cache.SaveSnapshot(ctx, gs.GameID, snap); err != nil {
		gs.logger.Warn().Err(err).Msg("failed to cache snapshot")
	}
}

func (gs *GameSession) notify(msg domain.ServerMessage) {
	notifier := gs.manager.notifier
	if notifier == nil {
		return
	}

	msg.GameID = gs.GameID
	if err := notifier.SendMessage(gs.PlayerID, msg); err != nil {
		gs.logger.Debug().Err(err).Str("type", msg.Type).Msg("could not notify player")
	}
}
