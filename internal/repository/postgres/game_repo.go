package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

type GameRepo struct {
	DB *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{DB: db}
}

// SaveGame stores a game with its scores and score events in one
// transaction. A game already stored with a final status is left as it is,
// so a late "active" write cannot undo a finished one.
func (r *GameRepo) SaveGame(ctx context.Context, record domain.GameRecord) error {
	row, err := sessionRowFrom(record)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
	INSERT INTO game_sessions (id, player_id, game_variant, game_mode, ai_difficulty, status, reason, winner, win_type, total_moves, duration_seconds, board_state, started_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		reason = EXCLUDED.reason,
		winner = EXCLUDED.winner,
		win_type = EXCLUDED.win_type,
		total_moves = EXCLUDED.total_moves,
		duration_seconds = EXCLUDED.duration_seconds,
		board_state = EXCLUDED.board_state,
		completed_at = EXCLUDED.completed_at
	WHERE game_sessions.status = 'active';
	`

	res, err := tx.ExecContext(ctx, query,
		row.ID, row.PlayerID, row.Variant, row.Mode, row.Difficulty, row.Status, row.Reason,
		row.Winner, row.WinType, row.TotalMoves, row.DurationSeconds, row.Board, row.StartedAt, row.CompletedAt)
	if err != nil {
		return errors.Wrap(err, "failed to upsert game session")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil
	}

	if err := r.replaceScoresTx(ctx, tx, record); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (r *GameRepo) replaceScoresTx(ctx context.Context, tx *sql.Tx, record domain.GameRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_scores WHERE session_id = $1;`, record.ID); err != nil {
		return errors.Wrap(err, "failed to clear player scores")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM score_events WHERE session_id = $1;`, record.ID); err != nil {
		return errors.Wrap(err, "failed to clear score events")
	}

	scoreQuery := `
	INSERT INTO player_scores (session_id, player_color, final_score, base_points, bonus_points, total_matches, max_cascade_level, kings_created, moves_used, achievements, rank)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	for _, score := range record.Scores {
		_, err := tx.ExecContext(ctx, scoreQuery,
			record.ID, score.Player.String(), score.Score, score.BasePoints, score.BonusPoints,
			score.Matches, score.MaxCascade, score.KingsCreated, score.Moves,
			pq.Array(score.Achievements), rankOf(record, score.Player))
		if err != nil {
			return errors.Wrapf(err, "failed to insert %s score", score.Player)
		}
	}

	eventQuery := `
	INSERT INTO score_events (session_id, player_color, event_type, points, multiplier, description, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	for _, event := range record.Events {
		_, err := tx.ExecContext(ctx, eventQuery,
			record.ID, event.Player.String(), event.Type, event.Points, event.Multiplier, event.Description, event.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "failed to insert score event")
		}
	}
	return nil
}

const sessionColumns = `id, player_id, game_variant, game_mode, ai_difficulty, status, reason, winner, win_type,
	       total_moves, duration_seconds, board_state, started_at, completed_at`

// GetGameByID retrieves a stored game with its scores and events
func (r *GameRepo) GetGameByID(ctx context.Context, id string) (*domain.GameRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1;`

	var row sessionRow
	err := row.scan(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get game by ID")
	}

	record, err := row.record()
	if err != nil {
		return nil, err
	}

	scores, err := r.scoresFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	record.Scores = scores[id]

	if record.Events, err = r.eventsFor(ctx, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetPlayerHistory lists a player's finished games, newest first, with
// their scores but without score events
func (r *GameRepo) GetPlayerHistory(ctx context.Context, playerID string, limit int) ([]domain.GameRecord, error) {
	query := `SELECT ` + sessionColumns + `
	FROM game_sessions
	WHERE player_id = $1 AND status <> 'active'
	ORDER BY started_at DESC
	LIMIT $2;`

	rows, err := r.DB.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query game history")
	}
	defer rows.Close()

	records := []domain.GameRecord{}
	var ids []string
	for rows.Next() {
		var row sessionRow
		if err := row.scan(rows); err != nil {
			return nil, errors.Wrap(err, "failed to scan game row")
		}
		record, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		ids = append(ids, record.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read game history")
	}
	if len(ids) == 0 {
		return records, nil
	}

	scores, err := r.scoresFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Scores = scores[records[i].ID]
	}
	return records, nil
}

// CleanupAbandoned marks games that have been active for longer than
// olderThan as abandoned. They belong to sessions lost with a restart.
func (r *GameRepo) CleanupAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
	UPDATE game_sessions
	SET status = 'abandoned', reason = 'abandoned', completed_at = NOW()
	WHERE status = 'active' AND started_at < $1;
	`
	res, err := r.DB.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, errors.Wrap(err, "failed to mark abandoned games")
	}
	return res.RowsAffected()
}

func (r *GameRepo) scoresFor(ctx context.Context, ids []string) (map[string][]domain.ScoreRecord, error) {
	query := `
	SELECT session_id, player_color, final_score, base_points, bonus_points, total_matches,
	       max_cascade_level, kings_created, moves_used, achievements
	FROM player_scores
	WHERE session_id = ANY($1)
	ORDER BY session_id, player_color;
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query player scores")
	}
	defer rows.Close()

	out := make(map[string][]domain.ScoreRecord, len(ids))
	for rows.Next() {
		var sessionID, color string
		var score domain.ScoreRecord
		err := rows.Scan(&sessionID, &color, &score.Score, &score.BasePoints, &score.BonusPoints,
			&score.Matches, &score.MaxCascade, &score.KingsCreated, &score.Moves, pq.Array(&score.Achievements))
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan player score")
		}
		if score.Player, err = domain.ParsePlayer(color); err != nil {
			return nil, errors.Wrapf(err, "bad player color %q", color)
		}
		out[sessionID] = append(out[sessionID], score)
	}
	return out, errors.Wrap(rows.Err(), "failed to read player scores")
}

func (r *GameRepo) eventsFor(ctx context.Context, id string) ([]domain.ScoreEventRecord, error) {
	query := `
	SELECT player_color, event_type, points, multiplier, description, created_at
	FROM score_events
	WHERE session_id = $1
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query score events")
	}
	defer rows.Close()

	var events []domain.ScoreEventRecord
	for rows.Next() {
		var color string
		var event domain.ScoreEventRecord
		if err := rows.Scan(&color, &event.Type, &event.Points, &event.Multiplier, &event.Description, &event.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan score event")
		}
		if event.Player, err = domain.ParsePlayer(color); err != nil {
			return nil, errors.Wrapf(err, "bad player color %q", color)
		}
		events = append(events, event)
	}
	return events, errors.Wrap(rows.Err(), "failed to read score events")
}

// rankOf is 1 for the winner and 2 for the loser of a won game
func rankOf(record domain.GameRecord, player domain.Player) sql.NullInt64 {
	if !record.Winner.Valid() {
		return sql.NullInt64{}
	}
	if record.Winner == player {
		return sql.NullInt64{Int64: 1, Valid: true}
	}
	return sql.NullInt64{Int64: 2, Valid: true}
}

// sessionRow is a game_sessions row in its column types
type sessionRow struct {
	ID              string
	PlayerID        string
	Variant         string
	Mode            string
	Difficulty      sql.NullString
	Status          string
	Reason          string
	Winner          sql.NullString
	WinType         sql.NullString
	TotalMoves      int
	DurationSeconds int
	Board           []byte
	StartedAt       time.Time
	CompletedAt     sql.NullTime
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *sessionRow) scan(sc scanner) error {
	return sc.Scan(&s.ID, &s.PlayerID, &s.Variant, &s.Mode, &s.Difficulty, &s.Status, &s.Reason,
		&s.Winner, &s.WinType, &s.TotalMoves, &s.DurationSeconds, &s.Board, &s.StartedAt, &s.CompletedAt)
}

func sessionRowFrom(record domain.GameRecord) (sessionRow, error) {
	board, err := json.Marshal(record.Board)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "failed to marshal board state")
	}

	row := sessionRow{
		ID:              record.ID,
		PlayerID:        record.PlayerID,
		Variant:         string(record.Variant),
		Mode:            string(record.Mode.Type),
		Status:          string(record.Status),
		Reason:          record.Reason,
		TotalMoves:      record.TotalMoves,
		DurationSeconds: record.DurationSeconds,
		Board:           board,
		StartedAt:       record.CreatedAt,
	}
	if record.Mode.IsAI() {
		row.Difficulty = sql.NullString{String: string(record.Mode.Difficulty), Valid: true}
	}
	if record.Winner.Valid() {
		row.Winner = sql.NullString{String: record.Winner.String(), Valid: true}
	}
	if record.WinType != "" {
		row.WinType = sql.NullString{String: string(record.WinType), Valid: true}
	}
	if record.Status != domain.SessionActive && !record.FinishedAt.IsZero() {
		row.CompletedAt = sql.NullTime{Time: record.FinishedAt, Valid: true}
	}
	return row, nil
}

func (s sessionRow) record() (domain.GameRecord, error) {
	mode, err := domain.ParseMode(s.Mode, s.Difficulty.String)
	if err != nil {
		return domain.GameRecord{}, errors.Wrapf(err, "bad game mode %q", s.Mode)
	}

	record := domain.GameRecord{
		ID:              s.ID,
		PlayerID:        s.PlayerID,
		Variant:         domain.Variant(s.Variant),
		Mode:            mode,
		Status:          domain.SessionStatus(s.Status),
		Reason:          s.Reason,
		TotalMoves:      s.TotalMoves,
		DurationSeconds: s.DurationSeconds,
		CreatedAt:       s.StartedAt,
	}
	if s.Winner.Valid {
		if record.Winner, err = domain.ParsePlayer(s.Winner.String); err != nil {
			return domain.GameRecord{}, errors.Wrapf(err, "bad winner %q", s.Winner.String)
		}
	}
	if s.WinType.Valid {
		record.WinType = domain.WinType(s.WinType.String)
	}
	if s.CompletedAt.Valid {
		record.FinishedAt = s.CompletedAt.Time
	}
	if len(s.Board) > 0 {
		if err := json.Unmarshal(s.Board, &record.Board); err != nil {
			return domain.GameRecord{}, errors.Wrap(err, "failed to unmarshal board state")
		}
	}
	return record, nil
}
