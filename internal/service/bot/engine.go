package bot

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

// Random is the source used to pick among ranked moves. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

func newAIMove(eval Evaluation) domain.AIMove {
	return domain.AIMove{
		Column:             eval.Column,
		Confidence:         math.Min(100, float64(eval.Score)/10+50),
		MoveType:           eval.MoveType,
		PredictedAdvantage: eval.Score,
	}
}

// CalculateBestMove ranks every legal column and picks one according to difficulty
func CalculateBestMove(board domain.Board, botPlayer domain.Player, difficulty domain.Difficulty, rnd Random) (domain.AIMove, error) {
	evals := EvaluateAllMoves(board, botPlayer)
	if len(evals) == 0 {
		return domain.AIMove{}, domain.ErrNoValidMoves
	}
	return newAIMove(SelectMove(evals, difficulty, rnd)), nil
}

// SelectMove applies the difficulty profile to an already ranked list
func SelectMove(evals []Evaluation, difficulty domain.Difficulty, rnd Random) Evaluation {
	switch difficulty {
	case domain.DifficultyEasy:
		return selectEasy(evals, rnd)
	case domain.DifficultyHard:
		return selectHard(evals)
	default:
		return selectMedium(evals, rnd)
	}
}

// ThinkingTimes is how long the bot pauses before answering, per difficulty
type ThinkingTimes struct {
	Easy   time.Duration
	Medium time.Duration
	Hard   time.Duration
}

func DefaultThinkingTimes() ThinkingTimes {
	return ThinkingTimes{
		Easy:   500 * time.Millisecond,
		Medium: 1000 * time.Millisecond,
		Hard:   1500 * time.Millisecond,
	}
}

func (t ThinkingTimes) For(difficulty domain.Difficulty) time.Duration {
	switch difficulty {
	case domain.DifficultyEasy:
		return t.Easy
	case domain.DifficultyHard:
		return t.Hard
	default:
		return t.Medium
	}
}

// Bot answers move requests for one side. It is safe for concurrent use by
// many game sessions.
type Bot struct {
	player   domain.Player
	thinking ThinkingTimes
	logger   zerolog.Logger

	mu  sync.Mutex
	rnd Random
}

type Option func(*Bot)

// WithRandom replaces the default time-seeded source
func WithRandom(rnd Random) Option {
	return func(b *Bot) {
		b.rnd = rnd
	}
}

func WithPlayer(p domain.Player) Option {
	return func(b *Bot) {
		b.player = p
	}
}

func New(thinking ThinkingTimes, logger zerolog.Logger, opts ...Option) *Bot {
	b := &Bot{
		player:   domain.StartingPlayer,
		thinking: thinking,
		logger:   logger.With().Str("component", "bot").Logger(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bot) Player() domain.Player {
	return b.player
}

// RequestMove waits out the thinking time and then picks a move on board.
// board is a copy taken by the caller, so later moves cannot change it. If
// ctx ends first the move is abandoned and ctx.Err() is returned.
func (b *Bot) RequestMove(ctx context.Context, board domain.Board, difficulty domain.Difficulty) (domain.AIMove, error) {
	timer := time.NewTimer(b.thinking.For(difficulty))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		b.logger.Debug().Str("difficulty", string(difficulty)).Msg("move request cancelled")
		return domain.AIMove{}, ctx.Err()
	case <-timer.C:
	}

	b.mu.Lock()
	move, err := CalculateBestMove(board, b.player, difficulty, b.rnd)
	b.mu.Unlock()
	if err != nil {
		return domain.AIMove{}, err
	}

	b.logger.Debug().
		Int("column", move.Column).
		Str("move_type", string(move.MoveType)).
		Float64("confidence", move.Confidence).
		Str("difficulty", string(difficulty)).
		Msg("bot picked a move")
	return move, nil
}
