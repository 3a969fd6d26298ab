package domain

import (
	"github.com/rs/zerolog"
)

// Listener receives events while a move is being resolved. Calls happen on
// the goroutine running ApplyMove, with the engine marked busy: a listener
// that tries to apply another move gets ErrMoveInProgress.
type Listener interface {
	OnMatchFound(event MatchEvent)
	OnKingConversion(event KingConversionEvent)
}

// Snapshot is a read-only copy of the engine state for rendering
type Snapshot struct {
	Board         Board         `json:"board"`
	CurrentPlayer Player        `json:"currentPlayer"`
	State         GameState     `json:"gameState"`
	WinCondition  *WinCondition `json:"winCondition,omitempty"`
	Variant       Variant       `json:"variant"`
	MoveCount     int           `json:"moveCount"`
	Generation    uint64        `json:"generation"`
	RedKings      int           `json:"redKings"`
	YellowKings   int           `json:"yellowKings"`
}

func (s Snapshot) IsFinished() bool {
	return s.State != StatePlaying
}

// MoveResult describes one applied move. Placed is the board as the piece
// landed. Rounds is empty when the move made no match; for Classic it holds
// the move's own promotion followed by every cascade round in order.
type MoveResult struct {
	Player   Player   `json:"player"`
	Position Position `json:"position"`
	Placed   Board    `json:"placed"`
	Rounds   []Round  `json:"rounds"`
	Snapshot Snapshot `json:"snapshot"`
}

// Engine owns the board and turn state of one game. It is not safe for
// concurrent use; callers serialise access to it.
type Engine struct {
	board         Board
	currentPlayer Player
	state         GameState
	win           *WinCondition
	variant       Variant
	moveCount     int

	// generation changes on every reset so delayed work scheduled against an
	// earlier game can tell it is stale
	generation uint64
	busy       bool
	animating  bool

	listener Listener
	logger   zerolog.Logger
}

type EngineOption func(*Engine)

func WithListener(l Listener) EngineOption {
	return func(e *Engine) {
		e.listener = l
	}
}

func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "engine").Logger()
	}
}

func NewEngine(variant Variant, opts ...EngineOption) *Engine {
	e := &Engine{
		variant: variant,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

func (e *Engine) SetListener(l Listener) {
	e.listener = l
}

// Reset starts a fresh game with the same variant
func (e *Engine) Reset() {
	e.board = NewBoard()
	e.currentPlayer = StartingPlayer
	e.state = StatePlaying
	e.win = nil
	e.moveCount = 0
	e.busy = false
	e.animating = false
	e.generation++
	e.logger.Debug().Uint64("generation", e.generation).Str("variant", string(e.variant)).Msg("game reset")
}

func (e *Engine) SetVariant(v Variant) {
	e.variant = v
	e.Reset()
}

func (e *Engine) Variant() Variant {
	return e.variant
}

func (e *Engine) CurrentPlayer() Player {
	return e.currentPlayer
}

func (e *Engine) Generation() uint64 {
	return e.generation
}

func (e *Engine) IsFinished() bool {
	return e.state != StatePlaying
}

// Busy reports whether a move is resolving or its presentation is still running
func (e *Engine) Busy() bool {
	return e.busy || e.animating
}

// BeginAnimation holds the engine while the caller paces the presentation of
// a move. It returns the generation to hand back to EndAnimation.
func (e *Engine) BeginAnimation() uint64 {
	e.animating = true
	return e.generation
}

// EndAnimation releases the hold taken under gen. A release from before the
// last reset is ignored.
func (e *Engine) EndAnimation(gen uint64) {
	if gen != e.generation {
		return
	}
	e.animating = false
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Board:         e.board,
		CurrentPlayer: e.currentPlayer,
		State:         e.state,
		Variant:       e.variant,
		MoveCount:     e.moveCount,
		Generation:    e.generation,
		RedKings:      e.board.CountKings(Red),
		YellowKings:   e.board.CountKings(Yellow),
	}
	if e.win != nil {
		win := *e.win
		win.Positions = append([]Position{}, e.win.Positions...)
		s.WinCondition = &win
	}
	return s
}

// ApplyMove drops the current player's piece into column and resolves it.
// A rejected move leaves the engine untouched.
func (e *Engine) ApplyMove(column int) (*MoveResult, error) {
	if e.busy || e.animating {
		return nil, ErrMoveInProgress
	}
	if e.state != StatePlaying {
		return nil, ErrGameOver
	}
	if !IsValidColumn(column) {
		return nil, ErrInvalidColumn
	}

	next, row, err := e.board.Drop(column, e.currentPlayer)
	if err != nil {
		return nil, err
	}

	e.busy = true
	defer func() { e.busy = false }()

	mover := e.currentPlayer
	pos := Position{Row: row, Col: column}
	e.board = next
	e.moveCount++

	result := &MoveResult{Player: mover, Position: pos, Placed: next}

	switch e.variant {
	case VariantClassic:
		result.Rounds = e.resolveClassic(pos, mover)
	default:
		result.Rounds = e.resolveConnect3(pos, mover)
	}

	if e.state == StatePlaying {
		e.currentPlayer = mover.Opponent()
	}

	result.Snapshot = e.Snapshot()

	e.logger.Debug().
		Str("player", mover.String()).
		Int("row", row).
		Int("column", column).
		Int("rounds", len(result.Rounds)).
		Str("state", string(e.state)).
		Msg("move applied")

	return result, nil
}

func (e *Engine) resolveConnect3(pos Position, mover Player) []Round {
	state, win := EvaluateConnect3(e.board, pos, mover)
	e.state, e.win = state, win

	if win == nil {
		return nil
	}

	round := Round{
		Depth: 0,
		Board: e.board,
		Matches: []MatchEvent{{
			Positions:    win.Positions,
			Player:       mover,
			CascadeDepth: 0,
			Simultaneous: 1,
		}},
	}
	e.emit(round)
	return []Round{round}
}

func (e *Engine) resolveClassic(pos Position, mover Player) []Round {
	var rounds []Round

	if positions := FindMatchFrom(e.board, pos, mover); positions != nil {
		promoted, first := PromoteMove(e.board, positions, mover)
		e.emit(first)
		rounds = append(rounds, first)

		settled, cascade := ResolveCascade(promoted, 1)
		for _, round := range cascade {
			e.emit(round)
		}
		rounds = append(rounds, cascade...)
		e.board = settled
	} else {
		// the drop already lands on the stack, so this is a no-op in practice
		e.board, _ = ApplyGravity(e.board)
	}

	e.state, e.win = EvaluateClassic(e.board, mover)
	return rounds
}

func (e *Engine) emit(round Round) {
	if e.listener == nil {
		return
	}
	for i, match := range round.Matches {
		e.listener.OnMatchFound(match)
		if i < len(round.Conversions) {
			e.listener.OnKingConversion(round.Conversions[i])
		}
	}
}
