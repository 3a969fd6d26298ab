package domain

import (
	"encoding/json"
	"fmt"
)

const (
	Rows    = 6
	Columns = 5
	ToMatch = 3
)

// Player is one of the two sides. The zero value is not a player.
type Player int

const (
	Red    Player = 1
	Yellow Player = 2
)

// StartingPlayer moves first in every game; the AI always plays this side.
const StartingPlayer = Red

func (p Player) Opponent() Player {
	if p == Red {
		return Yellow
	}
	return Red
}

func (p Player) Valid() bool {
	return p == Red || p == Yellow
}

func (p Player) String() string {
	switch p {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	default:
		return "none"
	}
}

func ParsePlayer(s string) (Player, error) {
	switch s {
	case "red":
		return Red, nil
	case "yellow":
		return Yellow, nil
	}
	return 0, fmt.Errorf("unknown player %q", s)
}

func (p Player) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Player) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePlayer(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Variant selects the rule set
type Variant string

const (
	VariantConnect3 Variant = "connect3"
	VariantClassic  Variant = "classic"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantConnect3, VariantClassic:
		return Variant(s), nil
	case "":
		return VariantConnect3, nil
	}
	return "", ErrUnknownVariant
}

// to represent the game status
type GameState string

const (
	StatePlaying GameState = "playing"
	StateWon     GameState = "won"
	StateDraw    GameState = "draw"
)

type WinType string

const (
	WinRegular WinType = "regular"
	WinKing    WinType = "king"
)

// WinCondition describes how a game was won. Positions is empty when a
// full-board king count decided the game.
type WinCondition struct {
	Player    Player     `json:"player"`
	Positions []Position `json:"positions"`
	Type      WinType    `json:"type"`
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty defaults to medium on empty or unknown input
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

type ModeType string

const (
	ModePvP ModeType = "pvp"
	ModeAI  ModeType = "ai"
)

// GameMode is either hot-seat PvP or a game against the AI at some difficulty.
type GameMode struct {
	Type       ModeType   `json:"type"`
	Difficulty Difficulty `json:"aiDifficulty,omitempty"`
}

func PvPMode() GameMode {
	return GameMode{Type: ModePvP}
}

func AIMode(d Difficulty) GameMode {
	return GameMode{Type: ModeAI, Difficulty: d}
}

func (m GameMode) IsAI() bool {
	return m.Type == ModeAI
}

func ParseMode(modeType, difficulty string) (GameMode, error) {
	switch ModeType(modeType) {
	case ModePvP, "":
		return PvPMode(), nil
	case ModeAI:
		return AIMode(ParseDifficulty(difficulty)), nil
	}
	return GameMode{}, ErrUnknownMode
}

type MoveType string

const (
	MoveWin       MoveType = "win"
	MoveBlock     MoveType = "block"
	MoveStrategic MoveType = "strategic"
	MoveRandom    MoveType = "random"
)

// AIMove is the column the bot settled on and how sure it is about it.
type AIMove struct {
	Column             int      `json:"column"`
	Confidence         float64  `json:"confidence"`
	MoveType           MoveType `json:"moveType"`
	PredictedAdvantage int      `json:"predictedAdvantage"`
}

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInvalidColumn  Error = "invalid column"
	ErrColumnFull     Error = "column is full"
	ErrGameOver       Error = "game is already over"
	ErrMoveInProgress Error = "a move is still being resolved"
	ErrNotYourTurn    Error = "not your turn"
	ErrUnknownVariant Error = "unknown game variant"
	ErrUnknownMode    Error = "unknown game mode"
	ErrNoValidMoves   Error = "no valid moves"
	ErrNotAPlayer     Error = "player is not in this game"
	ErrGameNotFound   Error = "game not found"
)
