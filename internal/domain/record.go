package domain

import "time"

// reasons a game session ended
const (
	ReasonThreeInARow = "three_in_a_row"
	ReasonKingRun     = "king_run"
	ReasonKingCount   = "king_count"
	ReasonDraw        = "draw"
	ReasonAbandoned   = "abandoned"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// GameRecord is a finished or abandoned game as it is stored
type GameRecord struct {
	ID              string        `json:"id"`
	PlayerID        string        `json:"playerId"`
	Variant         Variant       `json:"variant"`
	Mode            GameMode      `json:"mode"`
	Status          SessionStatus `json:"status"`
	Winner          Player        `json:"winner,omitempty"`
	WinType         WinType       `json:"winType,omitempty"`
	Reason          string        `json:"reason"`
	TotalMoves      int           `json:"totalMoves"`
	DurationSeconds int           `json:"durationSeconds"`
	Board           Board         `json:"board"`
	CreatedAt       time.Time     `json:"createdAt"`
	FinishedAt      time.Time     `json:"finishedAt"`

	Scores []ScoreRecord      `json:"scores,omitempty"`
	Events []ScoreEventRecord `json:"events,omitempty"`
}

// ScoreRecord is one side's final score in a stored game
type ScoreRecord struct {
	Player       Player   `json:"player"`
	Score        int      `json:"score"`
	BasePoints   int      `json:"basePoints"`
	BonusPoints  int      `json:"bonusPoints"`
	Matches      int      `json:"matches"`
	MaxCascade   int      `json:"maxCascade"`
	KingsCreated int      `json:"kingsCreated"`
	Moves        int      `json:"moves"`
	Achievements []string `json:"achievements"`
}

type ScoreEventRecord struct {
	Player      Player    `json:"player"`
	Type        string    `json:"type"`
	Points      int       `json:"points"`
	Multiplier  float64   `json:"multiplier"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ReasonFor names how a snapshot's game ended
func ReasonFor(s Snapshot) string {
	switch {
	case s.State == StateDraw:
		return ReasonDraw
	case s.WinCondition == nil:
		return ""
	case s.WinCondition.Type == WinRegular:
		return ReasonThreeInARow
	case len(s.WinCondition.Positions) == 0:
		return ReasonKingCount
	default:
		return ReasonKingRun
	}
}
