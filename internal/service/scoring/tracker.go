package scoring

import (
	"time"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

type EventType string

const (
	EventMatch       EventType = "match"
	EventAchievement EventType = "achievement"
	EventBonus       EventType = "bonus"
)

type ScoreEvent struct {
	Type        EventType     `json:"type"`
	Player      domain.Player `json:"player"`
	Points      int           `json:"points"`
	Multiplier  float64       `json:"multiplier"`
	Description string        `json:"description"`
	Timestamp   time.Time     `json:"timestamp"`
}

// PlayerScore is one side's running total for the current game
type PlayerScore struct {
	Player          domain.Player `json:"player"`
	CurrentScore    int           `json:"currentScore"`
	BasePoints      int           `json:"basePoints"`
	BonusPoints     int           `json:"bonusPoints"`
	TotalMatches    int           `json:"totalMatches"`
	CascadeCount    int           `json:"cascadeCount"`
	MaxCascadeLevel int           `json:"maxCascadeLevel"`
	KingsCreated    int           `json:"kingsCreated"`
	MovesUsed       int           `json:"movesUsed"`
	PerfectGame     bool          `json:"perfectGame"`
	Achievements    []Achievement `json:"achievements"`
	// most recent first, capped at ten
	RecentEvents []ScoreEvent `json:"recentEvents"`
}

// Tracker turns engine events into scores and achievements for both
// players. It implements domain.Listener. It is not safe for concurrent
// use; the owning game session serialises calls.
type Tracker struct {
	variant domain.Variant
	scores  map[domain.Player]*PlayerScore
	// every event of the game in order, for persistence
	history []ScoreEvent
	now     func() time.Time
}

func NewTracker(variant domain.Variant) *Tracker {
	t := &Tracker{variant: variant, now: time.Now}
	t.Reset(variant)
	return t
}

// Reset clears both players' scores and achievements for a new game
func (t *Tracker) Reset(variant domain.Variant) {
	t.variant = variant
	t.history = nil
	t.scores = map[domain.Player]*PlayerScore{
		domain.Red:    newPlayerScore(domain.Red),
		domain.Yellow: newPlayerScore(domain.Yellow),
	}
}

func newPlayerScore(p domain.Player) *PlayerScore {
	return &PlayerScore{
		Player:       p,
		Achievements: initialAchievements(),
		RecentEvents: []ScoreEvent{},
	}
}

func (t *Tracker) OnMatchFound(event domain.MatchEvent) {
	score, ok := t.scores[event.Player]
	if !ok {
		return
	}

	firstMatch := score.TotalMatches == 0

	total, base, multiplier := MatchPoints(event)
	score.CurrentScore += total
	score.BasePoints += base
	score.BonusPoints += total - base
	score.TotalMatches++
	if event.CascadeDepth > 0 {
		score.CascadeCount++
	}
	score.MaxCascadeLevel = max(score.MaxCascadeLevel, event.CascadeDepth)

	t.record(score, ScoreEvent{
		Type:        EventMatch,
		Player:      event.Player,
		Points:      total,
		Multiplier:  multiplier,
		Description: describeMatch(event),
	})

	if firstMatch {
		t.unlock(score, AchievementFirstMatch)
	}
	if event.CascadeDepth >= cascadeMasterDepth {
		t.unlock(score, AchievementCascadeMaster)
	}
	if event.Simultaneous >= comboMasterMatches {
		t.unlock(score, AchievementComboMaster)
	}
}

func (t *Tracker) OnKingConversion(event domain.KingConversionEvent) {
	if score, ok := t.scores[event.Player]; ok {
		score.KingsCreated++
	}
}

// RecordMove counts a move made by player and checks board-wide
// achievements against the position it produced.
func (t *Tracker) RecordMove(player domain.Player, snap domain.Snapshot) {
	if score, ok := t.scores[player]; ok {
		score.MovesUsed++
	}

	if t.variant != domain.VariantClassic {
		return
	}
	if snap.RedKings >= kingMakerKings {
		t.unlock(t.scores[domain.Red], AchievementKingMaker)
	}
	if snap.YellowKings >= kingMakerKings {
		t.unlock(t.scores[domain.Yellow], AchievementKingMaker)
	}
}

// Complete awards the end-of-game achievements. It does nothing while the
// game is still being played or ended in a draw.
func (t *Tracker) Complete(snap domain.Snapshot) {
	if snap.State != domain.StateWon || snap.WinCondition == nil {
		return
	}
	winner, ok := t.scores[snap.WinCondition.Player]
	if !ok {
		return
	}

	if t.variant == domain.VariantClassic && snap.WinCondition.Type == domain.WinKing {
		t.unlock(winner, AchievementUltimateVictory)
	}

	if winner.MovesUsed <= perfectGameMaxMoves {
		winner.PerfectGame = true
		t.unlock(winner, AchievementPerfectGame)
		t.bonus(winner, perfectGameBonus, "Perfect Game Bonus!")
	}
}

func (t *Tracker) unlock(score *PlayerScore, id AchievementID) {
	for i := range score.Achievements {
		a := &score.Achievements[i]
		if a.ID != id {
			continue
		}
		if a.Unlocked {
			return
		}

		now := t.now()
		a.Unlocked = true
		a.UnlockedAt = &now
		score.CurrentScore += a.Points
		score.BonusPoints += a.Points
		t.record(score, ScoreEvent{
			Type:        EventAchievement,
			Player:      score.Player,
			Points:      a.Points,
			Multiplier:  1,
			Description: "Achievement: " + a.Name,
		})
		return
	}
}

func (t *Tracker) bonus(score *PlayerScore, points int, description string) {
	score.CurrentScore += points
	score.BonusPoints += points
	t.record(score, ScoreEvent{
		Type:        EventBonus,
		Player:      score.Player,
		Points:      points,
		Multiplier:  1,
		Description: description,
	})
}

func (t *Tracker) record(score *PlayerScore, event ScoreEvent) {
	event.Timestamp = t.now()
	t.history = append(t.history, event)

	recent := make([]ScoreEvent, 0, maxRecentScoreEvents)
	recent = append(recent, event)
	for _, e := range score.RecentEvents {
		if len(recent) == maxRecentScoreEvents {
			break
		}
		recent = append(recent, e)
	}
	score.RecentEvents = recent
}

// Score returns a copy of player's current score
func (t *Tracker) Score(player domain.Player) PlayerScore {
	score, ok := t.scores[player]
	if !ok {
		return PlayerScore{Player: player}
	}
	out := *score
	out.Achievements = append([]Achievement(nil), score.Achievements...)
	out.RecentEvents = append([]ScoreEvent(nil), score.RecentEvents...)
	return out
}

// Scores returns both players' scores, Red first
func (t *Tracker) Scores() []PlayerScore {
	return []PlayerScore{t.Score(domain.Red), t.Score(domain.Yellow)}
}

// History returns every score event of the game, oldest first
func (t *Tracker) History() []ScoreEvent {
	return append([]ScoreEvent(nil), t.history...)
}
