package scoring

import "time"

type AchievementID string

const (
	AchievementFirstMatch      AchievementID = "first_match"
	AchievementCascadeMaster   AchievementID = "cascade_master"
	AchievementKingMaker       AchievementID = "king_maker"
	AchievementComboMaster     AchievementID = "combo_master"
	AchievementUltimateVictory AchievementID = "ultimate_victory"
	AchievementPerfectGame     AchievementID = "perfect_game"
)

const (
	cascadeMasterDepth   = 5
	kingMakerKings       = 5
	comboMasterMatches   = 3
	perfectGameMaxMoves  = 20
	perfectGameBonus     = 2000
	maxRecentScoreEvents = 10
)

type Achievement struct {
	ID          AchievementID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Points      int           `json:"points"`
	Unlocked    bool          `json:"unlocked"`
	UnlockedAt  *time.Time    `json:"unlockedAt,omitempty"`
}

func initialAchievements() []Achievement {
	return []Achievement{
		{ID: AchievementFirstMatch, Name: "First Blood", Description: "Make your first match", Points: 50},
		{ID: AchievementCascadeMaster, Name: "Cascade Master", Description: "Achieve 5+ cascades in a single turn", Points: 1000},
		{ID: AchievementKingMaker, Name: "King Maker", Description: "Hold 5 kings in Classic mode", Points: 750},
		{ID: AchievementComboMaster, Name: "Combo Master", Description: "Trigger 3 simultaneous matches", Points: 800},
		{ID: AchievementUltimateVictory, Name: "Ultimate Champion", Description: "Win with 3 matching kings", Points: 1500},
		{ID: AchievementPerfectGame, Name: "Perfectionist", Description: "Win in 20 moves or fewer", Points: 2000},
	}
}
