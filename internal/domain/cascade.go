package domain

// MatchEvent is emitted once per resolved match. CascadeDepth is 0 for the
// match made directly by the move and grows by one per cascade round.
// Simultaneous is the number of groups resolved in the same round.
type MatchEvent struct {
	Positions    []Position `json:"positions"`
	Player       Player     `json:"player"`
	IsKing       bool       `json:"isKing"`
	CascadeDepth int        `json:"cascadeDepth"`
	Simultaneous int        `json:"simultaneous"`
}

func (e MatchEvent) Size() int {
	return len(e.Positions)
}

// KingConversionEvent is emitted once per promotion, for animation only.
type KingConversionEvent struct {
	Positions []Position `json:"positions"`
	Player    Player     `json:"player"`
	KingAt    Position   `json:"kingAt"`
}

// Round is one step of a resolution: the board as it stands once the round's
// kings are placed, and what happened in it.
type Round struct {
	Depth        int                   `json:"depth"`
	GravityMoved bool                  `json:"gravityMoved"`
	Board        Board                 `json:"board"`
	Matches      []MatchEvent          `json:"matches"`
	Conversions  []KingConversionEvent `json:"conversions"`
}

// maxCascadeRounds bounds the loop. Every round removes pieces, so a real
// board settles long before this.
const maxCascadeRounds = Rows * Columns

// ApplyGravity compacts every column downward, keeping the relative order of
// the pieces in it. changed is false when the board was already settled.
func ApplyGravity(b Board) (Board, bool) {
	changed := false
	for col := 0; col < Columns; col++ {
		stack := make([]Cell, 0, Rows)
		for row := 0; row < Rows; row++ {
			if !b[row][col].IsEmpty() {
				stack = append(stack, b[row][col])
			}
		}

		// the column becomes len(stack) pieces sitting on the bottom row
		offset := Rows - len(stack)
		for row := 0; row < Rows; row++ {
			next := Empty
			if row >= offset {
				next = stack[row-offset]
			}
			if b[row][col] != next {
				changed = true
			}
			b[row][col] = next
		}
	}
	return b, changed
}

// Promote clears a matched group and puts one king for its owner in the
// matched column with the deepest landing row. Ties keep the column that
// appears first in the group.
func Promote(b Board, group MatchGroup) (Board, KingConversionEvent) {
	for _, p := range group.Positions {
		b[p.Row][p.Col] = Empty
	}

	kingAt := Position{Row: -1, Col: -1}
	seen := make(map[int]bool, len(group.Positions))
	for _, p := range group.Positions {
		if seen[p.Col] {
			continue
		}
		seen[p.Col] = true

		row, ok := b.LowestEmptyRow(p.Col)
		if !ok {
			continue
		}
		if row > kingAt.Row {
			kingAt = Position{Row: row, Col: p.Col}
		}
	}

	b[kingAt.Row][kingAt.Col] = King(group.Player)

	positions := make([]Position, len(group.Positions))
	copy(positions, group.Positions)

	return b, KingConversionEvent{
		Positions: positions,
		Player:    group.Player,
		KingAt:    kingAt,
	}
}

// PromoteMove resolves the match made directly by a move as round 0.
func PromoteMove(b Board, positions []Position, player Player) (Board, Round) {
	group := MatchGroup{Player: player, Positions: positions}
	for _, p := range positions {
		if b.At(p).IsKing() {
			group.IsKing = true
		}
	}

	next, conversion := Promote(b, group)
	return next, Round{
		Depth: 0,
		Board: next,
		Matches: []MatchEvent{{
			Positions:    conversion.Positions,
			Player:       player,
			IsKing:       group.IsKing,
			CascadeDepth: 0,
			Simultaneous: 1,
		}},
		Conversions: []KingConversionEvent{conversion},
	}
}

// ResolveCascade repeatedly settles the board and converts every match it
// finds until a gravity pass leaves no match behind. Rounds are numbered
// from startDepth. The returned board is settled.
func ResolveCascade(b Board, startDepth int) (Board, []Round) {
	var rounds []Round
	depth := startDepth

	for i := 0; i < maxCascadeRounds; i++ {
		settled, moved := ApplyGravity(b)
		b = settled

		groups := FindAllMatches(b)
		if len(groups) == 0 {
			break
		}

		round := Round{Depth: depth, GravityMoved: moved}
		for _, group := range groups {
			var conversion KingConversionEvent
			b, conversion = Promote(b, group)
			round.Matches = append(round.Matches, MatchEvent{
				Positions:    conversion.Positions,
				Player:       group.Player,
				IsKing:       group.IsKing,
				CascadeDepth: depth,
				Simultaneous: len(groups),
			})
			round.Conversions = append(round.Conversions, conversion)
		}
		round.Board = b
		rounds = append(rounds, round)
		depth++
	}

	b, _ = ApplyGravity(b)
	return b, rounds
}
