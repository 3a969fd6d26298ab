package domain

// directions scanned for runs, in order: horizontal, vertical, diagonal \, diagonal /
var directions = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// MatchGroup is one run found by a full-board scan.
type MatchGroup struct {
	Player    Player
	Positions []Position
	IsKing    bool
}

// FindMatchFrom looks for ToMatch cells in a row through pos owned by player,
// counting plain pieces and kings alike. The seed is extended forward up to
// two cells, then backward up to two cells, and the first three positions of
// that run are returned. Longer runs are truncated; the leftover cells stay on
// the board and may match again later.
func FindMatchFrom(b Board, pos Position, player Player) []Position {
	return findRun(b, pos, func(c Cell) bool { return c.OwnedBy(player) })
}

// FindKingMatchFrom is FindMatchFrom restricted to king cells.
func FindKingMatchFrom(b Board, pos Position, player Player) []Position {
	return findRun(b, pos, func(c Cell) bool { return c.IsKing() && c.OwnedBy(player) })
}

func findRun(b Board, pos Position, matches func(Cell) bool) []Position {
	if !pos.InBounds() || !matches(b.At(pos)) {
		return nil
	}

	for _, dir := range directions {
		deltaRow, deltaCol := dir[0], dir[1]
		positions := []Position{pos}

		// Check forward direction
		for i := 1; i < ToMatch; i++ {
			next := Position{Row: pos.Row + i*deltaRow, Col: pos.Col + i*deltaCol}
			if !next.InBounds() || !matches(b.At(next)) {
				break
			}
			positions = append(positions, next)
		}

		// Check backward direction, prepending
		for i := 1; i < ToMatch; i++ {
			prev := Position{Row: pos.Row - i*deltaRow, Col: pos.Col - i*deltaCol}
			if !prev.InBounds() || !matches(b.At(prev)) {
				break
			}
			positions = append([]Position{prev}, positions...)
		}

		if len(positions) >= ToMatch {
			return positions[:ToMatch]
		}
	}

	return nil
}

// FindAllMatches scans the board row by row and returns every
// non-overlapping run. A cell claimed by an earlier group is never reused in
// the same scan. Runs made only of kings are not returned: those are winning
// lines, not conversions.
func FindAllMatches(b Board) []MatchGroup {
	var claimed [Rows][Columns]bool
	var groups []MatchGroup

	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if claimed[row][col] {
				continue
			}
			owner, ok := b[row][col].Owner()
			if !ok {
				continue
			}

			positions := FindMatchFrom(b, Position{Row: row, Col: col}, owner)
			if positions == nil {
				continue
			}

			overlaps := false
			kings := 0
			for _, p := range positions {
				if claimed[p.Row][p.Col] {
					overlaps = true
					break
				}
				if b.At(p).IsKing() {
					kings++
				}
			}
			if overlaps || kings == len(positions) {
				continue
			}

			for _, p := range positions {
				claimed[p.Row][p.Col] = true
			}
			groups = append(groups, MatchGroup{
				Player:    owner,
				Positions: positions,
				IsKing:    kings > 0,
			})
		}
	}

	return groups
}

// FindKingRun returns the first run of kings owned by player, scanning row by row.
func FindKingRun(b Board, player Player) []Position {
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if positions := FindKingMatchFrom(b, Position{Row: row, Col: col}, player); positions != nil {
				return positions
			}
		}
	}
	return nil
}

// EvaluateConnect3 decides the outcome after player dropped a piece at pos.
// The returned state is StatePlaying when the game goes on.
func EvaluateConnect3(b Board, pos Position, player Player) (GameState, *WinCondition) {
	if positions := FindMatchFrom(b, pos, player); positions != nil {
		return StateWon, &WinCondition{Player: player, Positions: positions, Type: WinRegular}
	}
	if b.IsFull() {
		return StateDraw, nil
	}
	return StatePlaying, nil
}

// EvaluateClassic decides the outcome of a settled Classic board. A king run
// for the mover is checked before one for the opponent; on a full board the
// side with more kings wins.
func EvaluateClassic(b Board, mover Player) (GameState, *WinCondition) {
	for _, p := range []Player{mover, mover.Opponent()} {
		if positions := FindKingRun(b, p); positions != nil {
			return StateWon, &WinCondition{Player: p, Positions: positions, Type: WinKing}
		}
	}

	if !b.IsFull() {
		return StatePlaying, nil
	}

	red, yellow := b.CountKings(Red), b.CountKings(Yellow)
	switch {
	case red > yellow:
		return StateWon, &WinCondition{Player: Red, Positions: []Position{}, Type: WinKing}
	case yellow > red:
		return StateWon, &WinCondition{Player: Yellow, Positions: []Position{}, Type: WinKing}
	default:
		return StateDraw, nil
	}
}
