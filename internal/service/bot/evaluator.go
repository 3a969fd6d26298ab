package bot

import (
	"sort"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

const (
	// Score priorities (from highest to lowest)
	SCORE_WIN_NOW   = 1000 // Bot can win immediately
	SCORE_BLOCK_WIN = 500  // Block opponent's immediate win

	SCORE_OPEN_RUN    = 10 // per piece of a run with room to grow
	SCORE_LOOSE_RUN   = 3  // per piece of a run with two open ends
	SCORE_CENTER      = 5
	SCORE_NEAR_CENTER = 3

	// applied when the move hands the opponent a winning column
	PENALTY_SETS_UP_OPPONENT = 200
)

var directions = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal \
	{1, -1}, // diagonal /
}

// Evaluation is the score of one legal column for the acting player.
type Evaluation struct {
	Column   int             `json:"column"`
	Score    int             `json:"score"`
	MoveType domain.MoveType `json:"moveType"`
}

// wouldWin reports whether player dropping into column completes a run,
// using the same match rule as the engine.
func wouldWin(board domain.Board, column int, player domain.Player) bool {
	next, row, err := board.Drop(column, player)
	if err != nil {
		return false
	}
	return domain.FindMatchFrom(next, domain.Position{Row: row, Col: column}, player) != nil
}

// EvaluateColumn scores a drop into column for botPlayer. Winning beats
// blocking, and blocking beats any positional score.
func EvaluateColumn(board domain.Board, column int, botPlayer domain.Player) Evaluation {
	opponent := botPlayer.Opponent()

	if wouldWin(board, column, botPlayer) {
		return Evaluation{Column: column, Score: SCORE_WIN_NOW, MoveType: domain.MoveWin}
	}
	if wouldWin(board, column, opponent) {
		return Evaluation{Column: column, Score: SCORE_BLOCK_WIN, MoveType: domain.MoveBlock}
	}

	eval := Evaluation{Column: column, MoveType: domain.MoveStrategic}
	row, ok := board.LowestEmptyRow(column)
	if !ok {
		return eval
	}

	eval.Score = evaluatePosition(board, row, column, botPlayer)

	// one ply of lookahead: does this move open a winning column for the opponent?
	after := board.With(domain.Position{Row: row, Col: column}, domain.Piece(botPlayer))
	for col := 0; col < domain.Columns; col++ {
		if wouldWin(after, col, opponent) {
			eval.Score -= PENALTY_SETS_UP_OPPONENT
			break
		}
	}

	return eval
}

// evaluatePosition scores the empty landing cell (row, col) for player
func evaluatePosition(board domain.Board, row, col int, player domain.Player) int {
	score := 0

	for _, dir := range directions {
		dRow, dCol := dir[0], dir[1]
		count := 1
		empty := 0
		blocked := false

		// Check forward direction
		for i := 1; i < domain.ToMatch; i++ {
			pos := domain.Position{Row: row + i*dRow, Col: col + i*dCol}
			if !pos.InBounds() {
				blocked = true
				break
			}
			cell := board.At(pos)
			if cell.OwnedBy(player) {
				count++
			} else if cell.IsEmpty() {
				empty++
				break
			} else {
				blocked = true
				break
			}
		}

		// Check backward direction only when the forward side is open
		if !blocked {
			for i := 1; i < domain.ToMatch; i++ {
				pos := domain.Position{Row: row - i*dRow, Col: col - i*dCol}
				if !pos.InBounds() {
					break
				}
				cell := board.At(pos)
				if cell.OwnedBy(player) {
					count++
				} else {
					if cell.IsEmpty() {
						empty++
					}
					break
				}
			}
		}

		switch {
		case count >= 2 && empty > 0:
			score += count * SCORE_OPEN_RUN
		case count >= 1 && empty >= 2:
			score += count * SCORE_LOOSE_RUN
		}
	}

	center := domain.Columns / 2
	switch col {
	case center:
		score += SCORE_CENTER
	case center - 1, center + 1:
		score += SCORE_NEAR_CENTER
	}

	return score
}

// EvaluateAllMoves scores every legal column, best first. Equal scores keep
// column order.
func EvaluateAllMoves(board domain.Board, botPlayer domain.Player) []Evaluation {
	validColumns := board.ValidMoves()
	evals := make([]Evaluation, 0, len(validColumns))
	for _, col := range validColumns {
		evals = append(evals, EvaluateColumn(board, col, botPlayer))
	}

	sort.SliceStable(evals, func(i, j int) bool {
		return evals[i].Score > evals[j].Score
	})
	return evals
}
