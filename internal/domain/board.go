package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Position is a (row, column) pair; row 0 is the top of the board.
type Position struct {
	Row int
	Col int
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Rows && p.Col >= 0 && p.Col < Columns
}

// MarshalJSON encodes a position as [row, col]
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Row, p.Col})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Row, p.Col = pair[0], pair[1]
	return nil
}

// Board is a value type: assigning or passing it copies the grid, so a
// snapshot handed to a reader can never change underneath it.
type Board [Rows][Columns]Cell

func NewBoard() Board {
	return Board{}
}

func (b Board) At(pos Position) Cell {
	return b[pos.Row][pos.Col]
}

// With returns a copy of the board with one cell replaced
func (b Board) With(pos Position, c Cell) Board {
	b[pos.Row][pos.Col] = c
	return b
}

func IsValidColumn(column int) bool {
	return column >= 0 && column < Columns
}

// LowestEmptyRow scans from the bottom up, the same way a dropped disk falls.
func (b Board) LowestEmptyRow(column int) (int, bool) {
	if !IsValidColumn(column) {
		return -1, false
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][column].IsEmpty() {
			return row, true
		}
	}
	return -1, false
}

// here board[0] represents the top row, so a column is full once its top cell is taken
func (b Board) IsColumnFull(column int) bool {
	return !b[0][column].IsEmpty()
}

func (b Board) IsFull() bool {
	for c := 0; c < Columns; c++ {
		if b[0][c].IsEmpty() {
			return false
		}
	}
	return true
}

func (b Board) CountKings(p Player) int {
	count := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if b[row][col].IsKing() && b[row][col].OwnedBy(p) {
				count++
			}
		}
	}
	return count
}

func (b Board) CountPieces() int {
	count := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if !b[row][col].IsEmpty() {
				count++
			}
		}
	}
	return count
}

// Drop places a plain piece for player in column and returns the new board
// and the landing row.
func (b Board) Drop(column int, player Player) (Board, int, error) {
	if !IsValidColumn(column) {
		return b, -1, ErrInvalidColumn
	}
	row, ok := b.LowestEmptyRow(column)
	if !ok {
		return b, -1, ErrColumnFull
	}
	return b.With(Position{Row: row, Col: column}, Piece(player)), row, nil
}

// this is a helper function that is used by the bot
func (b Board) ValidMoves() []int {
	validMoves := []int{}
	for col := 0; col < Columns; col++ {
		if !b.IsColumnFull(col) {
			validMoves = append(validMoves, col)
		}
	}
	return validMoves
}

// IsSettled reports whether every column satisfies the gravity invariant
func (b Board) IsSettled() bool {
	for col := 0; col < Columns; col++ {
		seenPiece := false
		for row := 0; row < Rows; row++ {
			if !b[row][col].IsEmpty() {
				seenPiece = true
			} else if seenPiece {
				return false
			}
		}
	}
	return true
}

// this counts the number of cells owned by player in a specific direction
func (b Board) CountInDirection(pos Position, deltaRow, deltaCol int, player Player) int {
	count := 0
	r, c := pos.Row+deltaRow, pos.Col+deltaCol
	for r >= 0 && r < Rows && c >= 0 && c < Columns && b[r][c].OwnedBy(player) {
		count++
		r += deltaRow
		c += deltaCol
	}
	return count
}

func (b Board) MarshalJSON() ([]byte, error) {
	rows := make([][]Cell, Rows)
	for r := range rows {
		rows[r] = b[r][:]
	}
	return json.Marshal(rows)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]Cell
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != Rows {
		return fmt.Errorf("board must have %d rows, got %d", Rows, len(rows))
	}
	var out Board
	for r := range rows {
		if len(rows[r]) != Columns {
			return fmt.Errorf("row %d must have %d cells, got %d", r, Columns, len(rows[r]))
		}
		copy(out[r][:], rows[r])
	}
	*b = out
	return nil
}

// ParseBoard reads a board from text rows, top row first. '.' is empty,
// 'r'/'y' are plain pieces and 'R'/'Y' are kings.
func ParseBoard(lines ...string) (Board, error) {
	var b Board
	if len(lines) != Rows {
		return b, fmt.Errorf("board must have %d rows, got %d", Rows, len(lines))
	}
	for r, line := range lines {
		line = strings.ReplaceAll(line, " ", "")
		if len(line) != Columns {
			return b, fmt.Errorf("row %d must have %d cells, got %q", r, Columns, line)
		}
		for c, ch := range line {
			switch ch {
			case '.':
				b[r][c] = Empty
			case 'r':
				b[r][c] = Piece(Red)
			case 'y':
				b[r][c] = Piece(Yellow)
			case 'R':
				b[r][c] = King(Red)
			case 'Y':
				b[r][c] = King(Yellow)
			default:
				return b, fmt.Errorf("unknown cell %q at row %d", ch, r)
			}
		}
	}
	return b, nil
}

func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			cell := b[r][c]
			owner, ok := cell.Owner()
			switch {
			case !ok:
				sb.WriteByte('.')
			case owner == Red && cell.IsKing():
				sb.WriteByte('R')
			case owner == Red:
				sb.WriteByte('r')
			case cell.IsKing():
				sb.WriteByte('Y')
			default:
				sb.WriteByte('y')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
