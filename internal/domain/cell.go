package domain

import (
	"encoding/json"
	"fmt"
)

type cellKind uint8

const (
	kindEmpty cellKind = iota
	kindPiece
	kindKing
)

// Cell is Empty, a plain Piece owned by a player, or a King owned by a player.
// The zero value is Empty. Cells are only built through the constructors so a
// non-empty cell always has a valid owner.
type Cell struct {
	kind   cellKind
	player Player
}

var Empty = Cell{}

func Piece(p Player) Cell {
	return Cell{kind: kindPiece, player: p}
}

func King(p Player) Cell {
	return Cell{kind: kindKing, player: p}
}

func (c Cell) IsEmpty() bool {
	return c.kind == kindEmpty
}

func (c Cell) IsKing() bool {
	return c.kind == kindKing
}

// Owner collapses plain and king cells to the player holding them.
func (c Cell) Owner() (Player, bool) {
	switch c.kind {
	case kindPiece, kindKing:
		return c.player, true
	default:
		return 0, false
	}
}

func (c Cell) OwnedBy(p Player) bool {
	owner, ok := c.Owner()
	return ok && owner == p
}

func (c Cell) String() string {
	switch c.kind {
	case kindPiece:
		return c.player.String()
	case kindKing:
		return c.player.String() + "-king"
	default:
		return ""
	}
}

// MarshalJSON keeps the wire format of the original client: null, "red",
// "yellow", "red-king" or "yellow-king".
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*c = Empty
		return nil
	}
	parsed, err := ParseCell(*s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseCell(s string) (Cell, error) {
	switch s {
	case "":
		return Empty, nil
	case "red":
		return Piece(Red), nil
	case "yellow":
		return Piece(Yellow), nil
	case "red-king":
		return King(Red), nil
	case "yellow-king":
		return King(Yellow), nil
	}
	return Empty, fmt.Errorf("unknown cell %q", s)
}
