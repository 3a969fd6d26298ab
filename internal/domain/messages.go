package domain

// message types a client may send over the game socket
const (
	MsgInit       = "init"
	MsgNewGame    = "new_game"
	MsgMakeMove   = "make_move"
	MsgResetGame  = "reset_game"
	MsgSetVariant = "set_variant"
	MsgSetMode    = "set_mode"
)

// message types pushed to clients
const (
	MsgGameStart      = "game_start"
	MsgMoveMade       = "move_made"
	MsgMatchFound     = "match_found"
	MsgKingConversion = "king_conversion"
	MsgGameState      = "game_state"
	MsgAIThinking     = "ai_thinking"
	MsgGameOver       = "game_over"
	MsgError          = "error"
)

type ClientMessage struct {
	Type       string `json:"type"`
	Token      string `json:"token,omitempty"`
	GameID     string `json:"gameId,omitempty"`
	Column     *int   `json:"column,omitempty"`
	Variant    string `json:"variant,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	GameID  string `json:"gameId,omitempty"`
	Message string `json:"message,omitempty"`

	Mode     *GameMode `json:"mode,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Board    *Board    `json:"board,omitempty"`

	Player Player `json:"player,omitempty"`
	Column *int   `json:"column,omitempty"`
	Row    *int   `json:"row,omitempty"`

	Match      *MatchEvent          `json:"match,omitempty"`
	Conversion *KingConversionEvent `json:"conversion,omitempty"`
	AIMove     *AIMove              `json:"aiMove,omitempty"`
	Difficulty Difficulty           `json:"difficulty,omitempty"`

	Winner Player `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
	// per-player score totals; the concrete type belongs to the scoring service
	Scores any `json:"scores,omitempty"`
}

func ErrorMessage(message string) ServerMessage {
	return ServerMessage{Type: MsgError, Message: message}
}
