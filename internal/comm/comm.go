package comm

import (
	"encoding/json"
	"time"

	"github.com/gridline/tictac-services/internal/gamesvc/engine"
	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

// WSMessage is the envelope exchanged between web clients, the socket
// service and the game service. Direct replies carry SocketId; room-scoped
// events carry Room (the game code) plus the acting socket in Exclude so
// the sender never receives its own broadcast.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "make-move", "game-updated"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
	Room     string          `json:"room,omitempty"`
	Exclude  string          `json:"exclude,omitempty"`
}

// GamePayload is the public projection of a game: identity tokens are
// stripped and the winning line is attached.
type GamePayload struct {
	ID                 int64        `json:"id"`
	Code               string       `json:"code"`
	Board              models.Board `json:"board"`
	Mode               string       `json:"mode"`
	TimerSetting       string       `json:"timer_setting"`
	PlayerXName        string       `json:"player_x_name"`
	PlayerXScore       int          `json:"player_x_score"`
	PlayerOName        *string      `json:"player_o_name"`
	PlayerOScore       int          `json:"player_o_score"`
	CurrentTurn        string       `json:"current_turn"`
	Status             string       `json:"status"`
	Winner             *string      `json:"winner"`
	TurnStartedAt      *time.Time   `json:"turn_started_at"`
	WinningCells       []int        `json:"winning_cells"`
	RematchRequestedBy *string      `json:"rematch_requested_by"`
}

// MessagePayload is the wire form of one chat line.
type MessagePayload struct {
	ID           int64     `json:"id"`
	PlayerName   string    `json:"player_name"`
	PlayerSymbol *string   `json:"player_symbol"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	IsSystem     bool      `json:"is_system"`
}

// SeatData answers create and join requests: the public game plus the
// caller's seat credentials.
type SeatData struct {
	Game   GamePayload `json:"game"`
	Symbol string      `json:"symbol"`
	Token  string      `json:"token"`
}

// GameData is the full snapshot a client renders from.
type GameData struct {
	Game     GamePayload      `json:"game"`
	Messages []MessagePayload `json:"messages"`
}

// PlayerEventData rides the player-joined and player-left events.
type PlayerEventData struct {
	PlayerName string       `json:"player_name"`
	Game       *GamePayload `json:"game,omitempty"`
}

type ErrorData struct {
	Error string `json:"error"`
}

type AckData struct {
	OK bool `json:"ok"`
}

// ToGamePayload builds the public projection of g.
func ToGamePayload(g *models.Game) GamePayload {
	return GamePayload{
		ID:                 g.ID,
		Code:               g.Code,
		Board:              g.Board,
		Mode:               g.Mode,
		TimerSetting:       g.TimerSetting,
		PlayerXName:        g.PlayerXName,
		PlayerXScore:       g.PlayerXScore,
		PlayerOName:        nullableString(g.PlayerOName),
		PlayerOScore:       g.PlayerOScore,
		CurrentTurn:        string(g.CurrentTurn),
		Status:             g.Status,
		Winner:             nullableString(g.Winner),
		TurnStartedAt:      nullableTime(g.TurnStartedAt),
		WinningCells:       engine.WinningCells(g.Board),
		RematchRequestedBy: nullableString(string(g.RematchRequestedBy)),
	}
}

func ToMessagePayload(m *models.GameMessage) MessagePayload {
	return MessagePayload{
		ID:           m.ID,
		PlayerName:   m.PlayerName,
		PlayerSymbol: nullableString(string(m.PlayerSymbol)),
		Content:      m.Content,
		CreatedAt:    m.CreatedAt,
		IsSystem:     m.IsSystem,
	}
}

func ToMessagePayloads(ms []*models.GameMessage) []MessagePayload {
	out := make([]MessagePayload, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMessagePayload(m))
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
