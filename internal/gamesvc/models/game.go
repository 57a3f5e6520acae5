package models

import (
	"time"
)

const (
	ModeBot    = "bot"
	ModeOnline = "online"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// WinnerDraw marks a finished round without a decisive outcome. The other
// winner values are the Cell strings "X" and "O"; empty means still open.
const WinnerDraw = "draw"

// BotName is the display name reserved for the bot seat.
const BotName = "Bot"

// TimerSettings are the allowed per-turn countdown options. All but "off"
// are second counts. The countdown is advisory; the engine never rejects a
// late move.
var TimerSettings = map[string]bool{
	"off": true,
	"5":   true,
	"10":  true,
	"30":  true,
}

type Game struct {
	ID           int64  `json:"id"` // Primary key
	Code         string `json:"code"`
	Board        Board  `json:"board"`
	Mode         string `json:"mode"`
	TimerSetting string `json:"timer_setting"`

	// Player X (creator/host). Tokens are the opaque credentials handed
	// out at create/join and are never exposed in public payloads.
	PlayerXToken string `json:"-"`
	PlayerXName  string `json:"player_x_name"`
	PlayerXScore int    `json:"player_x_score"`

	// Player O (joiner or bot). Name and token stay empty while an online
	// game is waiting for a second player.
	PlayerOToken string `json:"-"`
	PlayerOName  string `json:"player_o_name"`
	PlayerOScore int    `json:"player_o_score"`

	CurrentTurn        Cell      `json:"current_turn"`
	Status             string    `json:"status"`
	Winner             string    `json:"winner"`
	TurnStartedAt      time.Time `json:"turn_started_at"`
	RematchRequestedBy Cell      `json:"rematch_requested_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SeatForToken resolves which symbol a player token controls, or Empty when
// the token matches neither seat.
func (g *Game) SeatForToken(token string) Cell {
	if token == "" {
		return Empty
	}
	switch token {
	case g.PlayerXToken:
		return X
	case g.PlayerOToken:
		return O
	}
	return Empty
}

// SeatName returns the display name holding the given symbol.
func (g *Game) SeatName(seat Cell) string {
	if seat == X {
		return g.PlayerXName
	}
	return g.PlayerOName
}

// BotSeat returns the symbol the bot holds in a bot game, or Empty. The bot
// normally sits at O but ends up at X after a side-swapped rematch.
func (g *Game) BotSeat() Cell {
	if g.Mode != ModeBot {
		return Empty
	}
	if g.PlayerXName == BotName {
		return X
	}
	if g.PlayerOName == BotName {
		return O
	}
	return Empty
}
