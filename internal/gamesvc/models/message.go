package models

import "time"

// GameMessage is one chat line in a game, append-only. System messages
// (join notifications and the like) have no symbol and set IsSystem.
type GameMessage struct {
	ID           int64     `json:"id"`
	GameID       int64     `json:"game_id"`
	PlayerName   string    `json:"player_name"`
	PlayerSymbol Cell      `json:"player_symbol"` // Empty for system messages
	Content      string    `json:"content"`
	IsSystem     bool      `json:"is_system"`
	CreatedAt    time.Time `json:"created_at"`
}
