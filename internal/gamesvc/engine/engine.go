package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

// ErrInvalidMove is the umbrella error for every rejected move. The wrapped
// variants tag the reason; a rejected move never mutates the game.
var (
	ErrInvalidMove  = errors.New("invalid move")
	ErrOutOfRange   = fmt.Errorf("%w: position out of range", ErrInvalidMove)
	ErrCellOccupied = fmt.Errorf("%w: cell occupied", ErrInvalidMove)
	ErrNotYourTurn  = fmt.Errorf("%w: not your turn", ErrInvalidMove)
)

// ApplyMove plays symbol at position, updating board, turn, status, winner
// and score in place. All preconditions are checked against the current
// record before anything is written. The caller owns the critical section
// around load, apply and persist.
func ApplyMove(g *models.Game, position int, symbol models.Cell) error {
	if position < 0 || position > 8 {
		return ErrOutOfRange
	}
	if g.Board[position] != models.Empty {
		return ErrCellOccupied
	}
	if g.CurrentTurn != symbol {
		return ErrNotYourTurn
	}

	g.Board[position] = symbol

	if w := Winner(g.Board); w != models.Empty {
		g.Status = models.StatusFinished
		g.Winner = string(w)
		if w == models.X {
			g.PlayerXScore++
		} else {
			g.PlayerOScore++
		}
		return nil
	}
	if IsDraw(g.Board) {
		g.Status = models.StatusFinished
		g.Winner = models.WinnerDraw
		return nil
	}

	g.CurrentTurn = symbol.Other()
	g.TurnStartedAt = time.Now()
	return nil
}

// ResetSimple starts a fresh round with both seats unchanged. Scores
// persist for the life of the game record and are never reset here.
// The caller must only invoke this on a finished game.
func ResetSimple(g *models.Game) {
	g.Board = models.Board{}
	g.CurrentTurn = models.X
	g.Status = models.StatusPlaying
	g.Winner = ""
	g.RematchRequestedBy = models.Empty
	g.TurnStartedAt = time.Now()
}

// ResetSideSwap starts a fresh round and exchanges the complete X and O
// seat tuples: name, token and score all change sides. Since X always opens
// a round, the swap hands the first-move advantage to the other player
// without a separate coin flip. Applying it twice restores the original
// seating.
func ResetSideSwap(g *models.Game) {
	g.PlayerXName, g.PlayerOName = g.PlayerOName, g.PlayerXName
	g.PlayerXToken, g.PlayerOToken = g.PlayerOToken, g.PlayerXToken
	g.PlayerXScore, g.PlayerOScore = g.PlayerOScore, g.PlayerXScore
	ResetSimple(g)
}
