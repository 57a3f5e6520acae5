package engine

import (
	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

// winLines are the 8 winning triples: rows, then columns, then diagonals.
// A valid board has at most one winner, but the scan order is fixed so
// WinningCells stays deterministic.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the symbol occupying a complete line, or models.Empty.
func Winner(b models.Board) models.Cell {
	for _, ln := range winLines {
		if b[ln[0]] != models.Empty && b[ln[0]] == b[ln[1]] && b[ln[1]] == b[ln[2]] {
			return b[ln[0]]
		}
	}
	return models.Empty
}

// WinningCells returns the cell indexes of the first complete line found,
// or nil when the board has no winner.
func WinningCells(b models.Board) []int {
	for _, ln := range winLines {
		if b[ln[0]] != models.Empty && b[ln[0]] == b[ln[1]] && b[ln[1]] == b[ln[2]] {
			return []int{ln[0], ln[1], ln[2]}
		}
	}
	return nil
}

// IsDraw reports a full board with no winner. A full board that still holds
// a complete line is a win, never a draw.
func IsDraw(b models.Board) bool {
	if Winner(b) != models.Empty {
		return false
	}
	return b.IsFull()
}
