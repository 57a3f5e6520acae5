package engine

import (
	"math/rand"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

var corners = [4]int{0, 2, 6, 8}

// Bot selects moves with a fixed priority cascade: win now, block the
// opponent, take the center, take a corner, take anything. Ties among open
// corners or leftover cells break uniformly at random.
type Bot struct {
	rng *rand.Rand
}

// NewBot builds a bot around the given random source. Production passes a
// time-seeded source; tests pass a fixed seed to pin the tie-breaks.
func NewBot(rng *rand.Rand) *Bot {
	return &Bot{rng: rng}
}

// ChooseMove returns the cell the bot plays. The board must have at least
// one empty cell; callers only invoke this while the game is in progress.
func (bt *Bot) ChooseMove(b models.Board, symbol models.Cell) int {
	// A winning move beats a block even when both are available.
	if pos := completingCell(b, symbol); pos >= 0 {
		return pos
	}
	if pos := completingCell(b, symbol.Other()); pos >= 0 {
		return pos
	}
	if b[4] == models.Empty {
		return 4
	}

	open := make([]int, 0, 4)
	for _, i := range corners {
		if b[i] == models.Empty {
			open = append(open, i)
		}
	}
	if len(open) > 0 {
		return open[bt.rng.Intn(len(open))]
	}

	open = open[:0]
	for i, c := range b {
		if c == models.Empty {
			open = append(open, i)
		}
	}
	return open[bt.rng.Intn(len(open))]
}

// completingCell finds the empty cell of a line where symbol already holds
// the other two, or -1 when no line can be completed.
func completingCell(b models.Board, symbol models.Cell) int {
	for _, ln := range winLines {
		count, empty := 0, -1
		for _, i := range ln {
			switch b[i] {
			case symbol:
				count++
			case models.Empty:
				empty = i
			}
		}
		if count == 2 && empty >= 0 {
			return empty
		}
	}
	return -1
}
