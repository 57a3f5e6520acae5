package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

func testBot(seed int64) *Bot {
	return NewBot(rand.New(rand.NewSource(seed)))
}

func TestBotTakesWinOverBlock(t *testing.T) {
	// O can win at 2 while X threatens at 4; the win must be taken.
	b := boardOf(t, "OO.X.X...")
	assert.Equal(t, 2, testBot(1).ChooseMove(b, models.O))
}

func TestBotBlocksOpponent(t *testing.T) {
	b := boardOf(t, "XX.O.....")
	assert.Equal(t, 2, testBot(1).ChooseMove(b, models.O))
}

func TestBotTakesCenterOnEmptyBoard(t *testing.T) {
	// Center is deterministic, whatever the seed.
	for seed := int64(0); seed < 5; seed++ {
		assert.Equal(t, 4, testBot(seed).ChooseMove(models.Board{}, models.O))
	}
}

func TestBotPrefersCorners(t *testing.T) {
	// No win, no block, center taken: the bot must pick an open corner.
	b := boardOf(t, "....X....")
	for seed := int64(0); seed < 10; seed++ {
		pos := testBot(seed).ChooseMove(b, models.O)
		assert.Contains(t, []int{0, 2, 6, 8}, pos, "seed %d", seed)
	}
}

func TestBotFallsBackToAnyEmptyCell(t *testing.T) {
	// Corners and center are all taken, no line can be completed by either
	// side, so only the edges remain.
	b := boardOf(t, "XOX.O.OXO")
	require.Equal(t, models.Empty, Winner(b))
	for seed := int64(0); seed < 10; seed++ {
		pos := testBot(seed).ChooseMove(b, models.X)
		assert.Contains(t, []int{3, 5}, pos, "seed %d", seed)
	}
}

func TestBotTakesLastCell(t *testing.T) {
	b := boardOf(t, "XOXOOXXX.")
	// Cell 8 is the only open cell; it also blocks X's bottom row, so the
	// cascade resolves it early either way.
	if got := testBot(3).ChooseMove(b, models.O); got != 8 {
		t.Fatalf("expected last open cell 8, got %d", got)
	}
}

func TestBotAsXBlocksO(t *testing.T) {
	b := boardOf(t, ".OO.X....")
	assert.Equal(t, 0, testBot(1).ChooseMove(b, models.X))
}
