package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

// boardOf builds a board from a 9-rune string, '.' meaning empty.
func boardOf(t *testing.T, s string) models.Board {
	t.Helper()
	require.Len(t, s, 9)
	var b models.Board
	for i, r := range s {
		switch r {
		case 'X':
			b[i] = models.X
		case 'O':
			b[i] = models.O
		case '.':
			b[i] = models.Empty
		default:
			t.Fatalf("bad board rune %q", r)
		}
	}
	return b
}

func TestWinnerDetectsAllLines(t *testing.T) {
	cases := []struct {
		board string
		want  models.Cell
		cells []int
	}{
		{"XXX......", models.X, []int{0, 1, 2}},
		{"...OOO...", models.O, []int{3, 4, 5}},
		{"......XXX", models.X, []int{6, 7, 8}},
		{"X..X..X..", models.X, []int{0, 3, 6}},
		{".O..O..O.", models.O, []int{1, 4, 7}},
		{"..X..X..X", models.X, []int{2, 5, 8}},
		{"X...X...X", models.X, []int{0, 4, 8}},
		{"..O.O.O..", models.O, []int{2, 4, 6}},
	}
	for _, tc := range cases {
		b := boardOf(t, tc.board)
		assert.Equal(t, tc.want, Winner(b), "board %s", tc.board)
		assert.Equal(t, tc.cells, WinningCells(b), "board %s", tc.board)
	}
}

func TestWinnerNone(t *testing.T) {
	assert.Equal(t, models.Empty, Winner(models.Board{}))
	assert.Nil(t, WinningCells(models.Board{}))

	b := boardOf(t, "XOXO.XOXO")
	assert.Equal(t, models.Empty, Winner(b))
	assert.Nil(t, WinningCells(b))
}

func TestWinnerIgnoresLinesWithEmptyCell(t *testing.T) {
	// Two in a row with the third cell open is not a win.
	assert.Equal(t, models.Empty, Winner(boardOf(t, "XX.......")))
	assert.Equal(t, models.Empty, Winner(boardOf(t, "O...O....")))
}

func TestIsDraw(t *testing.T) {
	assert.True(t, IsDraw(boardOf(t, "XOXOOXOXO")))

	// Open cells mean no draw yet.
	assert.False(t, IsDraw(boardOf(t, "XOXO.XOXO")))
	assert.False(t, IsDraw(models.Board{}))
}

func TestIsDrawFullBoardWithWinnerIsNotADraw(t *testing.T) {
	// X holds the left column on a completely full board. The winner check
	// runs first and takes precedence.
	b := boardOf(t, "XOOXXOXOX")
	require.Equal(t, models.X, Winner(b))
	assert.False(t, IsDraw(b))
}
