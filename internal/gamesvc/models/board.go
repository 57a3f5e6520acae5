package models

// Cell is one mark on the board.
type Cell string

const (
	Empty Cell = ""
	X     Cell = "X"
	O     Cell = "O"
)

// Other returns the opposing symbol. Empty maps to Empty.
func (c Cell) Other() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	}
	return Empty
}

// Board is the 3x3 grid stored row-major, cells indexed 0-8.
// The zero value is an empty board.
type Board [9]Cell

// IsFull reports whether no empty cell remains.
func (b Board) IsFull() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}
