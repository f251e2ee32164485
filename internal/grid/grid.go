package grid

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	Rows = 32
	Cols = 32
	Size = Rows * Cols

	// WordBits matches the contract's uint256 storage word.
	WordBits = 256
	Words    = Size / WordBits
)

var (
	ErrBadLength = errors.New("grid: wrong number of cells")
	ErrNotBinary = errors.New("grid: cell value must be 0 or 1")
	ErrWordRange = errors.New("grid: packed word out of uint256 range")
)

// Grid holds one simulation generation in row-major order: index = col + row*Cols.
type Grid [Size]bool

// Index maps (row, col) to a linear cell index, wrapping on the torus.
func Index(row, col int) int {
	row = ((row % Rows) + Rows) % Rows
	col = ((col % Cols) + Cols) % Cols
	return (col + row*Cols) % Size
}

func (g *Grid) Set(row, col int, alive bool) { g[Index(row, col)] = alive }

func (g Grid) At(row, col int) bool { return g[Index(row, col)] }

func (g Grid) Alive() int {
	n := 0
	for _, c := range g {
		if c {
			n++
		}
	}
	return n
}

// Ints returns the wire form: a flat slice of 0/1 values.
func (g Grid) Ints() []int {
	out := make([]int, Size)
	for i, c := range g {
		if c {
			out[i] = 1
		}
	}
	return out
}

// ParseCells builds a Grid from its wire form.
func ParseCells(vals []int) (Grid, error) {
	var g Grid
	if len(vals) != Size {
		return g, fmt.Errorf("%w: got %d want %d", ErrBadLength, len(vals), Size)
	}
	for i, v := range vals {
		switch v {
		case 0:
		case 1:
			g[i] = true
		default:
			return g, fmt.Errorf("%w: cells[%d]=%d", ErrNotBinary, i, v)
		}
	}
	return g, nil
}

func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Ints())
}

func (g *Grid) UnmarshalJSON(b []byte) error {
	var vals []int
	if err := json.Unmarshal(b, &vals); err != nil {
		return fmt.Errorf("%w: %v", ErrNotBinary, err)
	}
	parsed, err := ParseCells(vals)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
