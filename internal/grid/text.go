package grid

import (
	"fmt"
	"strings"
)

// Render draws the grid one row per line, 'O' alive and '.' dead.
func Render(g Grid) string {
	var b strings.Builder
	b.Grow(Size + Rows)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if g.At(row, col) {
				b.WriteByte('O')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseText reads a plaintext pattern (".cells" style). Lines starting with
// '!' are comments. Patterns smaller than the board are placed at the origin.
func ParseText(s string) (Grid, error) {
	var g Grid
	row := 0
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimRight(line, " \t")
		if row >= Rows {
			if line == "" {
				continue
			}
			return g, fmt.Errorf("%w: more than %d rows", ErrBadLength, Rows)
		}
		if len(line) > Cols {
			return g, fmt.Errorf("%w: row %d has %d columns, max %d", ErrBadLength, row, len(line), Cols)
		}
		for col, ch := range line {
			switch ch {
			case 'O', 'o', '*', '1', 'X', 'x':
				g.Set(row, col, true)
			case '.', '0', ' ', '_':
			default:
				return g, fmt.Errorf("%w: row %d col %d has %q", ErrNotBinary, row, col, ch)
			}
		}
		row++
	}
	return g, nil
}
