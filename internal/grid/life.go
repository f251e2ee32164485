package grid

// Next computes one B3/S23 generation on the wrapped 32x32 board.
// The contract is authoritative; this is used for operator previews.
func Next(g Grid) Grid {
	var out Grid
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			n := neighbours(g, row, col)
			alive := g.At(row, col)
			switch {
			case alive && (n == 2 || n == 3):
				out.Set(row, col, true)
			case !alive && n == 3:
				out.Set(row, col, true)
			}
		}
	}
	return out
}

func neighbours(g Grid, row, col int) int {
	n := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if g.At(row+dr, col+dc) {
				n++
			}
		}
	}
	return n
}
