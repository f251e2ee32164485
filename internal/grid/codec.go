package grid

import (
	"fmt"
	"math/big"
)

// Packed is the on-chain layout: cell pos lives at bit pos%256 of word pos/256.
type Packed [Words]*big.Int

var wordMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), WordBits), big.NewInt(1))

// WordMax is 2^256-1, the value of a fully populated word.
func WordMax() *big.Int { return new(big.Int).Set(wordMax) }

func Encode(g Grid) Packed {
	var p Packed
	for i := range p {
		p[i] = new(big.Int)
	}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			pos := Index(row, col)
			if !g[pos] {
				continue
			}
			w := p[pos/WordBits]
			w.SetBit(w, pos%WordBits, 1)
		}
	}
	return p
}

// Decode expands packed words into a Grid. A nil word reads as zero.
func Decode(p Packed) (Grid, error) {
	var g Grid
	for i, w := range p {
		if w == nil {
			continue
		}
		if w.Sign() < 0 || w.BitLen() > WordBits {
			return g, fmt.Errorf("%w: word %d", ErrWordRange, i)
		}
	}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			pos := Index(row, col)
			w := p[pos/WordBits]
			if w != nil && w.Bit(pos%WordBits) == 1 {
				g[pos] = true
			}
		}
	}
	return g, nil
}

func (p Packed) Equal(q Packed) bool {
	for i := range p {
		if word(p[i]).Cmp(word(q[i])) != 0 {
			return false
		}
	}
	return true
}

// Args returns the words in contract argument order.
func (p Packed) Args() []any {
	out := make([]any, Words)
	for i := range p {
		out[i] = new(big.Int).Set(word(p[i]))
	}
	return out
}

func (p Packed) String() string {
	return fmt.Sprintf("[%s %s %s %s]", word(p[0]), word(p[1]), word(p[2]), word(p[3]))
}

var zero = new(big.Int)

func word(w *big.Int) *big.Int {
	if w == nil {
		return zero
	}
	return w
}
