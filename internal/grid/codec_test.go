package grid

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"
)

func TestEncode_Scenarios(t *testing.T) {
	var empty Grid
	p := Encode(empty)
	for i, w := range p {
		if w.Sign() != 0 {
			t.Fatalf("empty grid word %d = %s, want 0", i, w)
		}
	}

	var full Grid
	for i := range full {
		full[i] = true
	}
	p = Encode(full)
	for i, w := range p {
		if w.Cmp(WordMax()) != 0 {
			t.Fatalf("full grid word %d = %s, want 2^256-1", i, w)
		}
	}

	cases := []struct {
		name     string
		row, col int
		want     Packed
	}{
		{name: "origin", row: 0, col: 0, want: Packed{big.NewInt(1), big.NewInt(0), big.NewInt(0), big.NewInt(0)}},
		{name: "row8", row: 8, col: 0, want: Packed{big.NewInt(0), big.NewInt(1), big.NewInt(0), big.NewInt(0)}},
		{name: "row0col5", row: 0, col: 5, want: Packed{big.NewInt(32), big.NewInt(0), big.NewInt(0), big.NewInt(0)}},
	}
	for _, tc := range cases {
		var g Grid
		g.Set(tc.row, tc.col, true)
		if got := Encode(g); !got.Equal(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestEncode_SingleBitPerPosition(t *testing.T) {
	for pos := 0; pos < Size; pos++ {
		var g Grid
		g[pos] = true
		p := Encode(g)
		total := 0
		for i, w := range p {
			for j := 0; j < WordBits; j++ {
				if w.Bit(j) == 0 {
					continue
				}
				total++
				if i != pos/WordBits || j != pos%WordBits {
					t.Fatalf("pos %d: bit set at word %d bit %d", pos, i, j)
				}
			}
		}
		if total != 1 {
			t.Fatalf("pos %d: %d bits set, want 1", pos, total)
		}
	}
}

func TestRoundTrip_GridPackedGrid(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 0; n < 200; n++ {
		var g Grid
		for i := range g {
			g[i] = r.Intn(2) == 1
		}
		back, err := Decode(Encode(g))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if back != g {
			t.Fatalf("round trip mismatch at iteration %d", n)
		}
	}
}

func TestRoundTrip_PackedGridPacked(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		var p Packed
		for i := range p {
			p[i] = new(big.Int).Rand(r, new(big.Int).Add(WordMax(), big.NewInt(1)))
		}
		g, err := Decode(p)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if back := Encode(g); !back.Equal(p) {
			t.Fatalf("round trip mismatch: got %s want %s", back, p)
		}
	}
}

func TestDecode_RejectsOutOfRangeWords(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), WordBits)
	if _, err := Decode(Packed{over, nil, nil, nil}); !errors.Is(err, ErrWordRange) {
		t.Fatalf("expected ErrWordRange for 2^256, got %v", err)
	}
	if _, err := Decode(Packed{nil, big.NewInt(-1), nil, nil}); !errors.Is(err, ErrWordRange) {
		t.Fatalf("expected ErrWordRange for negative word, got %v", err)
	}
	g, err := Decode(Packed{})
	if err != nil {
		t.Fatalf("nil words should decode as zero: %v", err)
	}
	if g.Alive() != 0 {
		t.Fatalf("expected empty grid, got %d alive", g.Alive())
	}
}

func TestParseCells(t *testing.T) {
	if _, err := ParseCells(make([]int, Size-1)); !errors.Is(err, ErrBadLength) {
		t.Fatalf("short payload: got %v", err)
	}
	if _, err := ParseCells(make([]int, Size+1)); !errors.Is(err, ErrBadLength) {
		t.Fatalf("long payload: got %v", err)
	}
	vals := make([]int, Size)
	vals[17] = 2
	if _, err := ParseCells(vals); !errors.Is(err, ErrNotBinary) {
		t.Fatalf("non-binary payload: got %v", err)
	}
	vals[17] = 1
	g, err := ParseCells(vals)
	if err != nil {
		t.Fatalf("valid payload: %v", err)
	}
	if !g[17] || g.Alive() != 1 {
		t.Fatalf("expected only cell 17 alive")
	}
}

func TestGridJSON(t *testing.T) {
	var g Grid
	g.Set(1, 2, true)
	b, err := g.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Grid
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != g {
		t.Fatalf("json round trip mismatch")
	}
	if err := back.UnmarshalJSON([]byte(`[0,1,"x"]`)); !errors.Is(err, ErrNotBinary) {
		t.Fatalf("expected ErrNotBinary for string cell, got %v", err)
	}
}
