package fen

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
)

func TestExpandRank(t *testing.T) {
	cases := map[string]string{
		"8":        "        ",
		"r3k2r":    "r   k  r",
		"1p1p1p1p": " p p p p",
		"PPPPPPPP": "PPPPPPPP",
	}
	for in, want := range cases {
		got, err := ExpandRank(in, EmptySquare)
		if err != nil {
			t.Fatalf("ExpandRank(%q): %v", in, err)
		}
		if string(got) != want {
			t.Errorf("ExpandRank(%q) = %q, want %q", in, string(got), want)
		}
	}
	if _, err := ExpandRank("r0k", EmptySquare); !errors.Is(err, ErrPlacement) {
		t.Fatalf("zero run: err = %v, want ErrPlacement", err)
	}
}

func TestDecodePlacement_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	enc := NewEncoder(nil)
	for i := 0; i < 200; i++ {
		squares := randomBoard(rng)
		placement, err := enc.Placement(squares)
		if err != nil {
			t.Fatalf("Placement: %v", err)
		}
		back, err := DecodePlacement(placement, nil)
		if err != nil {
			t.Fatalf("DecodePlacement(%q): %v", placement, err)
		}
		if string(back) != string(squares) {
			t.Fatalf("round trip mismatch for %q", placement)
		}
	}
}

func TestDecodePlacement_Rejects(t *testing.T) {
	bad := []string{
		"8/8/8/8/8/8/8",
		"8/8/8/8/8/8/8/8/8",
		"9/8/8/8/8/8/8/8",
		"7/8/8/8/8/8/8/8",
		"rnbqkbnrr/8/8/8/8/8/8/8",
		"x7/8/8/8/8/8/8/8",
		"08/8/8/8/8/8/8/8",
	}
	for _, placement := range bad {
		if _, err := DecodePlacement(placement, nil); !errors.Is(err, ErrPlacement) {
			t.Errorf("DecodePlacement(%q) err = %v, want ErrPlacement", placement, err)
		}
	}
}

func TestPieceTable_SymbolIsInverseOfMap(t *testing.T) {
	table := DefaultPieceTable()
	if table.Len() != 13 {
		t.Fatalf("default table has %d entries, want 13", table.Len())
	}
	for _, glyph := range append(append([]rune{}, editorGlyphs...), EmptySquare) {
		letter, err := table.Map(glyph)
		if err != nil {
			t.Fatalf("Map(%q): %v", glyph, err)
		}
		back, ok := table.Symbol(letter)
		if !ok || back != glyph {
			t.Fatalf("Symbol(%q) = %q,%v want %q", letter, back, ok, glyph)
		}
	}
	if got, _ := table.Map(EmptySquare); got != EmptySquare {
		t.Fatalf("empty marker maps to %q", got)
	}
}

func TestNewPieceTable_CopiesInput(t *testing.T) {
	src := map[rune]rune{'a': 'K'}
	table := NewPieceTable(src, '.')
	src['a'] = 'Q'
	src['b'] = 'k'
	if got, _ := table.Map('a'); got != 'K' {
		t.Fatalf("table changed with its input: %q", got)
	}
	if _, err := table.Map('b'); err == nil {
		t.Fatalf("table picked up a later insert")
	}
}

func TestDecodePlacement_KeepsRankCause(t *testing.T) {
	_, err := DecodePlacement("8/8/3p04/8/8/8/8/8", nil)
	var outer *PlacementError
	if !errors.As(err, &outer) || outer.Reason != "rank 6" {
		t.Fatalf("err = %v, want rank 6 PlacementError", err)
	}
	var cause *PlacementError
	if !errors.As(outer.Err, &cause) || cause.Placement != "3p04" || cause.Reason != "zero-length empty run" {
		t.Fatalf("cause = %v", outer.Err)
	}
	if !strings.Contains(err.Error(), "rank 6: fen placement \"3p04\": zero-length empty run") {
		t.Fatalf("message = %q", err.Error())
	}
}
