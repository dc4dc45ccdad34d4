package convert

import (
	"errors"
	"testing"

	"github.com/park285/boardfen/internal/fen"
)

func TestVerifier_MatchesEncoder(t *testing.T) {
	enc := fen.NewEncoder(nil, fen.WithBoardSizeCheck())
	v := NewVerifier(nil)

	letters, err := enc.MapSquares(startingSquares())
	if err != nil {
		t.Fatalf("MapSquares: %v", err)
	}
	pos, err := enc.Encode(startingState())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := v.Verify(letters, pos.Squares); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := v.Verify(letters, "8/8/8/8/8/8/8/8"); !errors.Is(err, ErrPlacementMismatch) {
		t.Fatalf("err = %v, want ErrPlacementMismatch", err)
	}
}

func TestVerifier_RejectsShortBoard(t *testing.T) {
	if _, err := NewVerifier(nil).Board([]rune("K")); !errors.Is(err, fen.ErrBoardSize) {
		t.Fatalf("err = %v, want ErrBoardSize", err)
	}
}
