package fen

import (
	"errors"
	"fmt"
	"strings"
)

var ErrPlacement = errors.New("invalid fen placement")

type PlacementError struct {
	Placement string
	Reason    string
	Err       error
}

func (e *PlacementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fen placement %q: %s: %v", e.Placement, e.Reason, e.Err)
	}
	return fmt.Sprintf("fen placement %q: %s", e.Placement, e.Reason)
}

func (e *PlacementError) Unwrap() error { return e.Err }

func (e *PlacementError) Is(target error) bool { return target == ErrPlacement }

// ExpandRank undoes EncodeRank: digit n becomes n empty markers, anything else is kept.
func ExpandRank(rank string, empty rune) ([]rune, error) {
	out := make([]rune, 0, RankWidth)
	for _, r := range rank {
		switch {
		case r == '0':
			return nil, &PlacementError{Placement: rank, Reason: "zero-length empty run"}
		case r >= '1' && r <= '9':
			for n := int(r - '0'); n > 0; n-- {
				out = append(out, empty)
			}
		default:
			out = append(out, r)
		}
	}
	return out, nil
}

// DecodePlacement turns a full 8x8 placement field back into editor glyphs using table.
func DecodePlacement(placement string, table *PieceTable) ([]rune, error) {
	if table == nil {
		table = DefaultPieceTable()
	}
	ranks := strings.Split(placement, "/")
	if len(ranks) != BoardSquares/RankWidth {
		return nil, &PlacementError{Placement: placement, Reason: fmt.Sprintf("got %d ranks", len(ranks))}
	}
	glyphs := make([]rune, 0, BoardSquares)
	for i, rank := range ranks {
		letters, err := ExpandRank(rank, table.Empty())
		if err != nil {
			return nil, &PlacementError{Placement: placement, Reason: fmt.Sprintf("rank %d", 8-i), Err: err}
		}
		if len(letters) != RankWidth {
			return nil, &PlacementError{Placement: placement, Reason: fmt.Sprintf("rank %d covers %d squares", 8-i, len(letters))}
		}
		for _, letter := range letters {
			glyph, ok := table.Symbol(letter)
			if !ok {
				return nil, &PlacementError{Placement: placement, Reason: fmt.Sprintf("unknown piece letter %q", letter)}
			}
			glyphs = append(glyphs, glyph)
		}
	}
	return glyphs, nil
}
