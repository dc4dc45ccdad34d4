package fen

import (
	"errors"
	"fmt"
)

// EmptySquare is the board-editor marker for an unoccupied square.
const EmptySquare = ' '

var ErrUnrecognizedSymbol = errors.New("unrecognized chess character")

// UnrecognizedSymbolError reports a board-editor character that has no FEN letter.
type UnrecognizedSymbolError struct {
	Symbol rune
}

func (e *UnrecognizedSymbolError) Error() string {
	return fmt.Sprintf("%c is not a valid chess character", e.Symbol)
}

func (e *UnrecognizedSymbolError) Is(target error) bool { return target == ErrUnrecognizedSymbol }

// PieceTable maps board-editor glyphs to FEN letters.
// A table is read-only once built and is safe to share between goroutines.
type PieceTable struct {
	letters map[rune]rune
	symbols map[rune]rune // FEN letter -> editor glyph
	empty   rune
}

var defaultTable = NewPieceTable(map[rune]rune{
	'♙': 'P',
	'♖': 'R',
	'♘': 'N',
	'♗': 'B',
	'♕': 'Q',
	'♔': 'K',
	'♟': 'p',
	'♜': 'r',
	'♞': 'n',
	'♝': 'b',
	'♛': 'q',
	'♚': 'k',
}, EmptySquare)

// DefaultPieceTable returns the shared table for the Unicode chess glyphs used by the board editor.
func DefaultPieceTable() *PieceTable { return defaultTable }

// NewPieceTable copies letters into a new table. The empty marker always maps to itself.
func NewPieceTable(letters map[rune]rune, empty rune) *PieceTable {
	t := &PieceTable{
		letters: make(map[rune]rune, len(letters)+1),
		symbols: make(map[rune]rune, len(letters)+1),
		empty:   empty,
	}
	for glyph, letter := range letters {
		t.letters[glyph] = letter
		t.symbols[letter] = glyph
	}
	t.letters[empty] = empty
	t.symbols[empty] = empty
	return t
}

// Map returns the FEN letter for an editor glyph, or the empty marker unchanged.
func (t *PieceTable) Map(glyph rune) (rune, error) {
	letter, ok := t.letters[glyph]
	if !ok {
		return 0, &UnrecognizedSymbolError{Symbol: glyph}
	}
	return letter, nil
}

// Symbol is the reverse of Map.
func (t *PieceTable) Symbol(letter rune) (rune, bool) {
	glyph, ok := t.symbols[letter]
	return glyph, ok
}

func (t *PieceTable) Empty() rune { return t.empty }

// Len counts the entries including the empty marker.
func (t *PieceTable) Len() int { return len(t.letters) }
