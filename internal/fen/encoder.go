package fen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	BoardSquares = 64
	RankWidth    = 8
)

var ErrBoardSize = errors.New("board must have 64 squares")

// BoardSizeError is returned by an Encoder built WithBoardSizeCheck.
type BoardSizeError struct {
	Got int
}

func (e *BoardSizeError) Error() string {
	return fmt.Sprintf("board has %d squares, want %d", e.Got, BoardSquares)
}

func (e *BoardSizeError) Is(target error) bool { return target == ErrBoardSize }

// BoardState is one board-editor snapshot. Squares run rank 8 to rank 1, file a to h.
type BoardState struct {
	WhiteToStart   bool
	WhiteKingSide  bool
	WhiteQueenSide bool
	BlackKingSide  bool
	BlackQueenSide bool
	Squares        []rune
}

// Position holds the FEN fields derived from a BoardState.
type Position struct {
	Squares        string
	SideToMove     string
	CastlingRights string
}

// String renders the full FEN. En-passant, halfmove and fullmove are fixed at "- 0 1".
func (p Position) String() string {
	return fmt.Sprintf("%s %s %s - 0 1", p.Squares, p.SideToMove, p.CastlingRights)
}

type Option func(*Encoder)

// WithBoardSizeCheck rejects boards that do not have exactly 64 squares.
func WithBoardSizeCheck() Option {
	return func(e *Encoder) { e.checkSize = true }
}

type Encoder struct {
	table     *PieceTable
	checkSize bool
}

func NewEncoder(table *PieceTable, opts ...Option) *Encoder {
	if table == nil {
		table = DefaultPieceTable()
	}
	e := &Encoder{table: table}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) Table() *PieceTable { return e.table }

func (e *Encoder) Encode(state BoardState) (Position, error) {
	if e.checkSize && len(state.Squares) != BoardSquares {
		return Position{}, &BoardSizeError{Got: len(state.Squares)}
	}
	squares, err := e.Placement(state.Squares)
	if err != nil {
		return Position{}, err
	}
	return Position{
		Squares:        squares,
		SideToMove:     SideToMove(state.WhiteToStart),
		CastlingRights: CastlingRights(state),
	}, nil
}

// Placement maps every glyph and returns the "/"-joined run-length encoded ranks.
// Input that is not a multiple of 8 leaves a short last rank.
func (e *Encoder) Placement(glyphs []rune) (string, error) {
	letters, err := e.MapSquares(glyphs)
	if err != nil {
		return "", err
	}
	ranks := make([]string, 0, (len(letters)+RankWidth-1)/RankWidth)
	for start := 0; start < len(letters); start += RankWidth {
		end := min(start+RankWidth, len(letters))
		ranks = append(ranks, EncodeRank(letters[start:end], e.table.Empty()))
	}
	return strings.Join(ranks, "/"), nil
}

// MapSquares maps glyphs in order and stops at the first unrecognized one.
func (e *Encoder) MapSquares(glyphs []rune) ([]rune, error) {
	letters := make([]rune, len(glyphs))
	for i, glyph := range glyphs {
		letter, err := e.table.Map(glyph)
		if err != nil {
			return nil, err
		}
		letters[i] = letter
	}
	return letters, nil
}

// EncodeRank replaces each run of empty markers with its length.
func EncodeRank(rank []rune, empty rune) string {
	var b strings.Builder
	b.Grow(len(rank))
	run := 0
	for _, r := range rank {
		if r == empty {
			run++
			continue
		}
		if run > 0 {
			b.WriteString(strconv.Itoa(run))
			run = 0
		}
		b.WriteRune(r)
	}
	if run > 0 {
		b.WriteString(strconv.Itoa(run))
	}
	return b.String()
}

func SideToMove(whiteToStart bool) string {
	if whiteToStart {
		return "w"
	}
	return "b"
}

// CastlingRights lists the granted rights in KQkq order; no rights gives "".
func CastlingRights(state BoardState) string {
	var b strings.Builder
	if state.WhiteKingSide {
		b.WriteByte('K')
	}
	if state.WhiteQueenSide {
		b.WriteByte('Q')
	}
	if state.BlackKingSide {
		b.WriteByte('k')
	}
	if state.BlackQueenSide {
		b.WriteByte('q')
	}
	return b.String()
}

// Encode converts state with the default table and no size check.
func Encode(state BoardState) (Position, error) {
	return NewEncoder(nil).Encode(state)
}
