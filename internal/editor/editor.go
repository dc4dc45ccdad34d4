// Package editor decodes board-editor records into encoder input and maps failures
// onto the wire error codes shared by every boundary.
package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/park285/boardfen/internal/fen"
	"github.com/park285/boardfen/pkg/fendto"
)

var ErrMalformedRequest = errors.New("malformed editor request")

// MalformedRequestError covers records that cannot be read as an editor state at all.
type MalformedRequestError struct {
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed editor request: %s: %v", e.Reason, e.Err)
	}
	return "malformed editor request: " + e.Reason
}

func (e *MalformedRequestError) Unwrap() error { return e.Err }

func (e *MalformedRequestError) Is(target error) bool { return target == ErrMalformedRequest }

// wireState mirrors fendto.EditorState with pointers so that absent fields can be told apart from false.
type wireState struct {
	WhiteToStart         *bool     `json:"white_to_start"`
	WhiteKingSideCastle  *bool     `json:"white_king_side_castle"`
	WhiteQueenSideCastle *bool     `json:"white_queen_side_castle"`
	BlackKingSideCastle  *bool     `json:"black_king_side_castle"`
	BlackQueenSideCastle *bool     `json:"black_queen_side_castle"`
	Squares              *[]string `json:"squares"`
}

// Decode parses raw JSON into an EditorState. Every field is required.
func Decode(raw []byte) (*fendto.EditorState, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &MalformedRequestError{Reason: "empty body"}
	}
	var w wireState
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &MalformedRequestError{Reason: "invalid json", Err: err}
	}
	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("white_to_start", w.WhiteToStart != nil)
	check("white_king_side_castle", w.WhiteKingSideCastle != nil)
	check("white_queen_side_castle", w.WhiteQueenSideCastle != nil)
	check("black_king_side_castle", w.BlackKingSideCastle != nil)
	check("black_queen_side_castle", w.BlackQueenSideCastle != nil)
	check("squares", w.Squares != nil)
	if len(missing) > 0 {
		return nil, &MalformedRequestError{Reason: "missing field " + strings.Join(missing, ", ")}
	}
	return &fendto.EditorState{
		WhiteToStart:         *w.WhiteToStart,
		WhiteKingSideCastle:  *w.WhiteKingSideCastle,
		WhiteQueenSideCastle: *w.WhiteQueenSideCastle,
		BlackKingSideCastle:  *w.BlackKingSideCastle,
		BlackQueenSideCastle: *w.BlackQueenSideCastle,
		Squares:              *w.Squares,
	}, nil
}

// BoardState converts the wire record into encoder input. Each square must be exactly one character.
func BoardState(s *fendto.EditorState) (fen.BoardState, error) {
	if s == nil {
		return fen.BoardState{}, &MalformedRequestError{Reason: "nil editor state"}
	}
	squares := make([]rune, len(s.Squares))
	for i, sq := range s.Squares {
		if utf8.RuneCountInString(sq) != 1 {
			return fen.BoardState{}, &MalformedRequestError{Reason: fmt.Sprintf("squares[%d]: want a single character, got %q", i, sq)}
		}
		r, _ := utf8.DecodeRuneInString(sq)
		squares[i] = r
	}
	return fen.BoardState{
		WhiteToStart:   s.WhiteToStart,
		WhiteKingSide:  s.WhiteKingSideCastle,
		WhiteQueenSide: s.WhiteQueenSideCastle,
		BlackKingSide:  s.BlackKingSideCastle,
		BlackQueenSide: s.BlackQueenSideCastle,
		Squares:        squares,
	}, nil
}

// DecodeBoard is Decode followed by BoardState.
func DecodeBoard(raw []byte) (fen.BoardState, error) {
	s, err := Decode(raw)
	if err != nil {
		return fen.BoardState{}, err
	}
	return BoardState(s)
}

// FromBoard is the inverse of BoardState.
func FromBoard(b fen.BoardState) *fendto.EditorState {
	squares := make([]string, len(b.Squares))
	for i, r := range b.Squares {
		squares[i] = string(r)
	}
	return &fendto.EditorState{
		WhiteToStart:         b.WhiteToStart,
		WhiteKingSideCastle:  b.WhiteKingSide,
		WhiteQueenSideCastle: b.WhiteQueenSide,
		BlackKingSideCastle:  b.BlackKingSide,
		BlackQueenSideCastle: b.BlackQueenSide,
		Squares:              squares,
	}
}
