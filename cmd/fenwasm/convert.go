package main

import (
	"github.com/park285/boardfen/internal/editor"
	"github.com/park285/boardfen/internal/fen"
)

// result is what getFen hands back to JavaScript.
type result struct {
	FEN   string
	Error string
	Code  string
}

func (r result) toMap() map[string]any {
	return map[string]any{"fen": r.FEN, "error": r.Error, "code": r.Code}
}

// getFEN converts one editor record. Board length is not enforced here; the
// page always sends the full 64 squares.
func getFEN(input string) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{Error: "internal error", Code: "internal"}
		}
	}()

	board, err := editor.DecodeBoard([]byte(input))
	if err != nil {
		return failure(err)
	}
	pos, err := fen.Encode(board)
	if err != nil {
		return failure(err)
	}
	return result{FEN: pos.String()}
}

func failure(err error) result {
	de := editor.DomainError(err)
	return result{Error: de.Message, Code: de.Code}
}
