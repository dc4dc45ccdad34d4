package editor

import (
	"errors"

	"github.com/park285/boardfen/internal/fen"
	"github.com/park285/boardfen/pkg/fendto"
)

// DomainError classifies err for callers outside the process.
func DomainError(err error) fendto.DomainError {
	var de fendto.DomainError
	switch {
	case err == nil:
		return fendto.DomainError{}
	case errors.As(err, &de):
		return de
	}

	var symErr *fen.UnrecognizedSymbolError
	if errors.As(err, &symErr) {
		return fendto.DomainError{
			Code:    fendto.CodeUnrecognizedSymbol,
			Message: symErr.Error(),
			Symbol:  string(symErr.Symbol),
		}
	}
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return fendto.DomainError{Code: fendto.CodeMalformedRequest, Message: err.Error()}
	case errors.Is(err, fen.ErrBoardSize):
		return fendto.DomainError{Code: fendto.CodeInvalidBoardSize, Message: err.Error()}
	default:
		return fendto.DomainError{Code: fendto.CodeInternal, Message: "internal error", Retryable: true}
	}
}
