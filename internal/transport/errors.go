// Package transport holds what the HTTP, WebSocket and MCP boundaries share.
package transport

import (
	"context"
	"errors"

	"github.com/park285/boardfen/internal/domain"
	"github.com/park285/boardfen/internal/editor"
	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/service/convert"
	"github.com/park285/boardfen/pkg/fendto"
)

// Converter is the part of the conversion service the boundaries call.
type Converter interface {
	ConvertJSON(ctx context.Context, raw []byte, source string) (*domain.Conversion, error)
	PreviewJSON(ctx context.Context, raw []byte) ([]byte, error)
	History(ctx context.Context, limit int) ([]*domain.Conversion, error)
	Conversion(ctx context.Context, id string) (*domain.Conversion, error)
	Health(ctx context.Context) convert.Health
}

// Classify maps err to a DomainError with a catalog message. catalog may be nil.
func Classify(err error, catalog *msgcat.Catalog) fendto.DomainError {
	var de fendto.DomainError
	switch {
	case errors.Is(err, convert.ErrConversionNotFound):
		de = fendto.DomainError{Code: fendto.CodeNotFound, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		de = fendto.DomainError{Code: fendto.CodeInternal, Message: "request timed out", Retryable: true}
	default:
		de = editor.DomainError(err)
	}
	if catalog != nil {
		de = catalog.Localize(de)
	}
	return de
}
