package domain

import (
	"time"

	"github.com/park285/boardfen/pkg/fendto"
)

// Conversion is one stored board-to-FEN result.
type Conversion struct {
	ID             string
	Digest         string
	FEN            string
	Placement      string
	SideToMove     string
	CastlingRights string
	Squares        []string
	Source         string
	Cached         bool
	CreatedAt      time.Time
}

// DTO converts to the wire form.
func (c *Conversion) DTO() *fendto.Conversion {
	if c == nil {
		return nil
	}
	return &fendto.Conversion{
		ID:             c.ID,
		FEN:            c.FEN,
		Squares:        c.Placement,
		SideToMove:     c.SideToMove,
		CastlingRights: c.CastlingRights,
		Source:         c.Source,
		Cached:         c.Cached,
		CreatedAt:      c.CreatedAt,
	}
}

func DTOs(items []*Conversion) []*fendto.Conversion {
	out := make([]*fendto.Conversion, 0, len(items))
	for _, c := range items {
		out = append(out, c.DTO())
	}
	return out
}
