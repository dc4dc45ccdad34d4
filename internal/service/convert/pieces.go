package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// pieceSVG draws a token: a filled disc with a ring, inverted for black.
func pieceSVG(piece nchess.Piece) string {
	fill, stroke := "#f5f1e8", "#1d1d1f"
	if piece.Color() == nchess.Black {
		fill, stroke = "#1d1d1f", "#f5f1e8"
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`+
		`<circle cx="50" cy="52" r="38" fill="#000000" fill-opacity="0.25"/>`+
		`<circle cx="50" cy="48" r="38" fill="%s" stroke="%s" stroke-width="5"/>`+
		`<circle cx="50" cy="48" r="29" fill="none" stroke="%s" stroke-width="2"/>`+
		`</svg>`, fill, stroke, stroke)
}

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(strings.NewReader(pieceSVG(piece)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

func pieceLetter(piece nchess.Piece) string {
	var letter string
	switch piece.Type() {
	case nchess.King:
		letter = "K"
	case nchess.Queen:
		letter = "Q"
	case nchess.Rook:
		letter = "R"
	case nchess.Bishop:
		letter = "B"
	case nchess.Knight:
		letter = "N"
	case nchess.Pawn:
		letter = "P"
	}
	if piece.Color() == nchess.Black {
		return strings.ToLower(letter)
	}
	return letter
}

func pieceLetterColor(piece nchess.Piece) color.Color {
	if piece.Color() == nchess.Black {
		return color.NRGBA{R: 245, G: 241, B: 232, A: 255}
	}
	return color.NRGBA{R: 29, G: 29, B: 31, A: 255}
}
