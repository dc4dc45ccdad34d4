package convert

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/boardfen/internal/fen"
)

var ErrPlacementMismatch = errors.New("fen placement cross-check failed")

var letterPieces = map[rune]nchess.Piece{
	'K': nchess.WhiteKing,
	'Q': nchess.WhiteQueen,
	'R': nchess.WhiteRook,
	'B': nchess.WhiteBishop,
	'N': nchess.WhiteKnight,
	'P': nchess.WhitePawn,
	'k': nchess.BlackKing,
	'q': nchess.BlackQueen,
	'r': nchess.BlackRook,
	'b': nchess.BlackBishop,
	'n': nchess.BlackKnight,
	'p': nchess.BlackPawn,
}

// Verifier rebuilds the board with the chess library and checks that its placement
// matches what the encoder produced.
type Verifier struct {
	empty rune
}

func NewVerifier(table *fen.PieceTable) *Verifier {
	if table == nil {
		table = fen.DefaultPieceTable()
	}
	return &Verifier{empty: table.Empty()}
}

// Board builds a library board from 64 FEN letters in editor order (rank 8 first).
func (v *Verifier) Board(letters []rune) (*nchess.Board, error) {
	if len(letters) != fen.BoardSquares {
		return nil, &fen.BoardSizeError{Got: len(letters)}
	}
	squares := make(map[nchess.Square]nchess.Piece, len(letters))
	for i, letter := range letters {
		if letter == v.empty {
			continue
		}
		piece, ok := letterPieces[letter]
		if !ok {
			return nil, fmt.Errorf("%w: unknown piece letter %q", ErrPlacementMismatch, letter)
		}
		row, col := i/fen.RankWidth, i%fen.RankWidth
		sq := nchess.NewSquare(nchess.File(col), nchess.Rank(7-row))
		squares[sq] = piece
	}
	return nchess.NewBoard(squares), nil
}

// Verify returns the rebuilt board when its placement equals placement.
func (v *Verifier) Verify(letters []rune, placement string) (*nchess.Board, error) {
	board, err := v.Board(letters)
	if err != nil {
		return nil, err
	}
	if got := board.String(); got != placement {
		return nil, fmt.Errorf("%w: library %q, encoder %q", ErrPlacementMismatch, got, placement)
	}
	return board, nil
}
