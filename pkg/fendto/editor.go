package fendto

// EditorState is the board-editor record as it travels over the wire.
// Squares holds 64 single-character strings, rank 8 first, file a to h; " " is an empty square.
type EditorState struct {
	WhiteToStart         bool     `json:"white_to_start"`
	WhiteKingSideCastle  bool     `json:"white_king_side_castle"`
	WhiteQueenSideCastle bool     `json:"white_queen_side_castle"`
	BlackKingSideCastle  bool     `json:"black_king_side_castle"`
	BlackQueenSideCastle bool     `json:"black_queen_side_castle"`
	Squares              []string `json:"squares"`
}
