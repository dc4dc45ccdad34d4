package fendto

import "time"

type Conversion struct {
	ID             string    `json:"id"`
	FEN            string    `json:"fen"`
	Squares        string    `json:"squares"`
	SideToMove     string    `json:"side_to_move"`
	CastlingRights string    `json:"castling_rights"`
	Source         string    `json:"source,omitempty"`
	Cached         bool      `json:"cached"`
	CreatedAt      time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Conversions []*Conversion `json:"conversions"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Cache   bool   `json:"cache"`
	History string `json:"history"`
}
