package fendto

import "encoding/json"

const (
	FrameConvert = "convert"
	FrameFEN     = "fen"
	FrameError   = "error"
)

// StreamRequest is a WebSocket frame sent by the editor. State is decoded by the server
// so that malformed records are answered with an error frame.
type StreamRequest struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
}

type StreamResponse struct {
	Type       string       `json:"type"`
	RequestID  string       `json:"request_id,omitempty"`
	Conversion *Conversion  `json:"conversion,omitempty"`
	Error      *DomainError `json:"error,omitempty"`
}
