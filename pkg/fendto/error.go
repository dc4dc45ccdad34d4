package fendto

const (
	CodeUnrecognizedSymbol = "unrecognized_symbol"
	CodeMalformedRequest   = "malformed_request"
	CodeInvalidBoardSize   = "invalid_board_size"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Symbol    string `json:"symbol,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "fen service error"
}
