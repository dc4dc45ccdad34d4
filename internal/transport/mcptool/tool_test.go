package mcptool

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/park285/boardfen/internal/service/convert"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc, err := convert.NewService(nil, nil, convert.NewMemoryRepository(), convert.NewPNGBoardRenderer(0),
		convert.Config{StrictBoard: true, VerifyPlacement: true}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewServer(svc, nil, nil, "test")
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s: empty result", name)
	}
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	content, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return content.Text
}

func startingArgs() map[string]interface{} {
	squares := "♜♞♝♛♚♝♞♜" + "♟♟♟♟♟♟♟♟" + strings.Repeat(" ", 32) + "♙♙♙♙♙♙♙♙" + "♖♘♗♕♔♗♘♖"
	return map[string]interface{}{
		"white_to_start":          true,
		"white_king_side_castle":  true,
		"white_queen_side_castle": true,
		"black_king_side_castle":  true,
		"black_queen_side_castle": true,
		"squares":                 squares,
	}
}

func TestBoardToFEN_StringSquares(t *testing.T) {
	s := newTestServer(t)
	result := call(t, s.handleBoardToFEN, ToolBoardToFEN, startingArgs())
	if result.IsError {
		t.Fatalf("unexpected error: %s", text(t, result))
	}
	if got := text(t, result); got != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" {
		t.Fatalf("fen = %q", got)
	}
}

func TestBoardToFEN_ArraySquares(t *testing.T) {
	s := newTestServer(t)
	args := startingArgs()
	squares := make([]interface{}, 64)
	for i := range squares {
		squares[i] = " "
	}
	squares[63] = "♔"
	args["squares"] = squares
	args["white_to_start"] = false
	args["black_king_side_castle"] = false
	args["black_queen_side_castle"] = false

	if got := text(t, call(t, s.handleBoardToFEN, ToolBoardToFEN, args)); got != "8/8/8/8/8/8/8/7K b KQ - 0 1" {
		t.Fatalf("fen = %q", got)
	}
}

func TestBoardToFEN_Errors(t *testing.T) {
	s := newTestServer(t)

	args := startingArgs()
	args["squares"] = strings.Repeat("?", 64)
	result := call(t, s.handleBoardToFEN, ToolBoardToFEN, args)
	if !result.IsError || text(t, result) != "? is not a valid chess character" {
		t.Fatalf("result = %+v", result)
	}

	args = startingArgs()
	delete(args, "white_to_start")
	result = call(t, s.handleBoardToFEN, ToolBoardToFEN, args)
	if !result.IsError || !strings.Contains(text(t, result), "white_to_start") {
		t.Fatalf("missing field not reported: %s", text(t, result))
	}

	result, err := s.handleBoardToFEN(context.Background(), mcp.CallToolRequest{})
	if err != nil || result == nil || !result.IsError {
		t.Fatalf("nil arguments: %+v, %v", result, err)
	}
}

func TestHistoryTool(t *testing.T) {
	s := newTestServer(t)
	if got := text(t, call(t, s.handleHistory, ToolHistory, nil)); got != "no conversions yet" {
		t.Fatalf("empty history = %q", got)
	}
	call(t, s.handleBoardToFEN, ToolBoardToFEN, startingArgs())
	got := text(t, call(t, s.handleHistory, ToolHistory, map[string]interface{}{"limit": float64(5)}))
	if !strings.Contains(got, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1") {
		t.Fatalf("history = %q", got)
	}
	if s.MCPServer() == nil {
		t.Fatalf("mcp server not built")
	}
}
