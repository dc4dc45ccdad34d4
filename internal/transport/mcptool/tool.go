// Package mcptool exposes the converter as MCP tools over stdio.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/transport"
	"go.uber.org/zap"
)

const (
	ToolBoardToFEN = "board_to_fen"
	ToolHistory    = "conversion_history"
	source         = "mcp"
)

type Server struct {
	svc       transport.Converter
	catalog   *msgcat.Catalog
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

func NewServer(svc transport.Converter, catalog *msgcat.Catalog, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = msgcat.Must()
	}
	s := &Server{svc: svc, catalog: catalog, logger: logger}
	s.mcpServer = server.NewMCPServer(
		"boardfen",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(catalog.Text("mcp.instructions", nil, "Converts chess board-editor states into FEN.")),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	boolean := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "boolean", "description": desc}
	}
	s.mcpServer.AddTool(mcp.Tool{
		Name:        ToolBoardToFEN,
		Description: s.catalog.Text("mcp.tool_description", nil, "Convert a board-editor state to FEN."),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"white_to_start":          boolean("true when white moves first"),
				"white_king_side_castle":  boolean("white may castle king side"),
				"white_queen_side_castle": boolean("white may castle queen side"),
				"black_king_side_castle":  boolean("black may castle king side"),
				"black_queen_side_castle": boolean("black may castle queen side"),
				"squares": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": s.catalog.Text("mcp.squares_description", nil, "64 single-character squares"),
				},
			},
			Required: []string{
				"white_to_start",
				"white_king_side_castle",
				"white_queen_side_castle",
				"black_king_side_castle",
				"black_queen_side_castle",
				"squares",
			},
		},
	}, s.handleBoardToFEN)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        ToolHistory,
		Description: "List recent conversions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of conversions to return (optional)",
				},
			},
		},
	}, s.handleHistory)
}

// MCPServer returns the underlying server for serving.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio blocks serving MCP on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleBoardToFEN(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("arguments must be an object"), nil
	}
	// a plain 64-character string is accepted for squares
	if squares, ok := args["squares"].(string); ok {
		split := make([]string, 0, len(squares))
		for _, r := range squares {
			split = append(split, string(r))
		}
		args["squares"] = split
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
	}

	conv, err := s.svc.ConvertJSON(ctx, raw, source)
	if err != nil {
		de := transport.Classify(err, s.catalog)
		s.logger.Debug("mcp_convert_rejected", zap.String("code", de.Code), zap.Error(err))
		return mcp.NewToolResultError(de.Message), nil
	}
	return mcp.NewToolResultText(s.catalog.Text("mcp.result", map[string]any{"FEN": conv.FEN}, conv.FEN)), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if n, ok := args["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}
	}
	items, err := s.svc.History(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(transport.Classify(err, s.catalog).Message), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no conversions yet"), nil
	}
	var b strings.Builder
	for _, c := range items {
		b.WriteString(s.catalog.Text("cli.history_entry", map[string]any{
			"CreatedAt": c.CreatedAt.Format("2006-01-02 15:04:05"),
			"ID":        c.ID,
			"FEN":       c.FEN,
			"Cached":    c.Cached,
		}, c.ID+" "+c.FEN))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}
