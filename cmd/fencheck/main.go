// Command fencheck probes a running boardfen server over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/boardfen/internal/config"
	"github.com/park285/boardfen/internal/fenclient"
	"github.com/park285/boardfen/pkg/fendto"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireClient(); err != nil {
		log.Fatal(err)
	}

	headers := func() map[string]string {
		m := map[string]string{"X-Client-ID": "fencheck"}
		if cfg.XClientID != "" {
			m["X-Client-ID"] = cfg.XClientID
		}
		return m
	}

	client := fenclient.NewClient(cfg.ServerURL,
		fenclient.WithHeaderProvider(headers),
		fenclient.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz ok: status=%s cache=%t history=%s", health.Status, health.Cache, health.History)
	}

	probe := startingPosition()
	conv, err := client.Convert(ctx, probe)
	if err != nil {
		log.Printf("/v1/fen error: %v", err)
	} else {
		log.Printf("/v1/fen ok: id=%s fen=%q cached=%t", conv.ID, conv.FEN, conv.Cached)
	}

	bad := startingPosition()
	bad.Squares[27] = "x"
	var de fendto.DomainError
	if _, err := client.Convert(ctx, bad); errors.As(err, &de) {
		log.Printf("/v1/fen rejection ok: code=%s message=%q", de.Code, de.Message)
	} else {
		log.Printf("/v1/fen rejection unexpected: %v", err)
	}

	if cfg.WSURL == "" {
		log.Println("FEN_WS_URL not set; skipping WS check")
		return
	}
	stream, err := fenclient.Dial(ctx, cfg.WSURL, headers, 3)
	if err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	defer stream.Close()
	if conv, err := stream.Convert(ctx, probe); err != nil {
		log.Printf("WS convert error: %v", err)
	} else {
		log.Printf("WS convert ok: fen=%q", conv.FEN)
	}
}

func startingPosition() *fendto.EditorState {
	rows := []string{"♜♞♝♛♚♝♞♜", "♟♟♟♟♟♟♟♟", "", "", "", "", "♙♙♙♙♙♙♙♙", "♖♘♗♕♔♗♘♖"}
	squares := make([]string, 0, 64)
	for _, row := range rows {
		if row == "" {
			row = strings.Repeat(" ", 8)
		}
		for _, r := range row {
			squares = append(squares, string(r))
		}
	}
	return &fendto.EditorState{
		WhiteToStart:         true,
		WhiteKingSideCastle:  true,
		WhiteQueenSideCastle: true,
		BlackKingSideCastle:  true,
		BlackQueenSideCastle: true,
		Squares:              squares,
	}
}
