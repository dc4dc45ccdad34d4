package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/park285/boardfen/internal/obslog"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "boardfen",
		Usage:   "convert chess board-editor states to FEN",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP and WebSocket APIs",
				Action: runServe,
			},
			{
				Name:  "convert",
				Usage: "convert one editor state (JSON) read from --file or stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "editor state file, - for stdin", Value: "-"},
					&cli.BoolFlag{Name: "permissive", Usage: "accept boards without exactly 64 squares"},
					remoteFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runConvert(ctx, cmd, stdin, stdout)
				},
			},
			{
				Name:  "preview",
				Usage: "render an editor state as PNG",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "editor state file, - for stdin", Value: "-"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output png path", Value: "board.png"},
					remoteFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runPreview(ctx, cmd, stdin)
				},
			},
			{
				Name:  "history",
				Usage: "list recent conversions",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "number of entries"},
					remoteFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runHistory(ctx, cmd, stdout)
				},
			},
			{
				Name:   "mcp",
				Usage:  "serve the conversion tools over MCP stdio",
				Action: runMCP,
			},
		},
	}
}

func remoteFlag() cli.Flag {
	return &cli.BoolFlag{Name: "remote", Usage: "send the request to FEN_SERVER_URL instead of handling it locally"}
}
