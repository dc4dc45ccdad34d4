package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/park285/boardfen/internal/builder"
	"github.com/park285/boardfen/internal/config"
	"github.com/park285/boardfen/internal/domain"
	"github.com/park285/boardfen/internal/editor"
	"github.com/park285/boardfen/internal/fenclient"
	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/obslog"
	"github.com/park285/boardfen/internal/transport"
	"github.com/park285/boardfen/internal/transport/httpapi"
	"github.com/park285/boardfen/internal/transport/mcptool"
	"github.com/park285/boardfen/internal/transport/wsapi"
	"github.com/park285/boardfen/pkg/fendto"
)

const cliSource = "cli"

func runServe(ctx context.Context, _ *cli.Command) error {
	logger := obslog.L()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	deps, err := builder.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init error: %w", err)
	}
	defer deps.Close()

	api := httpapi.NewServer(deps.Service, deps.Catalog, logger)
	ws := wsapi.NewServer(cfg.WSAddr, wsapi.NewHandler(deps.Service, deps.Catalog, logger, cfg.WSOrigins))

	errCh := make(chan error, 2)
	go func() { errCh <- api.ListenAndServe(cfg.HTTPAddr) }()
	go func() {
		if err := ws.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info(deps.Catalog.Text("cli.serving", map[string]any{
		"HTTPAddr": cfg.HTTPAddr,
		"WSAddr":   cfg.WSAddr,
		"History":  deps.Repo.Backend(),
	}, "boardfen listening"))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("server stopped", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := ws.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ws shutdown", zap.Error(err))
	}
	return runErr
}

func runConvert(ctx context.Context, cmd *cli.Command, stdin io.Reader, stdout io.Writer) error {
	raw, err := readInput(cmd.String("file"), stdin)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}

	var conv *fendto.Conversion
	if cmd.Bool("remote") {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		if conv, err = client.ConvertRaw(ctx, raw); err != nil {
			return remoteError(err, catalog)
		}
	} else {
		if cmd.Bool("permissive") {
			cfg.StrictBoard = false
		}
		deps, err := builder.New(ctx, cfg, obslog.L())
		if err != nil {
			return fmt.Errorf("init error: %w", err)
		}
		defer deps.Close()
		c, err := deps.Service.ConvertJSON(ctx, raw, cliSource)
		if err != nil {
			return userError(err, catalog)
		}
		conv = c.DTO()
	}
	_, err = fmt.Fprintln(stdout, catalog.Text("cli.converted", conv, conv.FEN))
	return err
}

func runPreview(ctx context.Context, cmd *cli.Command, stdin io.Reader) error {
	raw, err := readInput(cmd.String("file"), stdin)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}

	var img []byte
	if cmd.Bool("remote") {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		state, err := editor.Decode(raw)
		if err != nil {
			return userError(err, catalog)
		}
		if img, err = client.Preview(ctx, state); err != nil {
			return remoteError(err, catalog)
		}
	} else {
		deps, err := builder.New(ctx, cfg, obslog.L())
		if err != nil {
			return fmt.Errorf("init error: %w", err)
		}
		defer deps.Close()
		if img, err = deps.Service.PreviewJSON(ctx, raw); err != nil {
			return userError(err, catalog)
		}
	}
	return os.WriteFile(cmd.String("out"), img, 0o644)
}

func runHistory(ctx context.Context, cmd *cli.Command, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}
	limit := int(cmd.Int("limit"))

	var items []*fendto.Conversion
	if cmd.Bool("remote") {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		if items, err = client.History(ctx, limit); err != nil {
			return remoteError(err, catalog)
		}
	} else {
		deps, err := builder.New(ctx, cfg, obslog.L())
		if err != nil {
			return fmt.Errorf("init error: %w", err)
		}
		defer deps.Close()
		list, err := deps.Service.History(ctx, limit)
		if err != nil {
			return userError(err, catalog)
		}
		items = domain.DTOs(list)
	}

	for _, c := range items {
		line := catalog.Text("cli.history_entry", map[string]any{
			"CreatedAt": c.CreatedAt.Format(time.RFC3339),
			"ID":        c.ID,
			"FEN":       c.FEN,
			"Cached":    c.Cached,
		}, c.FEN)
		if _, err := fmt.Fprintln(stdout, line); err != nil {
			return err
		}
	}
	return nil
}

func runMCP(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	deps, err := builder.New(ctx, cfg, obslog.L())
	if err != nil {
		return fmt.Errorf("init error: %w", err)
	}
	defer deps.Close()
	return mcptool.NewServer(deps.Service, deps.Catalog, obslog.L(), version).ServeStdio()
}

func newClient(cfg *config.AppConfig) (*fenclient.Client, error) {
	if err := cfg.RequireClient(); err != nil {
		return nil, err
	}
	return fenclient.NewClient(cfg.ServerURL, fenclient.WithHeaderProvider(clientHeaders(cfg))), nil
}

func clientHeaders(cfg *config.AppConfig) fenclient.HeaderProvider {
	return func() map[string]string {
		id := cfg.XClientID
		if id == "" {
			id = cliSource
		}
		return map[string]string{"X-Client-ID": id}
	}
}

// userError turns a failed local conversion into the catalog message a user should see.
func userError(err error, catalog *msgcat.Catalog) error {
	return cli.Exit(transport.Classify(err, catalog).Message, 2)
}

// remoteError localizes errors the server answered with and passes transport failures through.
func remoteError(err error, catalog *msgcat.Catalog) error {
	var de fendto.DomainError
	if errors.As(err, &de) {
		return cli.Exit(catalog.Localize(de).Message, 2)
	}
	return err
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
