package fenclient

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/service/convert"
	"github.com/park285/boardfen/internal/transport/httpapi"
	"github.com/park285/boardfen/pkg/fendto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newService(t *testing.T) *convert.Service {
	t.Helper()
	svc, err := convert.NewService(nil, nil, convert.NewMemoryRepository(), convert.NewPNGBoardRenderer(0),
		convert.Config{StrictBoard: true, VerifyPlacement: true}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// serve runs handler on an in-memory listener and returns a client wired to it.
func serve(t *testing.T, handler fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	opts = append([]Option{WithDialer(func(string) (net.Conn, error) { return ln.Dial() })}, opts...)
	return NewClient("http://boardfen.test/", opts...)
}

func state(squares []string) *fendto.EditorState {
	return &fendto.EditorState{
		WhiteToStart:        true,
		WhiteKingSideCastle: true,
		BlackKingSideCastle: true,
		Squares:             squares,
	}
}

func emptySquares() []string {
	out := make([]string, 64)
	for i := range out {
		out[i] = " "
	}
	return out
}

func TestClient_ConvertHistoryLookup(t *testing.T) {
	api := httpapi.NewServer(newService(t), msgcat.Must(), nil)
	c := serve(t, api.Handler, WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Client-ID": "fencheck", "": "ignored"}
	}))
	ctx := context.Background()

	squares := emptySquares()
	squares[4] = "♚"
	squares[60] = "♔"
	conv, err := c.Convert(ctx, state(squares))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.FEN != "4k3/8/8/8/8/8/8/4K3 w Kk - 0 1" {
		t.Fatalf("fen = %q", conv.FEN)
	}
	if conv.Source != "fencheck" {
		t.Fatalf("source = %q, want header value", conv.Source)
	}

	hist, err := c.History(ctx, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != conv.ID {
		t.Fatalf("history = %+v", hist)
	}

	got, err := c.Conversion(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Conversion: %v", err)
	}
	if got.FEN != conv.FEN {
		t.Fatalf("lookup fen = %q", got.FEN)
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health = %+v", health)
	}

	png, err := c.Preview(ctx, state(squares))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Fatalf("preview is not a png")
	}
}

func TestClient_DomainErrors(t *testing.T) {
	api := httpapi.NewServer(newService(t), msgcat.Must(), nil)
	c := serve(t, api.Handler)
	ctx := context.Background()

	squares := emptySquares()
	squares[12] = "x"
	_, err := c.Convert(ctx, state(squares))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != fasthttp.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want 422 APIError", err)
	}
	var de fendto.DomainError
	if !errors.As(err, &de) || de.Code != fendto.CodeUnrecognizedSymbol || de.Symbol != "x" {
		t.Fatalf("domain error = %+v", de)
	}

	_, err = c.ConvertRaw(ctx, []byte(`{"squares":[]}`))
	if !errors.As(err, &de) || de.Code != fendto.CodeMalformedRequest {
		t.Fatalf("raw err = %v", err)
	}

	_, err = c.Conversion(ctx, "missing")
	if !errors.As(err, &de) || de.Code != fendto.CodeNotFound {
		t.Fatalf("lookup err = %v", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok","cache":false,"history":"memory"}`)
	}, WithRetry(3))

	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.History != "memory" || calls.Load() != 3 {
		t.Fatalf("health = %+v after %d calls", health, calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("nope")
	}, WithRetry(5))

	_, err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Body != "nope" {
		t.Fatalf("err = %v", err)
	}
	if errors.Unwrap(apiErr) != nil {
		t.Fatalf("plain body should not unwrap to a domain error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_RetryStopsOnCanceledContext(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	}, WithRetry(6))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := c.Health(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("retry loop ignored context")
	}
}

func TestBackoffDuration(t *testing.T) {
	cases := map[int]time.Duration{
		0:  100 * time.Millisecond,
		1:  100 * time.Millisecond,
		2:  200 * time.Millisecond,
		4:  800 * time.Millisecond,
		6:  3200 * time.Millisecond,
		10: 3200 * time.Millisecond,
	}
	for attempt, want := range cases {
		if got := backoffDuration(attempt); got != want {
			t.Errorf("backoffDuration(%d) = %v, want %v", attempt, got, want)
		}
	}
}
