package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/park285/boardfen/internal/domain"
	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/service/convert"
	"github.com/park285/boardfen/pkg/fendto"
	"github.com/valyala/fasthttp"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc, err := convert.NewService(nil, nil, convert.NewMemoryRepository(), convert.NewPNGBoardRenderer(0),
		convert.Config{StrictBoard: true, VerifyPlacement: true}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewServer(svc, msgcat.Must(), nil)
}

func do(t *testing.T, s *Server, method, uri, body string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	s.Handler(&ctx)
	return &ctx
}

func editorJSON(squares []string, white bool) string {
	state := fendto.EditorState{
		WhiteToStart:         white,
		WhiteKingSideCastle:  true,
		WhiteQueenSideCastle: true,
		BlackKingSideCastle:  true,
		BlackQueenSideCastle: true,
		Squares:              squares,
	}
	raw, _ := json.Marshal(state)
	return string(raw)
}

func emptySquares() []string {
	out := make([]string, 64)
	for i := range out {
		out[i] = " "
	}
	return out
}

func decodeError(t *testing.T, ctx *fasthttp.RequestCtx) fendto.DomainError {
	t.Helper()
	var de fendto.DomainError
	if err := json.Unmarshal(ctx.Response.Body(), &de); err != nil {
		t.Fatalf("decode error body %q: %v", ctx.Response.Body(), err)
	}
	return de
}

func TestConvert_OK(t *testing.T) {
	s := newTestServer(t)
	ctx := do(t, s, "POST", "/v1/fen", editorJSON(emptySquares(), true))
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d body %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	var conv fendto.Conversion
	if err := json.Unmarshal(ctx.Response.Body(), &conv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conv.FEN != "8/8/8/8/8/8/8/8 w KQkq - 0 1" || conv.ID == "" || conv.Source != "http" {
		t.Fatalf("conv = %+v", conv)
	}

	got := do(t, s, "GET", "/v1/conversions/"+conv.ID, "")
	if got.Response.StatusCode() != fasthttp.StatusOK || !strings.Contains(string(got.Response.Body()), conv.FEN) {
		t.Fatalf("lookup: %d %s", got.Response.StatusCode(), got.Response.Body())
	}
}

func TestConvert_Errors(t *testing.T) {
	s := newTestServer(t)

	bad := emptySquares()
	bad[9] = "x"
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unrecognized", editorJSON(bad, true), fasthttp.StatusUnprocessableEntity, fendto.CodeUnrecognizedSymbol},
		{"short board", editorJSON([]string{"♔"}, true), fasthttp.StatusUnprocessableEntity, fendto.CodeInvalidBoardSize},
		{"not json", "{", fasthttp.StatusBadRequest, fendto.CodeMalformedRequest},
		{"missing fields", `{"squares":[]}`, fasthttp.StatusBadRequest, fendto.CodeMalformedRequest},
		{"empty", "", fasthttp.StatusBadRequest, fendto.CodeMalformedRequest},
	}
	for _, tc := range cases {
		ctx := do(t, s, "POST", "/v1/fen", tc.body)
		if ctx.Response.StatusCode() != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, ctx.Response.StatusCode(), tc.status)
			continue
		}
		if de := decodeError(t, ctx); de.Code != tc.code {
			t.Errorf("%s: code = %q, want %q", tc.name, de.Code, tc.code)
		}
	}

	de := decodeError(t, do(t, s, "POST", "/v1/fen", editorJSON(bad, true)))
	if de.Message != "x is not a valid chess character" || de.Symbol != "x" {
		t.Fatalf("unrecognized body = %+v", de)
	}
}

func TestRoutingAndMethods(t *testing.T) {
	s := newTestServer(t)
	if ctx := do(t, s, "GET", "/v1/fen", ""); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("GET /v1/fen = %d", ctx.Response.StatusCode())
	}
	if ctx := do(t, s, "GET", "/nope", ""); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("GET /nope = %d", ctx.Response.StatusCode())
	}
	if ctx := do(t, s, "GET", "/v1/conversions/missing", ""); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("missing conversion = %d", ctx.Response.StatusCode())
	}
	if ctx := do(t, s, "GET", "/v1/conversions?limit=abc", ""); ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("bad limit = %d", ctx.Response.StatusCode())
	}
}

func TestHistoryAndHealth(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		squares := emptySquares()
		squares[i] = "♚"
		if ctx := do(t, s, "POST", "/v1/fen", editorJSON(squares, false)); ctx.Response.StatusCode() != fasthttp.StatusOK {
			t.Fatalf("convert %d: %s", i, ctx.Response.Body())
		}
	}

	ctx := do(t, s, "GET", "/v1/conversions?limit=2", "")
	var hist fendto.HistoryResponse
	if err := json.Unmarshal(ctx.Response.Body(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hist.Conversions) != 2 {
		t.Fatalf("history = %d items", len(hist.Conversions))
	}

	ctx = do(t, s, "GET", "/healthz", "")
	var health fendto.HealthResponse
	if err := json.Unmarshal(ctx.Response.Body(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Cache || health.History != "memory" {
		t.Fatalf("health = %+v", health)
	}
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)
	ctx := do(t, s, "POST", "/v1/preview", editorJSON(emptySquares(), true))
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	if string(ctx.Response.Header.ContentType()) != "image/png" {
		t.Fatalf("content type = %s", ctx.Response.Header.ContentType())
	}
	if body := ctx.Response.Body(); len(body) < 8 || string(body[1:4]) != "PNG" {
		t.Fatalf("not a png")
	}
}

func TestStatusFor(t *testing.T) {
	if StatusFor("whatever") != fasthttp.StatusInternalServerError {
		t.Fatalf("unknown code should be 500")
	}
}

// uuidOnlyRepo errors on ids a UUID column would reject.
type uuidOnlyRepo struct {
	convert.Repository
}

func (r uuidOnlyRepo) GetConversion(ctx context.Context, id string) (*domain.Conversion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New("invalid input syntax for type uuid")
	}
	return r.Repository.GetConversion(ctx, id)
}

func TestConversionLookup_MalformedIDIsNotFound(t *testing.T) {
	svc, err := convert.NewService(nil, nil, uuidOnlyRepo{convert.NewMemoryRepository()}, convert.NewPNGBoardRenderer(0),
		convert.Config{StrictBoard: true}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s := NewServer(svc, msgcat.Must(), nil)

	for _, id := range []string{"abc", "not-a-uuid", uuid.NewString()} {
		ctx := do(t, s, "GET", "/v1/conversions/"+id, "")
		if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
			t.Fatalf("GET %s = %d body %s", id, ctx.Response.StatusCode(), ctx.Response.Body())
		}
		if de := decodeError(t, ctx); de.Code != fendto.CodeNotFound || de.Retryable {
			t.Fatalf("GET %s error = %+v", id, de)
		}
	}
}
