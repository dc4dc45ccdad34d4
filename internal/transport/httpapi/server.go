// Package httpapi serves the converter over HTTP with fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/park285/boardfen/internal/domain"
	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/transport"
	"github.com/park285/boardfen/pkg/fendto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxBodySize           = 64 << 10
	conversionsPath       = "/v1/conversions"
)

type Server struct {
	svc     transport.Converter
	catalog *msgcat.Catalog
	logger  *zap.Logger
	timeout time.Duration
	srv     *fasthttp.Server
}

type Option func(*Server)

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewServer(svc transport.Converter, catalog *msgcat.Catalog, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, catalog: catalog, logger: logger, timeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "boardfen",
		MaxRequestBodySize: maxBodySize,
		ReadTimeout:        s.timeout,
		WriteTimeout:       s.timeout,
		IdleTimeout:        time.Minute,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes a request. It never panics on bad input; every failure becomes a JSON DomainError.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/healthz":
		if !requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		s.handleHealth(ctx)
	case path == "/v1/fen":
		if !requireMethod(ctx, fasthttp.MethodPost) {
			return
		}
		s.handleConvert(ctx)
	case path == "/v1/preview":
		if !requireMethod(ctx, fasthttp.MethodPost) {
			return
		}
		s.handlePreview(ctx)
	case path == conversionsPath:
		if !requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		s.handleHistory(ctx)
	case strings.HasPrefix(path, conversionsPath+"/"):
		if !requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		s.handleConversion(ctx, strings.TrimPrefix(path, conversionsPath+"/"))
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, fendto.DomainError{Code: fendto.CodeNotFound, Message: "no route for " + path})
	}
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Server) handleConvert(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := s.requestContext()
	defer cancel()

	source := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Client-ID")))
	if source == "" {
		source = "http"
	}
	conv, err := s.svc.ConvertJSON(reqCtx, ctx.PostBody(), source)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, conv.DTO())
}

func (s *Server) handlePreview(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := s.requestContext()
	defer cancel()

	img, err := s.svc.PreviewJSON(reqCtx, ctx.PostBody())
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(img)
}

func (s *Server) handleHistory(ctx *fasthttp.RequestCtx) {
	limit := 0
	if raw := strings.TrimSpace(string(ctx.QueryArgs().Peek("limit"))); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(ctx, fasthttp.StatusBadRequest, fendto.DomainError{Code: fendto.CodeMalformedRequest, Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()
	items, err := s.svc.History(reqCtx, limit)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, fendto.HistoryResponse{Conversions: domain.DTOs(items)})
}

func (s *Server) handleConversion(ctx *fasthttp.RequestCtx, id string) {
	reqCtx, cancel := s.requestContext()
	defer cancel()
	conv, err := s.svc.Conversion(reqCtx, id)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, conv.DTO())
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := s.requestContext()
	defer cancel()
	h := s.svc.Health(reqCtx)
	writeJSON(ctx, fasthttp.StatusOK, fendto.HealthResponse{Status: "ok", Cache: h.CacheOK, History: h.History})
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, err error) {
	de := transport.Classify(err, s.catalog)
	status := StatusFor(de.Code)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("http_request_failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	} else {
		s.logger.Debug("http_request_rejected", zap.ByteString("path", ctx.Path()), zap.String("code", de.Code))
	}
	writeJSON(ctx, status, de)
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case fendto.CodeMalformedRequest:
		return fasthttp.StatusBadRequest
	case fendto.CodeUnrecognizedSymbol, fendto.CodeInvalidBoardSize:
		return fasthttp.StatusUnprocessableEntity
	case fendto.CodeNotFound:
		return fasthttp.StatusNotFound
	default:
		return fasthttp.StatusInternalServerError
	}
}

func requireMethod(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, fendto.DomainError{Code: fendto.CodeMalformedRequest, Message: "method not allowed"})
	return false
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"code":"internal","message":"encode response"}`, fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
