// Package wsapi streams conversions to a live board editor over WebSocket.
package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/transport"
	"github.com/park285/boardfen/pkg/fendto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	Path          = "/ws"
	readLimit     = 64 << 10
	frameTimeout  = 10 * time.Second
	writeTimeout  = 5 * time.Second
	defaultSource = "ws"
)

type Handler struct {
	svc     transport.Converter
	catalog *msgcat.Catalog
	logger  *zap.Logger
	origins []string
}

// NewHandler accepts connections whose Origin host matches one of origins.
// Requests without an Origin header (non-browser clients) are always accepted.
func NewHandler(svc transport.Converter, catalog *msgcat.Catalog, logger *zap.Logger, origins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, catalog: catalog, logger: logger, origins: append([]string(nil), origins...)}
}

// Routes mounts the handler at Path.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	return mux
}

// NewServer wraps the handler in an http.Server listening on addr.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Debug("ws_accept_failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")
	conn.SetReadLimit(readLimit)

	source := strings.TrimSpace(r.Header.Get("X-Client-ID"))
	if source == "" {
		source = defaultSource
	}
	h.logger.Info("ws_connected", zap.String("remote", r.RemoteAddr), zap.String("source", source))

	ctx := r.Context()
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				conn.Close(websocket.StatusNormalClosure, "")
			default:
				h.logger.Debug("ws_read_failed", zap.Error(err))
			}
			return
		}

		resp := h.HandleFrame(ctx, raw, source)

		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = wsjson.Write(writeCtx, conn, resp)
		cancel()
		if err != nil {
			h.logger.Debug("ws_write_failed", zap.Error(err))
			return
		}
	}
}

// HandleFrame answers one client frame. Failures become error frames; the connection stays open.
func (h *Handler) HandleFrame(ctx context.Context, raw []byte, source string) fendto.StreamResponse {
	var req fendto.StreamRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return h.errorFrame("", fendto.DomainError{Code: fendto.CodeMalformedRequest, Message: "malformed frame: " + err.Error()})
	}
	if req.Type != fendto.FrameConvert {
		return h.errorFrame(req.RequestID, fendto.DomainError{Code: fendto.CodeMalformedRequest, Message: "unsupported frame type " + strings.TrimSpace(req.Type)})
	}

	frameCtx, cancel := context.WithTimeout(ctx, frameTimeout)
	defer cancel()
	conv, err := h.svc.ConvertJSON(frameCtx, req.State, source)
	if err != nil {
		de := transport.Classify(err, h.catalog)
		if de.Code == fendto.CodeInternal && !errors.Is(err, context.Canceled) {
			h.logger.Error("ws_convert_failed", zap.String("request_id", req.RequestID), zap.Error(err))
		}
		return fendto.StreamResponse{Type: fendto.FrameError, RequestID: req.RequestID, Error: &de}
	}
	return fendto.StreamResponse{Type: fendto.FrameFEN, RequestID: req.RequestID, Conversion: conv.DTO()}
}

func (h *Handler) errorFrame(requestID string, de fendto.DomainError) fendto.StreamResponse {
	if h.catalog != nil {
		de = h.catalog.Localize(de)
	}
	return fendto.StreamResponse{Type: fendto.FrameError, RequestID: requestID, Error: &de}
}
