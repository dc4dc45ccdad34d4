package wsapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/service/convert"
	"github.com/park285/boardfen/pkg/fendto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	svc, err := convert.NewService(nil, nil, convert.NewMemoryRepository(), convert.NewPNGBoardRenderer(0),
		convert.Config{StrictBoard: true}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewHandler(svc, msgcat.Must(), nil, nil)
}

func stateJSON(t *testing.T, squares []string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(fendto.EditorState{WhiteToStart: true, Squares: squares})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func boardWith(idx int, glyph string) []string {
	out := make([]string, 64)
	for i := range out {
		out[i] = " "
	}
	out[idx] = glyph
	return out
}

func TestStream_ConvertAndErrorFrames(t *testing.T) {
	srv := httptest.NewServer(newHandler(t).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+Path, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	send := func(req fendto.StreamRequest) fendto.StreamResponse {
		t.Helper()
		if err := wsjson.Write(ctx, conn, req); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp fendto.StreamResponse
		if err := wsjson.Read(ctx, conn, &resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		return resp
	}

	resp := send(fendto.StreamRequest{Type: fendto.FrameConvert, RequestID: "r1", State: stateJSON(t, boardWith(0, "♜"))})
	if resp.Type != fendto.FrameFEN || resp.RequestID != "r1" || resp.Conversion == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Conversion.FEN != "r7/8/8/8/8/8/8/8 w  - 0 1" || resp.Conversion.Source != "ws" {
		t.Fatalf("conversion = %+v", resp.Conversion)
	}

	resp = send(fendto.StreamRequest{Type: fendto.FrameConvert, RequestID: "r2", State: stateJSON(t, boardWith(5, "Z"))})
	if resp.Type != fendto.FrameError || resp.Error == nil || resp.Error.Code != fendto.CodeUnrecognizedSymbol {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Error.Message != "Z is not a valid chess character" {
		t.Fatalf("message = %q", resp.Error.Message)
	}

	// the connection survives errors
	resp = send(fendto.StreamRequest{Type: "subscribe", RequestID: "r3"})
	if resp.Type != fendto.FrameError || resp.Error.Code != fendto.CodeMalformedRequest || resp.RequestID != "r3" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleFrame_Malformed(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	if resp := h.HandleFrame(ctx, []byte("not json"), "test"); resp.Error == nil || resp.Error.Code != fendto.CodeMalformedRequest {
		t.Fatalf("resp = %+v", resp)
	}
	resp := h.HandleFrame(ctx, []byte(`{"type":"convert","request_id":"x"}`), "test")
	if resp.Error == nil || resp.Error.Code != fendto.CodeMalformedRequest || resp.RequestID != "x" {
		t.Fatalf("missing state: %+v", resp)
	}
	resp = h.HandleFrame(ctx, []byte(`{"type":"convert","state":{"white_to_start":true,"white_king_side_castle":false,"white_queen_side_castle":false,"black_king_side_castle":false,"black_queen_side_castle":false,"squares":["♔"]}}`), "test")
	if resp.Error == nil || resp.Error.Code != fendto.CodeInvalidBoardSize {
		t.Fatalf("short board: %+v", resp)
	}
}
