package fenclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/boardfen/pkg/fendto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Stream is a WebSocket session with the server. Requests are answered in order,
// so calls are serialized.
type Stream struct {
	mu   sync.Mutex
	conn *websocket.Conn
	seq  int
}

// Dial connects to wsURL, retrying up to attempts times with backoff.
func Dial(ctx context.Context, wsURL string, headers HeaderProvider, attempts int) (*Stream, error) {
	hdr := http.Header{}
	if headers != nil {
		for k, v := range headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				hdr.Set(k, v)
			}
		}
	}
	attempts = max(attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
			HTTPHeader:      hdr,
		})
		cancel()
		if err == nil {
			return &Stream{conn: conn}, nil
		}
		lastErr = err
		if attempt < attempts {
			if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
				break
			}
		}
	}
	return nil, fmt.Errorf("dial %s: %w", wsURL, lastErr)
}

// Convert sends one convert frame and waits for its answer. An error frame is
// returned as the server's DomainError.
func (s *Stream) Convert(ctx context.Context, state *fendto.EditorState) (*fendto.Conversion, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	req := fendto.StreamRequest{Type: fendto.FrameConvert, RequestID: fmt.Sprintf("c%d", s.seq), State: raw}
	if err := wsjson.Write(ctx, s.conn, req); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	var resp fendto.StreamResponse
	if err := wsjson.Read(ctx, s.conn, &resp); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if resp.RequestID != req.RequestID {
		return nil, fmt.Errorf("out of order answer: got %q, want %q", resp.RequestID, req.RequestID)
	}
	switch resp.Type {
	case fendto.FrameFEN:
		if resp.Conversion == nil {
			return nil, fmt.Errorf("fen frame without conversion")
		}
		return resp.Conversion, nil
	case fendto.FrameError:
		if resp.Error == nil {
			return nil, fmt.Errorf("error frame without error")
		}
		return nil, *resp.Error
	default:
		return nil, fmt.Errorf("unexpected frame type %q", resp.Type)
	}
}

func (s *Stream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "close")
}
