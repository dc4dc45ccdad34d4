// Package fenclient talks to a running boardfen server.
package fenclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/boardfen/pkg/fendto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers.
type HeaderProvider func() map[string]string

// APIError is a non-2xx answer. It unwraps to the server's DomainError when the body carried one.
type APIError struct {
	Status int
	Domain fendto.DomainError
	Body   string
}

func (e *APIError) Error() string {
	if e.Domain.Code != "" {
		return fmt.Sprintf("boardfen api error: status=%d code=%s: %s", e.Status, e.Domain.Code, e.Domain.Message)
	}
	return fmt.Sprintf("boardfen api error: status=%d body=%s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.Domain.Code == "" {
		return nil
	}
	return e.Domain
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the total number of attempts per call.
func WithRetry(attempts int) Option {
	return func(c *Client) { c.retryMax = attempts }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Convert(ctx context.Context, state *fendto.EditorState) (*fendto.Conversion, error) {
	var out fendto.Conversion
	if _, err := c.do(ctx, fasthttp.MethodPost, "/v1/fen", state, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConvertRaw posts an editor record as-is.
func (c *Client) ConvertRaw(ctx context.Context, raw []byte) (*fendto.Conversion, error) {
	var out fendto.Conversion
	if _, err := c.do(ctx, fasthttp.MethodPost, "/v1/fen", json.RawMessage(raw), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Preview returns the PNG rendering of state.
func (c *Client) Preview(ctx context.Context, state *fendto.EditorState) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodPost, "/v1/preview", state, nil)
}

func (c *Client) History(ctx context.Context, limit int) ([]*fendto.Conversion, error) {
	path := "/v1/conversions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out fendto.HistoryResponse
	if _, err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Conversions, nil
}

func (c *Client) Conversion(ctx context.Context, id string) (*fendto.Conversion, error) {
	var out fendto.Conversion
	if _, err := c.do(ctx, fasthttp.MethodGet, "/v1/conversions/"+url.PathEscape(strings.TrimSpace(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*fendto.HealthResponse, error) {
	var out fendto.HealthResponse
	if _, err := c.do(ctx, fasthttp.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends the request, retrying transport errors and 5xx answers with backoff.
// Conversions are deterministic, so every call is safe to repeat.
func (c *Client) do(ctx context.Context, method, path string, in any, out any) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := max(c.retryMax, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status, Body: truncate(string(resp.Body()), 512)}
			_ = json.Unmarshal(resp.Body(), &apiErr.Domain)
			if !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
		} else {
			body := append([]byte(nil), resp.Body()...)
			if out != nil {
				if err := json.Unmarshal(body, out); err != nil {
					return nil, fmt.Errorf("decode response: %w", err)
				}
			}
			return body, nil
		}

		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
