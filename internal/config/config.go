package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string
	// WSOrigins lists extra Origin host patterns accepted by the WebSocket endpoint.
	WSOrigins []string

	RedisURL    string
	DatabaseURL string

	CacheTTLSec     int
	HistoryLimit    int
	StrictBoard     bool
	VerifyPlacement bool

	MessagesDir string

	// client side
	ServerURL string
	WSURL     string
	XClientID string
}

func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		WSAddr:          ":8081",
		CacheTTLSec:     3600,
		HistoryLimit:    20,
		StrictBoard:     true,
		VerifyPlacement: true,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	cfg.WSOrigins = splitList(os.Getenv("WS_ORIGINS"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("FEN_CACHE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FEN_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FEN_STRICT_BOARD")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictBoard = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("FEN_VERIFY_PLACEMENT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.VerifyPlacement = b
		}
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FEN_SERVER_URL")), "/")
	cfg.WSURL = strings.TrimSpace(os.Getenv("FEN_WS_URL"))
	cfg.XClientID = strings.TrimSpace(os.Getenv("X_CLIENT_ID"))

	if cfg.HTTPAddr == cfg.WSAddr {
		return nil, errors.New("HTTP_ADDR and WS_ADDR must differ")
	}
	return cfg, nil
}

// RequireClient checks the settings a client command needs.
func (c *AppConfig) RequireClient() error {
	if c.ServerURL == "" {
		return errors.New("FEN_SERVER_URL is required")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
