// Package builder assembles the conversion service from configuration.
package builder

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/boardfen/internal/config"
	"github.com/park285/boardfen/internal/msgcat"
	"github.com/park285/boardfen/internal/service/convert"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Service *convert.Service
	Catalog *msgcat.Catalog
	Repo    convert.Repository
	Redis   *redis.Client
	DB      *sql.DB
}

// Close releases the Redis and Postgres connections.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// New builds the service. Redis and Postgres are optional: without REDIS_URL nothing is cached,
// without DATABASE_URL history lives in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps := &Deps{Catalog: catalog}

	var cache convert.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		deps.Redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = deps.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, continuing without conversion cache", zap.Error(err))
		}
		cache = convert.NewRedisCache(deps.Redis)
	} else {
		logger.Info("REDIS_URL not set, conversion cache disabled")
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.DB = db
		deps.Repo = convert.NewRepository(db)
	} else {
		logger.Info("DATABASE_URL not set, keeping conversion history in memory")
		deps.Repo = convert.NewMemoryRepository()
	}

	svcCfg := convert.Config{
		StrictBoard:     cfg.StrictBoard,
		VerifyPlacement: cfg.VerifyPlacement,
		CacheTTL:        cfg.CacheTTL(),
		HistoryLimit:    cfg.HistoryLimit,
	}
	deps.Service, err = convert.NewService(nil, cache, deps.Repo, convert.NewPNGBoardRenderer(0), svcCfg, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := convert.EnsureSchema(pingCtx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("invalid port %q", port)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid db %q", p)
		}
		db = n
	}
	opts := &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Username: u.User.Username(),
		DB:       db,
	}
	opts.Password, _ = u.User.Password()
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
