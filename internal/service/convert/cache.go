package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/boardfen/internal/domain"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "fen:conv:"

// Cache remembers conversions by request digest.
type Cache interface {
	Get(ctx context.Context, digest string) (*domain.Conversion, error)
	Set(ctx context.Context, conv *domain.Conversion, ttl time.Duration) error
	Ping(ctx context.Context) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

func (c *RedisCache) key(digest string) string { return cacheKeyPrefix + strings.TrimSpace(digest) }

type cachedConversion struct {
	ID             string    `json:"id"`
	Digest         string    `json:"digest"`
	FEN            string    `json:"fen"`
	Placement      string    `json:"placement"`
	SideToMove     string    `json:"side_to_move"`
	CastlingRights string    `json:"castling_rights"`
	Squares        []string  `json:"squares"`
	Source         string    `json:"source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Get returns nil without error on a miss.
func (c *RedisCache) Get(ctx context.Context, digest string) (*domain.Conversion, error) {
	raw, err := c.rdb.Get(ctx, c.key(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached conversion: %w", err)
	}
	var payload cachedConversion
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode cached conversion: %w", err)
	}
	return &domain.Conversion{
		ID:             payload.ID,
		Digest:         payload.Digest,
		FEN:            payload.FEN,
		Placement:      payload.Placement,
		SideToMove:     payload.SideToMove,
		CastlingRights: payload.CastlingRights,
		Squares:        payload.Squares,
		Source:         payload.Source,
		CreatedAt:      payload.CreatedAt,
	}, nil
}

func (c *RedisCache) Set(ctx context.Context, conv *domain.Conversion, ttl time.Duration) error {
	if conv == nil {
		return nil
	}
	raw, err := json.Marshal(cachedConversion{
		ID:             conv.ID,
		Digest:         conv.Digest,
		FEN:            conv.FEN,
		Placement:      conv.Placement,
		SideToMove:     conv.SideToMove,
		CastlingRights: conv.CastlingRights,
		Squares:        conv.Squares,
		Source:         conv.Source,
		CreatedAt:      conv.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode cached conversion: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(conv.Digest), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cached conversion: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
