package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abdusco/shortlinks/internal"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "shortlink:"
	ttl       = 10 * time.Minute
)

// LinkCache holds links found through domain scoped lookups. Entries for one
// code live in a single hash keyed by domain so every domain's copy can be
// dropped at once. Get returns nil, nil on a miss.
type LinkCache interface {
	Get(ctx context.Context, key internal.LinkKey) (*internal.ShortLink, error)
	Set(ctx context.Context, key internal.LinkKey, link *internal.ShortLink) error
	Invalidate(ctx context.Context, code string) error
}

var (
	_ LinkCache = (*RedisLinkCache)(nil)
	_ LinkCache = (*noopLinkCache)(nil)
)

type RedisLinkCache struct {
	rdb *redis.Client
}

// NewRedisLinkCache returns a no-op cache when rdb is nil.
func NewRedisLinkCache(rdb *redis.Client) LinkCache {
	if rdb == nil {
		return &noopLinkCache{}
	}
	return &RedisLinkCache{rdb: rdb}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

type cachedLink struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	ShortURL    string    `json:"short_url"`
	Domain      string    `json:"domain"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

func hashKey(code string) string {
	return keyPrefix + code
}

func (c *RedisLinkCache) Get(ctx context.Context, key internal.LinkKey) (*internal.ShortLink, error) {
	data, err := c.rdb.HGet(ctx, hashKey(key.Code), key.Domain).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("code", key.Code).Msg("failed to read link from cache")
		}
		return nil, nil
	}

	var cached cachedLink
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Warn().Err(err).Str("code", key.Code).Msg("failed to decode cached link")
		return nil, nil
	}

	return &internal.ShortLink{
		ID:          cached.ID,
		ShortCode:   cached.ShortCode,
		OriginalURL: cached.OriginalURL,
		ShortURL:    cached.ShortURL,
		Domain:      cached.Domain,
		Clicks:      cached.Clicks,
		CreatedAt:   cached.CreatedAt,
	}, nil
}

func (c *RedisLinkCache) Set(ctx context.Context, key internal.LinkKey, link *internal.ShortLink) error {
	data, err := json.Marshal(cachedLink{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ShortURL:    link.ShortURL,
		Domain:      link.Domain,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, hashKey(key.Code), key.Domain, data)
	pipe.Expire(ctx, hashKey(key.Code), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("code", key.Code).Msg("failed to cache link")
	}
	return nil
}

func (c *RedisLinkCache) Invalidate(ctx context.Context, code string) error {
	if err := c.rdb.Del(ctx, hashKey(code)).Err(); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to invalidate cached link")
	}
	return nil
}

type noopLinkCache struct{}

func (noopLinkCache) Get(context.Context, internal.LinkKey) (*internal.ShortLink, error) {
	return nil, nil
}

func (noopLinkCache) Set(context.Context, internal.LinkKey, *internal.ShortLink) error {
	return nil
}

func (noopLinkCache) Invalidate(context.Context, string) error {
	return nil
}
