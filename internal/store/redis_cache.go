package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/eaziurl/internal/shortener"
)

// RedisCache is a Redis implementation of shortener.Cache.
// Long URLs are keyed by their hash so that key length stays bounded.
type RedisCache struct {
	client     *redis.Client
	longPrefix string // "eazi:long:" for urlHash -> code
	codePrefix string // "eazi:code:" for code -> long url
	ttl        time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl keeps entries until evicted.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		longPrefix: "eazi:long:",
		codePrefix: "eazi:code:",
		ttl:        ttl,
	}
}

func (r *RedisCache) GetByLongURL(ctx context.Context, longURL string) (shortener.Code, error) {
	code, err := r.get(ctx, r.longKey(longURL))

	return shortener.Code(code), err
}

func (r *RedisCache) SetByLongURL(ctx context.Context, longURL string, code shortener.Code) error {
	return r.client.Set(ctx, r.longKey(longURL), string(code), r.ttl).Err()
}

func (r *RedisCache) GetByShortKey(ctx context.Context, code shortener.Code) (string, error) {
	return r.get(ctx, r.codeKey(code))
}

func (r *RedisCache) SetByShortKey(ctx context.Context, code shortener.Code, longURL string) error {
	return r.client.Set(ctx, r.codeKey(code), longURL, r.ttl).Err()
}

func (r *RedisCache) get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shortener.ErrCacheMiss
		}

		return "", err
	}

	return value, nil
}

func (r *RedisCache) longKey(longURL string) string {
	return r.longPrefix + shortener.HashURL(longURL)
}

func (r *RedisCache) codeKey(code shortener.Code) string {
	return r.codePrefix + string(code)
}

// Compile-time check.
var _ shortener.Cache = (*RedisCache)(nil)
