package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a shared TTL store. Errors degrade to cache misses so a Redis
// outage never fails a request.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedis(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Redis{rdb: rdb, ttl: ttl, log: log}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	if err := r.rdb.Set(ctx, key, val, r.ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		r.log.WarnContext(ctx, "cache delete failed", "key", key, "err", err)
	}
}
