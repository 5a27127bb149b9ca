package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnharveymath/oxcovid19db/internal/metrics"
	"github.com/johnharveymath/oxcovid19db/internal/rules"
)

// OpenRedis returns a client for addr, or nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// RedisDescriber shares column lists between processes through redis and
// falls back to the wrapped Describer on a miss. Redis failures are logged
// and bypassed.
type RedisDescriber struct {
	next   rules.Describer
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisDescriber wraps next. A nil client disables caching.
func NewRedisDescriber(next rules.Describer, client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisDescriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisDescriber{next: next, client: client, ttl: ttl, prefix: "oxcovid:columns:", logger: logger}
}

// DescribeColumns implements rules.Describer.
func (r *RedisDescriber) DescribeColumns(ctx context.Context, tbl string) ([]string, error) {
	if r.client == nil {
		return r.next.DescribeColumns(ctx, tbl)
	}
	key := r.prefix + tbl
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cols []string
		if jerr := json.Unmarshal(raw, &cols); jerr == nil {
			metrics.ColumnCacheHits.Inc()
			return cols, nil
		}
		r.logger.Warn("redis_columns_corrupt", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("redis_get_failed", "key", key, "err", err)
	}
	metrics.ColumnCacheMisses.Inc()

	cols, err := r.next.DescribeColumns(ctx, tbl)
	if err != nil {
		return nil, err
	}
	if b, jerr := json.Marshal(cols); jerr == nil {
		if serr := r.client.Set(ctx, key, b, r.ttl).Err(); serr != nil {
			r.logger.Warn("redis_set_failed", "key", key, "err", serr)
		}
	}
	return cols, nil
}
