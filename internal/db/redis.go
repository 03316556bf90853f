/**
 * @description
 * Redis client for the ranking cache, the ranking update channel and the
 * notification pub/sub sink.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 */

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
)

const redisTimeout = 5 * time.Second

// ConnectRedis parses REDIS_URL, fills unset options and pings the server.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	applyRedisDefaults(opt, cfg.Redis)

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), opt.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opt.Addr, err)
	}

	logger.Info("✅ Connected to Redis at %s (pool %d, ranking ttl %s)", opt.Addr, opt.PoolSize, cfg.Redis.RankingTTL)
	return client, nil
}

// applyRedisDefaults only touches options the URL left unset. The pool is sized
// for one SSE subscription per API replica plus the pipeline's cache writes.
func applyRedisDefaults(opt *redis.Options, rc config.RedisConfig) {
	for _, d := range []*time.Duration{&opt.ReadTimeout, &opt.WriteTimeout, &opt.DialTimeout, &opt.PoolTimeout} {
		if *d == 0 {
			*d = redisTimeout
		}
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}
	if opt.MinRetryBackoff == 0 {
		opt.MinRetryBackoff = 200 * time.Millisecond
	}
	if opt.MaxRetryBackoff == 0 {
		opt.MaxRetryBackoff = 2 * time.Second
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = rc.PoolSize
	}
	if opt.PoolSize <= 0 {
		opt.PoolSize = 20
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = opt.PoolSize / 4
	}
}
