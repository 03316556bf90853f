package db

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ttms-project/backend/internal/config"
)

func TestLogLevelFollowsEnv(t *testing.T) {
	assert.Equal(t, gormLogger.Info, LogLevel("development"))
	assert.Equal(t, gormLogger.Warn, LogLevel("staging"))
	assert.Equal(t, gormLogger.Silent, LogLevel("test"))
	assert.Equal(t, gormLogger.Error, LogLevel("production"))
}

func TestPoolOptionsNormalize(t *testing.T) {
	open, idle := PoolOptions{}.normalize()
	assert.Equal(t, 10, open)
	assert.Equal(t, 5, idle)

	open, idle = PoolOptions{MaxOpenConns: 3, MaxIdleConns: 8}.normalize()
	assert.Equal(t, 3, open)
	assert.Equal(t, 3, idle)
}

func TestApplyRedisDefaultsKeepsURLOptions(t *testing.T) {
	opt, err := redis.ParseURL("redis://localhost:6379/2?pool_size=7&read_timeout=1s")
	require.NoError(t, err)

	applyRedisDefaults(opt, config.RedisConfig{PoolSize: 40})
	assert.Equal(t, 7, opt.PoolSize)
	assert.Equal(t, time.Second, opt.ReadTimeout)
	assert.Equal(t, redisTimeout, opt.WriteTimeout)
	assert.Equal(t, 1, opt.MinIdleConns)

	opt = &redis.Options{}
	applyRedisDefaults(opt, config.RedisConfig{PoolSize: 40})
	assert.Equal(t, 40, opt.PoolSize)
	assert.Equal(t, 10, opt.MinIdleConns)
	assert.Equal(t, 2, opt.MaxRetries)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{Redis: config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 4, RankingTTL: time.Minute}}

	client, err := ConnectRedis(cfg)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, 4, client.Options().PoolSize)

	mr.Close()
	_, err = ConnectRedis(cfg)
	assert.Error(t, err)
}
