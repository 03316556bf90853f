package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ttms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Scoring.TopN)
	assert.Equal(t, 200, cfg.Scoring.HolderChunkSize)
	assert.Equal(t, 200, cfg.Scoring.VolumeChunkSize)
	assert.Equal(t, 5*time.Minute, cfg.Redis.RankingTTL)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, 10, cfg.DB.MaxOpenConns)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 3, cfg.Scoring.RetryAttempts)
	assert.Equal(t, 3*time.Second, cfg.Scoring.RetryDelay)
	assert.Empty(t, cfg.Notify.TelegramChannels)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ttms")
	t.Setenv("TELEGRAM_CHANNELS", " @ttms_main, -100123 ,,")
	t.Setenv("RETRY_DELAY", "500ms")
	t.Setenv("CODEX_MIN_LIQUIDITY", "12500.5")
	t.Setenv("TWITTER_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"@ttms_main", "-100123"}, cfg.Notify.TelegramChannels)
	assert.Equal(t, 500*time.Millisecond, cfg.Scoring.RetryDelay)
	assert.InDelta(t, 12500.5, cfg.Codex.MinLiquidity, 1e-9)
	assert.True(t, cfg.Notify.TwitterEnabled)
}

func TestValidateRejectsBadPaging(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ttms")
	t.Setenv("CODEX_PAGE_SIZE", "500")
	t.Setenv("CODEX_MAX_OFFSET", "100")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsLogSettingsFromDotEnv(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "LOG_LEVEL", "LOG_ENCODING"} {
		if _, set := os.LookupEnv(key); set {
			t.Skipf("%s is set in the environment", key)
		}
		key := key
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DATABASE_URL=postgres://localhost/ttms\nLOG_LEVEL=warn\nLOG_ENCODING=console\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LogConfig{Level: "warn", Encoding: "console"}, cfg.Log)
}

func TestValidateRejectsNonPositiveRankingTTL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ttms")
	t.Setenv("RANKING_CACHE_TTL", "0s")

	_, err := Load()
	require.Error(t, err)
}
