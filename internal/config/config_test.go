package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VYBE_API_KEY", "secret")

	cfg := Load()

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "https://api.vybenetwork.xyz", cfg.BaseURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BackoffBase)
	assert.Equal(t, 24*time.Hour, cfg.PriceWindow)
	assert.Equal(t, "1 hour", cfg.PriceStride)
	assert.Equal(t, "day", cfg.HolderInterval)
	assert.Equal(t, "processed_data.json", cfg.OutputPath)
	assert.False(t, cfg.ConcurrentFetch)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VYBE_API_KEY", "secret")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("BACKOFF_BASE", "250ms")
	t.Setenv("CONCURRENT_FETCH", "true")
	t.Setenv("UPSTREAM_RPS", "2.5")
	t.Setenv("TOKEN_IDS", " abc, ,def ")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("WEBHOOK_SIGNING_KEY", "0xabc")

	cfg := Load()

	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffBase)
	assert.True(t, cfg.ConcurrentFetch)
	assert.Equal(t, 2.5, cfg.UpstreamRPS)
	assert.Equal(t, []string{"abc", "def"}, cfg.TokenIDs)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "0xabc", cfg.WebhookSigningKey)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("BACKOFF_BASE", "soon")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BackoffBase)
}

func TestValidate(t *testing.T) {
	cfg := Config{MaxRetries: 0, PriceWindow: time.Hour}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VYBE_API_KEY")
	assert.Contains(t, err.Error(), "MAX_RETRIES")
}

func TestValidate_LimiterBurst(t *testing.T) {
	base := Config{APIKey: "k", MaxRetries: 3, PriceWindow: time.Hour}

	cfg := base
	cfg.UpstreamRPS, cfg.UpstreamBurst = 5, 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_BURST")

	cfg = base
	cfg.RateLimitRPS, cfg.RateLimitBurst = 5, 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_BURST")

	cfg = base
	cfg.UpstreamRPS, cfg.UpstreamBurst = 5, 1
	cfg.RateLimitBurst = 0
	assert.NoError(t, cfg.Validate(), "burst is irrelevant while its limiter is off")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VYBE_API_KEY=from-file\nHOLDER_INTERVAL=week\n"), 0o600))

	// registered so t restores the variables godotenv sets
	t.Setenv("VYBE_API_KEY", "")
	t.Setenv("HOLDER_INTERVAL", "")
	os.Unsetenv("VYBE_API_KEY")
	os.Unsetenv("HOLDER_INTERVAL")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "week", cfg.HolderInterval)
}

func TestLoadFromFile_Missing(t *testing.T) {
	t.Setenv("VYBE_API_KEY", "env")

	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.APIKey)
}
