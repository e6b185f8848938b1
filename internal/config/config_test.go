package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtmp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Anthropic.CallsPerMin)
	assert.Equal(t, 24, cfg.Anthropic.QuotaTTLHours)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, 10, cfg.Discovery.Limit)
	assert.Contains(t, cfg.Discovery.ExcludeDomains, "yelp.com")
	assert.True(t, cfg.Crawl.Browser)
	assert.Equal(t, 45, cfg.Crawl.TimeoutSecs)
	assert.Equal(t, 12000, cfg.Crawl.MaxContentChars)
	assert.Equal(t, "sqlite", cfg.Crawl.CacheDriver)
	assert.Equal(t, 24, cfg.Crawl.CacheTTLHours)
	assert.Equal(t, 8, cfg.Qualify.TopThreshold)
	assert.Equal(t, 4, cfg.Qualify.ReviewThreshold)
	assert.Equal(t, 4, cfg.Qualify.RetryAttempts)
	assert.Equal(t, 2, cfg.Qualify.BaseBackoffSecs)
	assert.True(t, cfg.Qualify.UseVision)
}

func TestLoadFromYAML(t *testing.T) {
	chtmp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
qualify:
  top_threshold: 9
crawl:
  cache_driver: redis
  cache_dsn: redis://localhost:6379/0
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Qualify.TopThreshold)
	assert.Equal(t, "redis", cfg.Crawl.CacheDriver)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Qualify.ReviewThreshold)
	assert.Equal(t, 45, cfg.Crawl.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtmp(t)

	yaml := `
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSCOUT_LOG_LEVEL", "warn")
	t.Setenv("LEADSCOUT_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadSecretsFromEnvOnly(t *testing.T) {
	// Keys that appear in neither config.yaml nor the defaults must still
	// come through from the environment.
	chtmp(t)

	t.Setenv("LEADSCOUT_PERPLEXITY_KEY", "pplx-env")
	t.Setenv("LEADSCOUT_DISCOVERY_KEY", "exa-env")
	t.Setenv("LEADSCOUT_QUALIFY_KEYWORDS_FILE", "keywords.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pplx-env", cfg.Perplexity.Key)
	assert.Equal(t, "exa-env", cfg.Discovery.Key)
	assert.Equal(t, "keywords.yaml", cfg.Qualify.KeywordsFile)
	assert.NoError(t, cfg.Validate("qualify"))
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtmp(t)

	t.Setenv("LEADSCOUT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func validDefaults(t *testing.T) *Config {
	t.Helper()
	chtmp(t)
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Anthropic.Key = "sk-ant-key"
	return cfg
}

func TestValidateQualify(t *testing.T) {
	cfg := validDefaults(t)
	assert.NoError(t, cfg.Validate("qualify"))
}

func TestValidateNoProviderKey(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Anthropic.Key = ""

	err := cfg.Validate("qualify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key or perplexity.key")

	// a perplexity key alone is enough
	cfg.Perplexity.Key = "pplx-key"
	assert.NoError(t, cfg.Validate("qualify"))
}

func TestValidateThresholdBounds(t *testing.T) {
	cfg := validDefaults(t)

	cfg.Qualify.TopThreshold = 11
	err := cfg.Validate("qualify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_threshold must be between 1 and 10")

	cfg.Qualify.TopThreshold = 5
	cfg.Qualify.ReviewThreshold = 6
	err = cfg.Validate("qualify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than qualify.review_threshold")
}

func TestValidateServePort(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// port is not required for one-shot qualify runs
	assert.NoError(t, cfg.Validate("qualify"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults(t)
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestInitLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadscout.log")
	err := InitLogger(LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	zap.L().Info("hello")
	require.NoError(t, zap.L().Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
