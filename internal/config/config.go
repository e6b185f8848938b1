// Package config loads application configuration from an optional
// config.yaml and LEADSCOUT_-prefixed environment variables, and owns the
// global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Qualify    QualifyConfig    `yaml:"qualify" mapstructure:"qualify"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds primary-provider settings. The per-minute cap and
// quota TTL guard account-wide limits, so they apply across every
// concurrent run in the process.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	VisionModel   string `yaml:"vision_model" mapstructure:"vision_model"`
	TextModel     string `yaml:"text_model" mapstructure:"text_model"`
	CallsPerMin   int    `yaml:"calls_per_min" mapstructure:"calls_per_min"`
	QuotaTTLHours int    `yaml:"quota_ttl_hours" mapstructure:"quota_ttl_hours"`
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds secondary-provider settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// DiscoveryConfig holds the search API settings.
type DiscoveryConfig struct {
	Key            string   `yaml:"key" mapstructure:"key"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	Limit          int      `yaml:"limit" mapstructure:"limit"`
	ExcludeDomains []string `yaml:"exclude_domains" mapstructure:"exclude_domains"`
}

// CrawlConfig configures the crawler pool and its cache.
type CrawlConfig struct {
	Browser           bool    `yaml:"browser" mapstructure:"browser"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContentChars   int     `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CacheDriver       string  `yaml:"cache_driver" mapstructure:"cache_driver"`
	CacheDSN          string  `yaml:"cache_dsn" mapstructure:"cache_dsn"`
	CacheTTLHours     int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// QualifyConfig configures scoring and fallback policy.
type QualifyConfig struct {
	TopThreshold    int    `yaml:"top_threshold" mapstructure:"top_threshold"`
	ReviewThreshold int    `yaml:"review_threshold" mapstructure:"review_threshold"`
	RetryAttempts   int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	BaseBackoffSecs int    `yaml:"base_backoff_secs" mapstructure:"base_backoff_secs"`
	KeywordsFile    string `yaml:"keywords_file" mapstructure:"keywords_file"`
	UseVision       bool   `yaml:"use_vision" mapstructure:"use_vision"`
	ExtractContacts bool   `yaml:"extract_contacts" mapstructure:"extract_contacts"`
}

// ServerConfig configures the event-stream server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging. When File is set, output goes to a rotated
// file instead of stderr.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys with no natural default get an empty one so viper
	// registers them; AutomaticEnv only resolves keys it already knows.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("discovery.key", "")
	v.SetDefault("log.file", "")
	v.SetDefault("qualify.keywords_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.text_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.calls_per_min", 30)
	v.SetDefault("anthropic.quota_ttl_hours", 24)
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("discovery.base_url", "https://api.exa.ai")
	v.SetDefault("discovery.limit", 10)
	v.SetDefault("discovery.exclude_domains", []string{
		"yelp.com", "linkedin.com", "facebook.com", "wikipedia.org", "indeed.com",
	})
	v.SetDefault("crawl.browser", true)
	v.SetDefault("crawl.timeout_secs", 45)
	v.SetDefault("crawl.max_content_chars", 12000)
	v.SetDefault("crawl.requests_per_second", 2)
	v.SetDefault("crawl.cache_driver", "sqlite")
	v.SetDefault("crawl.cache_dsn", "leadscout-cache.db")
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("qualify.top_threshold", 8)
	v.SetDefault("qualify.review_threshold", 4)
	v.SetDefault("qualify.retry_attempts", 4)
	v.SetDefault("qualify.base_backoff_secs", 2)
	v.SetDefault("qualify.use_vision", true)
	v.SetDefault("qualify.extract_contacts", true)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode
// ("qualify" or "serve"). Collects every problem rather than stopping at
// the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "qualify", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Anthropic.Key == "" && c.Perplexity.Key == "" {
		problems = append(problems, "at least one of anthropic.key or perplexity.key is required")
	}
	if c.Qualify.TopThreshold < 1 || c.Qualify.TopThreshold > 10 {
		problems = append(problems, "qualify.top_threshold must be between 1 and 10")
	}
	if c.Qualify.ReviewThreshold < 1 || c.Qualify.ReviewThreshold > 10 {
		problems = append(problems, "qualify.review_threshold must be between 1 and 10")
	}
	if c.Qualify.TopThreshold <= c.Qualify.ReviewThreshold {
		problems = append(problems, "qualify.top_threshold must be greater than qualify.review_threshold")
	}
	if c.Qualify.RetryAttempts < 1 || c.Qualify.RetryAttempts > 10 {
		problems = append(problems, "qualify.retry_attempts must be between 1 and 10")
	}
	if c.Anthropic.CallsPerMin < 1 {
		problems = append(problems, "anthropic.calls_per_min must be > 0")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	if cfg.File != "" {
		encCfg := zap.NewProductionEncoderConfig()
		var enc zapcore.Encoder
		if cfg.Format == "console" {
			enc = zapcore.NewConsoleEncoder(encCfg)
		} else {
			enc = zapcore.NewJSONEncoder(encCfg)
		}
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
		zap.ReplaceGlobals(zap.New(zapcore.NewCore(enc, sink, level)))
		return nil
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
