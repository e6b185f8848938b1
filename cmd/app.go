package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	sdkanthropic "github.com/sells-group/leadscout/pkg/anthropic"
	"github.com/sells-group/leadscout/pkg/perplexity"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/contacts"
	"github.com/sells-group/leadscout/internal/crawl"
	"github.com/sells-group/leadscout/internal/llm"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/qualify"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/throttle"
)

// appEnv wires the shared pieces of a qualification run. The limiter and
// quota tracker are process-wide: the provider's limits are account-wide,
// so every run must funnel through the same instances.
type appEnv struct {
	cfg       *config.Config
	limiter   *throttle.RateLimiter
	quota     *throttle.QuotaTracker
	metrics   *monitoring.Metrics
	cache     crawl.Cache
	secondary llm.Provider
}

func newAppEnv(c *config.Config) (*appEnv, error) {
	env := &appEnv{
		cfg:     c,
		limiter: throttle.NewRateLimiter(c.Anthropic.CallsPerMin),
		quota:   throttle.NewQuotaTracker(time.Duration(c.Anthropic.QuotaTTLHours) * time.Hour),
		metrics: monitoring.New(),
	}

	cache, err := crawl.NewCache(c.Crawl.CacheDriver, c.Crawl.CacheDSN,
		time.Duration(c.Crawl.CacheTTLHours)*time.Hour)
	if err != nil {
		return nil, eris.Wrap(err, "open crawl cache")
	}
	env.cache = cache

	if c.Perplexity.Key != "" {
		client := perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model))
		env.secondary = llm.NewPerplexityProvider(client, c.Perplexity.Model)
	}

	return env, nil
}

func (e *appEnv) Close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			zap.L().Warn("close crawl cache", zap.Error(err))
		}
	}
}

// newQualifier builds a qualifier for one rubric. The throttling state is
// shared; everything else is per-run.
func (e *appEnv) newQualifier(rubric string) (*qualify.Qualifier, error) {
	var primaryVision, primaryText llm.Provider
	if e.cfg.Anthropic.Key != "" {
		client := sdkanthropic.NewClient(e.cfg.Anthropic.Key)
		primaryVision = llm.NewAnthropicProvider(client, e.cfg.Anthropic.VisionModel, true)
		primaryText = llm.NewAnthropicProvider(client, e.cfg.Anthropic.TextModel, false)
	}

	keywords := qualify.DefaultKeywordConfig()
	if e.cfg.Qualify.KeywordsFile != "" {
		kw, err := qualify.LoadKeywordConfig(e.cfg.Qualify.KeywordsFile)
		if err != nil {
			return nil, eris.Wrap(err, "load keyword config")
		}
		keywords = kw
	}

	retry := resilience.ModelRetryConfig(time.Duration(e.cfg.Qualify.BaseBackoffSecs) * time.Second)
	retry.MaxAttempts = e.cfg.Qualify.RetryAttempts

	return qualify.New(primaryVision, primaryText, e.secondary, e.limiter, e.quota, e.metrics,
		qualify.Options{
			Rubric:    rubric,
			Keywords:  keywords,
			Retry:     retry,
			MaxTokens: e.cfg.Anthropic.MaxTokens,
		}), nil
}

func (e *appEnv) poolOpener() pipeline.PoolOpener {
	c := e.cfg.Crawl
	return func(ctx context.Context) (pipeline.Crawler, error) {
		return crawl.OpenPool(ctx, crawl.Config{
			Browser:           c.Browser,
			Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
			MaxContentChars:   c.MaxContentChars,
			RequestsPerSecond: c.RequestsPerSecond,
			Cache:             e.cache,
		})
	}
}

// newOrchestrator assembles a pipeline run for one rubric and sink.
func (e *appEnv) newOrchestrator(rubric string, sink pipeline.Sink) (*pipeline.Orchestrator, error) {
	q, err := e.newQualifier(rubric)
	if err != nil {
		return nil, err
	}

	var extractor pipeline.ContactExtractor
	if e.cfg.Qualify.ExtractContacts {
		extractor = contacts.New(e.secondary)
	}

	thresholds := model.TierThresholds{
		Top:    e.cfg.Qualify.TopThreshold,
		Review: e.cfg.Qualify.ReviewThreshold,
	}
	return pipeline.New(q, e.poolOpener(), extractor, sink, thresholds, e.metrics), nil
}
