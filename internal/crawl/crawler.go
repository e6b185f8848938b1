// Package crawl fetches candidate websites and returns their content in a
// uniform shape regardless of which fetch path served the request. The
// primary path drives a shared headless browser (screenshot-capable); the
// degraded path is a plain HTTP fetch. Results are optionally cached.
package crawl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

// Config controls pool behavior.
type Config struct {
	// Browser enables the chromedp path. When false, or when the browser
	// fails to start, the pool serves everything from the HTTP path.
	Browser bool

	// Timeout bounds a single fetch attempt.
	Timeout time.Duration

	// MaxContentChars caps cleaned text before it reaches the qualifier.
	MaxContentChars int

	// Retry is the per-crawl retry policy. Zero value uses defaults
	// (3 attempts).
	Retry resilience.RetryConfig

	// Cache, when non-nil, is consulted before fetching and updated after.
	Cache Cache

	// RequestsPerSecond throttles the HTTP path per pool. Zero disables.
	RequestsPerSecond float64
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 12000
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = resilience.DefaultRetryConfig()
	}
	return c
}

// Pool serves many crawls from one shared browser allocator (or one shared
// HTTP client). It must be closed; Close is safe under error paths and
// cancellation.
type Pool struct {
	cfg     Config
	browser *browserCrawler
	local   *localCrawler
}

// OpenPool starts a crawler pool. A browser startup failure degrades to the
// HTTP-only path rather than failing the pool, since both paths produce the
// same CrawlContent shape.
func OpenPool(ctx context.Context, cfg Config) (*Pool, error) {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:   cfg,
		local: newLocalCrawler(cfg),
	}

	if cfg.Browser {
		b, err := openBrowserCrawler(ctx, cfg)
		if err != nil {
			zap.L().Warn("crawl: browser unavailable, using http fallback", zap.Error(err))
		} else {
			p.browser = b
		}
	}
	return p, nil
}

// Close releases the shared browser. Idempotent.
func (p *Pool) Close() {
	if p.browser != nil {
		p.browser.close()
		p.browser = nil
	}
}

// Crawl fetches one URL with retries, preferring the browser path when a
// screenshot is wanted and the browser is available. The returned content
// always satisfies the CrawlContent invariant; fetch failures are reported
// in-band with Success=false rather than as an error. The error return is
// reserved for context cancellation.
func (p *Pool) Crawl(ctx context.Context, url string, wantScreenshot bool) (*model.CrawlContent, error) {
	if cached, ok := p.cacheGet(ctx, url, wantScreenshot); ok {
		return cached, nil
	}

	start := time.Now()
	retry := p.cfg.Retry
	retry.OnRetry = resilience.RetryLogger("crawler", "fetch")
	retry.ShouldRetry = func(err error) bool {
		return ctx.Err() == nil // every fetch error is worth retrying, cancellation is not
	}

	content, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.CrawlContent, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
		return p.fetchOnce(attemptCtx, url, wantScreenshot)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Debug("crawl: all attempts failed", zap.String("url", url), zap.Error(err))
		return model.FailedContent(url, err.Error()), nil
	}

	content.Elapsed = time.Since(start)
	content.Text = Truncate(content.Text, p.cfg.MaxContentChars)
	content.Language = DetectLanguage(content.Text)
	p.cacheSet(ctx, content)
	return content, nil
}

func (p *Pool) fetchOnce(ctx context.Context, url string, wantScreenshot bool) (*model.CrawlContent, error) {
	if p.browser != nil {
		content, err := p.browser.fetch(ctx, url, wantScreenshot)
		if err == nil {
			return content, nil
		}
		zap.L().Debug("crawl: browser fetch failed, trying http",
			zap.String("url", url), zap.Error(err))
	}
	return p.local.fetch(ctx, url)
}

func (p *Pool) cacheGet(ctx context.Context, url string, wantScreenshot bool) (*model.CrawlContent, bool) {
	if p.cfg.Cache == nil {
		return nil, false
	}
	cached, ok := p.cfg.Cache.Get(ctx, url)
	if !ok {
		return nil, false
	}
	// Cached entries never carry screenshots; a screenshot request must
	// go to the network.
	if wantScreenshot {
		return nil, false
	}
	cached.Source = "cache"
	return cached, true
}

func (p *Pool) cacheSet(ctx context.Context, content *model.CrawlContent) {
	if p.cfg.Cache == nil || !content.Success || !content.HasText() {
		return
	}
	stripped := *content
	stripped.Screenshot = nil
	if err := p.cfg.Cache.Set(ctx, &stripped); err != nil {
		zap.L().Debug("crawl: cache write failed", zap.String("url", content.URL), zap.Error(err))
	}
}
