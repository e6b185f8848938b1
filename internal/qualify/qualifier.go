// Package qualify scores candidate companies against a rubric. It owns the
// model-tier fallback chain (primary vision, primary text, secondary
// provider, keyword-only) and the response-parsing recovery ladder.
package qualify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/llm"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/throttle"
)

// tierSpec pairs a provider adapter with its dispatch policy. The qualifier
// walks tiers in order and stops at the first success.
type tierSpec struct {
	provider llm.Provider
	// primary tiers are gated by the shared quota tracker and pass through
	// the shared rate limiter before every call.
	primary bool
	// needsScreenshot restricts a tier to requests that carry one.
	needsScreenshot bool
	// method labels verdicts produced by this tier.
	method string
}

// Options configures a Qualifier.
type Options struct {
	// Rubric is the caller-supplied fit criteria. Empty selects the fixed
	// keyword lists for pre-checks and fallback scoring.
	Rubric string

	// Keywords holds the fallback keyword lists and formula constants.
	Keywords KeywordConfig

	// Retry is the per-tier retry policy for model calls.
	Retry resilience.RetryConfig

	// MaxTokens caps model output per call. Default 1024.
	MaxTokens int
}

// Qualifier produces a fit verdict per candidate. Qualify never fails: all
// failure paths terminate in a returned verdict.
type Qualifier struct {
	tiers    []tierSpec
	limiter  *throttle.RateLimiter
	quota    *throttle.QuotaTracker
	opts     Options
	metrics  *monitoring.Metrics
	haveLLMs bool
}

// New creates a Qualifier. primaryVision and primaryText may be nil (no
// primary provider configured); secondary may be nil as well, in which case
// everything falls through to keyword scoring.
func New(
	primaryVision, primaryText, secondary llm.Provider,
	limiter *throttle.RateLimiter,
	quota *throttle.QuotaTracker,
	metrics *monitoring.Metrics,
	opts Options,
) *Qualifier {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.ModelRetryConfig(0)
	}
	if opts.Keywords.RubricMatchWeight == 0 {
		opts.Keywords = DefaultKeywordConfig()
	}

	q := &Qualifier{
		limiter: limiter,
		quota:   quota,
		opts:    opts,
		metrics: metrics,
	}
	if primaryVision != nil {
		q.tiers = append(q.tiers, tierSpec{provider: primaryVision, primary: true, needsScreenshot: true, method: "vision"})
	}
	if primaryText != nil {
		q.tiers = append(q.tiers, tierSpec{provider: primaryText, primary: true, method: "text"})
	}
	if secondary != nil {
		q.tiers = append(q.tiers, tierSpec{provider: secondary, method: "secondary"})
	}
	q.haveLLMs = len(q.tiers) > 0
	return q
}

// Qualify scores one candidate from its crawled content. useVision requests
// screenshot-assisted scoring when a screenshot is present.
func (q *Qualifier) Qualify(ctx context.Context, name, url string, content *model.CrawlContent, useVision bool) model.Verdict {
	log := zap.L().With(zap.String("company", name), zap.String("url", url))

	// Unusable content short-circuits: no model call.
	if content == nil || !content.Success || (!content.HasText() && !content.HasScreenshot()) {
		reason := "unknown crawl failure"
		if content != nil && content.Error != "" {
			reason = content.Error
		}
		q.metrics.ObserveCrawlFailure()
		return model.Verdict{
			Qualified: false,
			Score:     1,
			Reasoning: "Website inaccessible, no content to evaluate: " + reason,
			RedFlags:  []string{"website inaccessible: " + reason},
			Method:    "crawl_failed",
		}
	}

	// Quick negative-keyword gate, only with the fixed rubric: a
	// caller-supplied rubric is targeted enough that the generic negative
	// list would misfire.
	if strings.TrimSpace(q.opts.Rubric) == "" && content.HasText() {
		negOccur := countOccurrences(content.Text, q.opts.Keywords.Negative)
		posHits, _ := countHits(content.Text, q.opts.Keywords.Positive)
		if negOccur >= q.opts.Keywords.PrecheckNegativeMin && posHits == 0 {
			log.Debug("qualify: negative keyword pre-check rejection",
				zap.Int("negative_occurrences", negOccur))
			return model.Verdict{
				Qualified: false,
				Score:     2,
				Reasoning: "Rejected by negative-keyword pre-check: repeated off-target industry signals with no positive signals.",
				RedFlags:  []string{"negative industry keywords dominate site content"},
				Method:    "keyword",
			}
		}
	}

	prompt := buildPrompt(name, url, q.opts.Rubric, content.Text, useVision && content.HasScreenshot())

	for _, tier := range q.tiers {
		if tier.needsScreenshot && (!useVision || !content.HasScreenshot()) {
			continue
		}
		if tier.primary && q.quota.IsExhausted() {
			log.Debug("qualify: skipping primary tier, quota exhausted",
				zap.String("tier", tier.provider.Name()))
			continue
		}

		verdict, err := q.submitTier(ctx, tier, prompt, content, useVision)
		if err == nil {
			verdict.Method = tier.method
			return verdict
		}

		if resilience.IsQuotaExhausted(err) {
			// Control-signal escape: record and fall straight through to
			// the next tier without burning retries.
			if tier.primary {
				q.quota.MarkExhausted()
			}
			q.metrics.ObserveModelCall(tier.provider.Name(), "quota")
			log.Warn("qualify: tier aborted on quota exhaustion",
				zap.String("tier", tier.provider.Name()))
			continue
		}

		q.metrics.ObserveModelCall(tier.provider.Name(), "error")
		log.Warn("qualify: tier failed after retries",
			zap.String("tier", tier.provider.Name()),
			zap.Error(err),
		)
	}

	// No provider usable at all.
	if q.haveLLMs {
		log.Info("qualify: all model tiers unavailable, using keyword fallback")
	}
	if strings.TrimSpace(q.opts.Rubric) != "" {
		return q.opts.Keywords.scoreAgainstRubric(q.opts.Rubric, content.Text)
	}
	return q.opts.Keywords.scoreAgainstLists(content.Text)
}

// submitTier runs one provider tier under the retry policy and parses the
// response. The shared rate limiter is acquired before every primary call,
// including retries.
func (q *Qualifier) submitTier(ctx context.Context, tier tierSpec, prompt string, content *model.CrawlContent, useVision bool) (model.Verdict, error) {
	req := llm.Request{
		System:    verdictSystemPrompt,
		Prompt:    prompt,
		MaxTokens: q.opts.MaxTokens,
	}
	if tier.provider.SupportsVision() && useVision && content.HasScreenshot() {
		req.Screenshot = content.Screenshot
	}

	retry := q.opts.Retry
	retry.OnRetry = resilience.RetryLogger(tier.provider.Name(), "qualify")

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*llm.Response, error) {
		if tier.primary && q.limiter != nil {
			if err := q.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}
		return tier.provider.Submit(ctx, req)
	})
	if err != nil {
		return model.Verdict{}, err
	}

	q.metrics.ObserveModelCall(tier.provider.Name(), "ok")
	return ParseVerdict(resp.AnswerText()), nil
}
