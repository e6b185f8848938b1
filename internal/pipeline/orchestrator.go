package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
)

// Qualifier scores one candidate's content. Implemented by
// internal/qualify.Qualifier; the rubric is fixed at qualifier construction.
type Qualifier interface {
	Qualify(ctx context.Context, name, url string, content *model.CrawlContent, useVision bool) model.Verdict
}

// Crawler is the pool surface the orchestrator needs. Implemented by
// internal/crawl.Pool.
type Crawler interface {
	Crawl(ctx context.Context, url string, wantScreenshot bool) (*model.CrawlContent, error)
	ContactPages(ctx context.Context, baseURL string) string
	Close()
}

// PoolOpener opens a fresh crawler pool. Each phase that crawls opens its
// own pool and closes it before returning.
type PoolOpener func(ctx context.Context) (Crawler, error)

// ContactExtractor pulls contacts from combined page text during Phase 2.
type ContactExtractor interface {
	Extract(ctx context.Context, companyName, text string) []model.Contact
}

// Orchestrator runs qualification batches. Safe for use by one run at a
// time; the shared throttling state lives inside the Qualifier, so separate
// Orchestrator values still serialize correctly against the provider.
type Orchestrator struct {
	qualifier  Qualifier
	openPool   PoolOpener
	extractor  ContactExtractor
	sink       Sink
	thresholds model.TierThresholds
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// New builds an Orchestrator. extractor, sink and metrics may be nil; a nil
// extractor disables contact extraction in Phase 2, a nil sink discards
// events.
func New(q Qualifier, open PoolOpener, extractor ContactExtractor, sink Sink, thresholds model.TierThresholds, metrics *monitoring.Metrics) *Orchestrator {
	if thresholds.Top == 0 && thresholds.Review == 0 {
		thresholds = model.DefaultTierThresholds()
	}
	return &Orchestrator{
		qualifier:  q,
		openPool:   open,
		extractor:  extractor,
		sink:       sink,
		thresholds: thresholds,
		metrics:    metrics,
		log:        zap.L().Named("pipeline"),
	}
}

func (o *Orchestrator) emit(e Event) {
	if o.sink == nil {
		return
	}
	e.Timestamp = time.Now()
	o.sink.Emit(e)
}

type deferred struct {
	index     int
	candidate model.Candidate
	verdict   model.Verdict
}

// Run qualifies every candidate and enriches the top tier, emitting events
// to sink throughout. Candidates are processed in input order; callers sort
// by relevance descending beforehand. Per-candidate failures are tallied
// and the batch continues; only shared-setup failures are fatal. On fatal
// failure an error event with Fatal set is emitted and no complete event
// follows. Cancellation is observed between candidates; a cancelled run
// returns ctx.Err() without further events.
func (o *Orchestrator) Run(ctx context.Context, candidates []model.Candidate, useVision bool) (*Stats, error) {
	return o.run(ctx, uuid.NewString(), candidates, useVision)
}

func (o *Orchestrator) run(ctx context.Context, runID string, candidates []model.Candidate, useVision bool) (*Stats, error) {
	stats := &Stats{Total: len(candidates)}
	o.metrics.ObserveBatchRun()
	o.emit(Event{Type: EventInit, RunID: runID, Total: len(candidates)})

	needPool := false
	for _, c := range candidates {
		if !c.HasSnippet() {
			needPool = true
			break
		}
	}

	var pool Crawler
	if needPool {
		p, err := o.openPool(ctx)
		if err != nil {
			o.emit(Event{
				Type:  EventError,
				RunID: runID,
				Error: eris.Wrap(err, "pipeline: open crawler pool").Error(),
				Fatal: true,
			})
			return stats, eris.Wrap(err, "pipeline: open crawler pool")
		}
		pool = p
		defer pool.Close()
	}

	var deferredList []deferred
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		result, err := o.qualifyOne(ctx, runID, pool, i, candidate, useVision)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			o.emit(Event{
				Type:    EventError,
				RunID:   runID,
				Index:   i,
				Company: candidate.DisplayName(),
				Error:   err.Error(),
			})
			continue
		}

		o.emit(Event{
			Type:    EventResult,
			RunID:   runID,
			Index:   i,
			Company: candidate.DisplayName(),
			Result:  result,
		})
		stats.tally(result.Tier)
		o.metrics.ObserveCandidate(string(result.Tier))

		if result.Tier == model.TierTop {
			deferredList = append(deferredList, deferred{
				index: i, candidate: candidate, verdict: result.Verdict,
			})
		}
	}

	if len(deferredList) > 0 {
		if err := o.enrich(ctx, runID, deferredList, stats); err != nil {
			return stats, err
		}
	}

	o.emit(Event{Type: EventComplete, RunID: runID, Summary: stats})
	return stats, nil
}

// qualifyOne runs one Phase 1 iteration. The returned error marks the
// candidate failed; it never aborts the batch.
func (o *Orchestrator) qualifyOne(ctx context.Context, runID string, pool Crawler, index int, candidate model.Candidate, useVision bool) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: panic qualifying %s: %v", candidate.DisplayName(), r)
			o.log.Error("recovered panic in qualify loop",
				zap.String("company", candidate.DisplayName()), zap.Any("panic", r))
		}
	}()

	o.emit(Event{
		Type:    EventProgress,
		RunID:   runID,
		Phase:   PhaseQualifying,
		Index:   index,
		Company: candidate.DisplayName(),
	})

	start := time.Now()
	var content *model.CrawlContent
	liveCrawl := false
	if candidate.HasSnippet() {
		content = model.ContentFromSnippet(candidate.URL, candidate.Snippet)
	} else {
		liveCrawl = true
		if pool == nil {
			return nil, eris.New("pipeline: no crawler pool for live crawl")
		}
		c, crawlErr := pool.Crawl(ctx, candidate.URL, useVision)
		if crawlErr != nil {
			return nil, crawlErr // pool errors are cancellation only
		}
		content = c
	}

	var verdict model.Verdict
	if liveCrawl && !content.Success {
		// An unreachable site is not evidence against the company;
		// bot protection blocks legitimate businesses all the time.
		// Park it in the review tier instead of auto-rejecting.
		verdict = inaccessibleVerdict(content)
		o.metrics.ObserveCrawlFailure()
	} else {
		verdict = o.qualifier.Qualify(ctx, candidate.DisplayName(), candidate.URL, content, liveCrawl && useVision)
	}
	o.metrics.ObserveQualifyDuration(time.Since(start))

	tier := o.thresholds.TierFor(verdict.Score)
	return &Result{Candidate: candidate, Verdict: verdict, Tier: tier}, nil
}

func inaccessibleVerdict(content *model.CrawlContent) model.Verdict {
	reason := content.Error
	if reason == "" {
		reason = "no content returned"
	}
	return model.Verdict{
		Qualified: false,
		Score:     5,
		Reasoning: "website could not be crawled; flagged for manual review",
		RedFlags:  []string{fmt.Sprintf("website inaccessible: %s", reason)},
		Partial:   true,
		Method:    "crawl_failed",
	}
}

// enrich runs Phase 2 over the deferred top-tier candidates with a fresh
// pool. Per-candidate errors are logged and swallowed.
func (o *Orchestrator) enrich(ctx context.Context, runID string, list []deferred, stats *Stats) error {
	pool, err := o.openPool(ctx)
	if err != nil {
		o.emit(Event{
			Type:  EventError,
			RunID: runID,
			Error: eris.Wrap(err, "pipeline: open enrichment pool").Error(),
			Fatal: true,
		})
		return eris.Wrap(err, "pipeline: open enrichment pool")
	}
	defer pool.Close()

	for _, d := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.emit(Event{
			Type:    EventProgress,
			RunID:   runID,
			Phase:   PhaseEnriching,
			Index:   d.index,
			Company: d.candidate.DisplayName(),
		})
		enr := o.enrichOne(ctx, pool, d)
		if enr == nil {
			continue
		}
		stats.Enriched++
		o.emit(Event{
			Type:     EventEnrichment,
			RunID:    runID,
			Index:    d.index,
			Company:  d.candidate.DisplayName(),
			Enriched: enr,
		})
	}
	return nil
}

// enrichOne returns nil when nothing worth emitting was found or the
// candidate errored.
func (o *Orchestrator) enrichOne(ctx context.Context, pool Crawler, d deferred) (enr *Enrichment) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Warn("recovered panic in enrichment loop",
				zap.String("company", d.candidate.DisplayName()), zap.Any("panic", r))
			enr = nil
		}
	}()

	content, err := pool.Crawl(ctx, d.candidate.URL, true)
	if err != nil || !content.Success {
		o.log.Debug("enrichment crawl failed",
			zap.String("company", d.candidate.DisplayName()), zap.Error(err))
		return nil
	}

	combined := content.Text
	if extra := pool.ContactPages(ctx, d.candidate.URL); extra != "" {
		combined += "\n\n" + extra
	}

	var contacts []model.Contact
	if o.extractor != nil {
		contacts = o.extractor.Extract(ctx, d.candidate.DisplayName(), combined)
	}

	if len(contacts) == 0 && !content.HasScreenshot() {
		return nil
	}
	return &Enrichment{
		Candidate:     d.candidate,
		Contacts:      contacts,
		HasScreenshot: content.HasScreenshot(),
	}
}
