// Package pipeline drives the two-phase qualification loop over a batch of
// candidates and streams typed events to a caller-supplied sink. Phase 1
// qualifies every candidate from the cheapest available content source;
// Phase 2 re-crawls only the top tier for screenshots and contacts.
package pipeline

import (
	"sync"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

// EventType discriminates pipeline events.
type EventType string

const (
	EventInit       EventType = "init"
	EventProgress   EventType = "progress"
	EventResult     EventType = "result"
	EventError      EventType = "error"
	EventEnrichment EventType = "enrichment"
	EventComplete   EventType = "complete"
)

// Phase labels progress events.
type Phase string

const (
	PhaseQualifying Phase = "qualifying"
	PhaseEnriching  Phase = "enriching"
)

// Result pairs a candidate with its verdict and tier for result events.
type Result struct {
	Candidate model.Candidate `json:"candidate"`
	Verdict   model.Verdict   `json:"verdict"`
	Tier      model.Tier      `json:"tier"`
}

// Enrichment carries Phase 2 findings for one top-tier candidate.
type Enrichment struct {
	Candidate     model.Candidate `json:"candidate"`
	Contacts      []model.Contact `json:"contacts,omitempty"`
	HasScreenshot bool            `json:"has_screenshot"`
}

// Event is one entry in the run's append-only event stream. Consumers must
// tolerate any event type being absent from a given run.
type Event struct {
	Type      EventType   `json:"type"`
	RunID     string      `json:"run_id"`
	Timestamp time.Time   `json:"timestamp"`
	Total     int         `json:"total,omitempty"`
	Phase     Phase       `json:"phase,omitempty"`
	Index     int         `json:"index"`
	Company   string      `json:"company,omitempty"`
	Result    *Result     `json:"result,omitempty"`
	Enriched  *Enrichment `json:"enrichment,omitempty"`
	Error     string      `json:"error,omitempty"`
	Fatal     bool        `json:"fatal,omitempty"`
	Summary   *Stats      `json:"summary,omitempty"`
}

// Sink receives pipeline events. Emit must not block for long; slow
// consumers should buffer on their side.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Collector is a Sink that records every event, for tests and for callers
// that want the full stream after the run.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the stream so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Stats are the batch tallies carried by the complete event.
type Stats struct {
	Total    int `json:"total"`
	Top      int `json:"top"`
	Review   int `json:"review"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
	Enriched int `json:"enriched"`
}

func (s *Stats) tally(tier model.Tier) {
	switch tier {
	case model.TierTop:
		s.Top++
	case model.TierReview:
		s.Review++
	case model.TierRejected:
		s.Rejected++
	}
}
