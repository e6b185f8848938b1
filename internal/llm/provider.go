// Package llm abstracts the model providers behind a single Submit
// interface so the qualifier's tier-fallback chain is an ordered list of
// adapters rather than per-provider conditionals.
package llm

import (
	"context"
	"strings"
)

// Request is a single scoring prompt. Screenshot, when set and supported by
// the adapter, is attached as vision input.
type Request struct {
	System     string
	Prompt     string
	Screenshot []byte // optional PNG
	MaxTokens  int
}

// Response carries the provider's raw output. Reasoning is the side-channel
// chain-of-thought some providers return separately from the answer.
type Response struct {
	Text         string
	Reasoning    string
	InputTokens  int
	OutputTokens int
}

// AnswerText selects the text to hand to the response parser: the primary
// channel unless it is empty or clearly chain-of-thought prose, in which
// case the side channel (when present) is appended as context ahead of it.
func (r *Response) AnswerText() string {
	primary := strings.TrimSpace(r.Text)
	side := strings.TrimSpace(r.Reasoning)

	if primary == "" {
		return side
	}
	if side != "" && looksLikeChainOfThought(primary) {
		// Keep both; the parser scans for the trailing JSON object anyway.
		return side + "\n" + primary
	}
	return primary
}

// cotPrefixes are openings typical of reasoning prose rather than a JSON
// answer.
var cotPrefixes = []string{
	"let me",
	"i need to",
	"i'll",
	"looking at",
	"first,",
	"okay,",
	"the user",
}

// looksLikeChainOfThought reports whether text reads as reasoning prose:
// it starts with a known thinking phrase, or is long and does not start
// with a JSON object.
func looksLikeChainOfThought(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(lower, "{") {
		return false
	}
	for _, p := range cotPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return len(lower) > 400 && !strings.Contains(lower[:40], "{")
}

// Provider submits one prompt to a model and returns its raw output.
// Implementations classify their errors using the resilience taxonomy:
// per-minute limits as RateLimitError, daily budget ceilings as QuotaError,
// server-side hiccups as TransientError.
type Provider interface {
	Name() string
	SupportsVision() bool
	Submit(ctx context.Context, req Request) (*Response, error)
}
