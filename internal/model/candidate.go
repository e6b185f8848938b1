// Package model defines the core domain types shared across the
// qualification pipeline: candidates, crawled content, verdicts, and tiers.
package model

import (
	"net/url"
	"strings"
)

// Candidate is one prospective company under evaluation. Candidates are
// immutable once queued into the pipeline; verdicts are attached externally,
// keyed by list position.
type Candidate struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Name   string `json:"name"`

	// Snippet is pre-fetched page text from the upstream search step.
	// When non-empty the pipeline skips the live crawl for Phase 1.
	Snippet string `json:"snippet,omitempty"`

	// Highlight is the search API's most relevant excerpt, if any.
	Highlight string `json:"highlight,omitempty"`

	// Relevance is the upstream relevance score used to pre-sort batches.
	Relevance float64 `json:"relevance,omitempty"`
}

// HasSnippet reports whether the candidate carries usable pre-fetched text.
func (c Candidate) HasSnippet() bool {
	return strings.TrimSpace(c.Snippet) != ""
}

// DisplayName returns the candidate name, falling back to the domain.
func (c Candidate) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Domain != "" {
		return c.Domain
	}
	return c.URL
}

// DomainOf extracts the registrable host from a URL, stripping "www.".
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Contact is a person extracted from a company's site during enrichment.
type Contact struct {
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}
