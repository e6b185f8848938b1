package model

import (
	"strings"
	"time"
)

// CrawlContent is the result of fetching one URL. It is created fresh per
// fetch attempt and never mutated after construction.
//
// Invariant: Success implies non-empty Text or a Screenshot; !Success
// implies Error is set.
type CrawlContent struct {
	URL        string        `json:"url"`
	Success    bool          `json:"success"`
	Text       string        `json:"text,omitempty"`
	Title      string        `json:"title,omitempty"`
	Screenshot []byte        `json:"screenshot,omitempty"`
	Language   string        `json:"language,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ms,omitempty"`
	Source     string        `json:"source,omitempty"` // "browser", "http", "search", "cache"
}

// HasText reports whether the content carries usable page text.
func (c *CrawlContent) HasText() bool {
	return c != nil && strings.TrimSpace(c.Text) != ""
}

// HasScreenshot reports whether a screenshot was captured.
func (c *CrawlContent) HasScreenshot() bool {
	return c != nil && len(c.Screenshot) > 0
}

// ContentFromSnippet builds a CrawlContent from pre-fetched search text,
// so the qualifier is agnostic to whether a live crawl happened.
func ContentFromSnippet(url, snippet string) *CrawlContent {
	return &CrawlContent{
		URL:     url,
		Success: strings.TrimSpace(snippet) != "",
		Text:    snippet,
		Source:  "search",
	}
}

// FailedContent builds a CrawlContent describing a failed fetch.
func FailedContent(url, reason string) *CrawlContent {
	return &CrawlContent{
		URL:     url,
		Success: false,
		Error:   reason,
	}
}
