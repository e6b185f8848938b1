// Package discovery finds candidate companies via a neural web-search API
// and shapes the results into pipeline candidates. Search results carry
// pre-fetched page text, which lets the first qualification phase run
// without touching the candidate sites at all.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

// Client defines the discovery search operations.
type Client interface {
	// Search runs a query and returns candidates sorted by relevance,
	// highest first.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]model.Candidate, error)
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	limit          int
	excludeDomains []string
	category       string
}

// WithLimit caps the number of results. The API default is 10.
func WithLimit(n int) SearchOption {
	return func(o *searchOpts) { o.limit = n }
}

// WithExcludeDomains removes known-bad domains (aggregators, directories)
// from the results server-side.
func WithExcludeDomains(domains ...string) SearchOption {
	return func(o *searchOpts) { o.excludeDomains = domains }
}

// WithCategory restricts results to an API category such as "company".
func WithCategory(c string) SearchOption {
	return func(o *searchOpts) { o.category = c }
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a discovery search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.exa.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query          string   `json:"query"`
	Type           string   `json:"type"`
	NumResults     int      `json:"numResults,omitempty"`
	Category       string   `json:"category,omitempty"`
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
	Contents       contents `json:"contents"`
}

type contents struct {
	Text       textOpts       `json:"text"`
	Highlights highlightsOpts `json:"highlights"`
}

type textOpts struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

type highlightsOpts struct {
	NumSentences int `json:"numSentences,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Score      float64  `json:"score"`
	Text       string   `json:"text"`
	Highlights []string `json:"highlights"`
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) ([]model.Candidate, error) {
	so := &searchOpts{}
	for _, opt := range opts {
		opt(so)
	}

	payload, err := json.Marshal(searchRequest{
		Query:          query,
		Type:           "neural",
		NumResults:     so.limit,
		Category:       so.category,
		ExcludeDomains: so.excludeDomains,
		Contents: contents{
			Text:       textOpts{MaxCharacters: 8000},
			Highlights: highlightsOpts{NumSentences: 3},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "discovery: marshal request")
	}

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, "/search", payload)
	})
	if err != nil {
		return nil, eris.Wrap(err, "discovery: search failed")
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "discovery: unmarshal response")
	}

	candidates := make([]model.Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		c := model.Candidate{
			URL:       r.URL,
			Domain:    model.DomainOf(r.URL),
			Name:      r.Title,
			Snippet:   r.Text,
			Relevance: r.Score,
		}
		if len(r.Highlights) > 0 {
			c.Highlight = r.Highlights[0]
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})
	return candidates, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "discovery: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("discovery: status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) || resp.StatusCode == http.StatusTooManyRequests {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}
	return body, nil
}
