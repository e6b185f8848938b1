package crawl

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

const localUserAgent = "Mozilla/5.0 (compatible; LeadScout/1.0; +https://sells-group.com)"

// maxBodyBytes caps how much of a response we read. Anything past this
// is noise for qualification.
const maxBodyBytes = 4 << 20

// localCrawler is the plain-HTTP fallback used when no browser is
// available or the browser path failed. It carries its own politeness
// limiter so we never hammer a site even when the caller retries.
type localCrawler struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newLocalCrawler(cfg Config) *localCrawler {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &localCrawler{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return eris.New("crawl: too many redirects")
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (l *localCrawler) fetch(ctx context.Context, url string) (*model.CrawlContent, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: build request %s", url)
	}
	req.Header.Set("User-Agent", localUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("crawl: %s returned status %d", url, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text") {
		return nil, eris.Errorf("crawl: %s is not a text page (%s)", url, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: read body %s", url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse html")
	}

	text := ExtractText(doc)
	if looksBlocked(text) {
		return nil, eris.Errorf("crawl: %s served a block page", url)
	}
	if text == "" {
		return nil, eris.Errorf("crawl: empty page %s", url)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	return &model.CrawlContent{
		URL:     url,
		Success: true,
		Title:   title,
		Text:    text,
		Source:  "http",
	}, nil
}

var blockMarkers = []string{
	"access denied",
	"verify you are a human",
	"enable javascript and cookies",
	"attention required! | cloudflare",
	"checking your browser",
}

func looksBlocked(text string) bool {
	if len(text) > 600 {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
