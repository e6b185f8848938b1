package crawl

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// browserCrawler drives one shared headless-Chrome allocator. Each fetch
// opens a fresh tab context so a crashed page never poisons the pool.
type browserCrawler struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func openBrowserCrawler(ctx context.Context, cfg Config) (*browserCrawler, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (compatible; LeadScout/1.0)"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	// Probe the allocator so startup failures surface here, not on the
	// first candidate.
	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	if err := chromedp.Run(probeCtx); err != nil {
		allocCancel()
		return nil, eris.Wrap(err, "crawl: start browser")
	}

	return &browserCrawler{allocCtx: allocCtx, allocCancel: allocCancel}, nil
}

func (b *browserCrawler) close() {
	b.allocCancel()
}

func (b *browserCrawler) fetch(ctx context.Context, url string, wantScreenshot bool) (*model.CrawlContent, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	// Honor the caller's deadline inside the tab context.
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		tabCtx, dcancel = context.WithDeadline(tabCtx, deadline)
		defer dcancel()
	}

	var title, html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	}
	var screenshot []byte
	if wantScreenshot {
		actions = append(actions, chromedp.FullScreenshot(&screenshot, 80))
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, eris.Wrapf(err, "crawl: browser fetch %s", url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse html")
	}
	text := ExtractText(doc)

	if text == "" && len(screenshot) == 0 {
		return nil, eris.Errorf("crawl: empty page %s", url)
	}

	return &model.CrawlContent{
		URL:        url,
		Success:    true,
		Title:      strings.TrimSpace(title),
		Text:       text,
		Screenshot: screenshot,
		Source:     "browser",
	}, nil
}
