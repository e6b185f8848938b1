package crawl

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// contactPaths are probed in order of how often they exist on small-business
// sites. Misses are expected and cheap.
var contactPaths = []string{"/contact", "/contact-us", "/about", "/about-us", "/team"}

const maxContactChars = 3000

// ContactPages probes a site's conventional contact and about pages and
// returns their combined text, capped. Pages are fetched concurrently over
// the HTTP path only; this runs during enrichment where a browser tab per
// probe would be wasteful. Returns "" when nothing useful was found.
func (p *Pool) ContactPages(ctx context.Context, baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	texts := make([]string, len(contactPaths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, path := range contactPaths {
		i, path := i, path
		g.Go(func() error {
			attemptCtx, cancel := context.WithTimeout(gctx, p.cfg.Timeout)
			defer cancel()
			content, err := p.local.fetch(attemptCtx, base+path)
			if err != nil || !content.HasText() {
				return nil // a miss is not an error
			}
			mu.Lock()
			texts[i] = content.Text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	for i, t := range texts {
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + contactPaths[i] + "]\n")
		b.WriteString(t)
		if b.Len() >= maxContactChars {
			break
		}
	}
	return Truncate(b.String(), maxContactChars)
}
