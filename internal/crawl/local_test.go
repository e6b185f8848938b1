package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/resilience"
)

func testLocalCrawler() *localCrawler {
	return newLocalCrawler(Config{Timeout: 5 * time.Second, RequestsPerSecond: 1000}.withDefaults())
}

func TestLocalFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "LeadScout")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Acme Supply</title></head>
			<body><p>Wholesale hydraulic fittings for OEMs.</p></body></html>`))
	}))
	defer srv.Close()

	content, err := testLocalCrawler().fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, content.Success)
	assert.Equal(t, "Acme Supply", content.Title)
	assert.Contains(t, content.Text, "hydraulic fittings")
	assert.Equal(t, "http", content.Source)
}

func TestLocalFetchTransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testLocalCrawler().fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestLocalFetchPermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testLocalCrawler().fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestLocalFetchRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	_, err := testLocalCrawler().fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestLocalFetchDetectsBlockPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>Checking your browser before accessing.</body></html>`))
	}))
	defer srv.Close()

	_, err := testLocalCrawler().fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestLooksBlocked(t *testing.T) {
	assert.True(t, looksBlocked("Access Denied"))
	assert.True(t, looksBlocked("Please verify you are a human to continue"))
	assert.False(t, looksBlocked("We sell industrial access control systems"))
}

func TestPoolCrawlReturnsFailureInBand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := Config{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Retry:             resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	}
	p, err := OpenPool(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	content, err := p.Crawl(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.False(t, content.Success)
	assert.NotEmpty(t, content.Error)
}

func TestPoolCrawlSuccessPopulatesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Acme</title></head><body>
			<p>We manufacture and distribute industrial equipment for factories across the region.</p>
			</body></html>`))
	}))
	defer srv.Close()

	cache := newMemoryCache(time.Hour)
	cfg := Config{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Cache:             cache,
		Retry:             resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond},
	}
	p, err := OpenPool(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	content, err := p.Crawl(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.True(t, content.Success)
	assert.Equal(t, "en", content.Language)
	assert.Greater(t, content.Elapsed, time.Duration(0))

	// second crawl served from cache
	again, err := p.Crawl(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "cache", again.Source)
}

func TestContactPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contact", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>Email us at sales@acme.example or call 555-0100.</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>Founded in 1987, Acme supplies regional OEMs.</body></html>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := OpenPool(context.Background(), Config{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Retry:             resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond},
	})
	require.NoError(t, err)
	defer p.Close()

	text := p.ContactPages(context.Background(), srv.URL+"/")
	assert.Contains(t, text, "sales@acme.example")
	assert.Contains(t, text, "Founded in 1987")
	assert.Contains(t, text, "[/contact]")
}
