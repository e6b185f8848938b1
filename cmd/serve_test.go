package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/throttle"
)

func testEnv(t *testing.T) *appEnv {
	t.Helper()
	c := &config.Config{}
	c.Qualify.TopThreshold = 8
	c.Qualify.ReviewThreshold = 4
	c.Qualify.RetryAttempts = 2
	c.Qualify.BaseBackoffSecs = 1
	c.Anthropic.CallsPerMin = 30
	c.Anthropic.QuotaTTLHours = 24
	// no provider keys: scoring falls through to keyword lists, so the
	// handler runs end to end without any network access
	return &appEnv{
		cfg:     c,
		limiter: throttle.NewRateLimiter(c.Anthropic.CallsPerMin),
		quota:   throttle.NewQuotaTracker(time.Duration(c.Anthropic.QuotaTTLHours) * time.Hour),
		metrics: monitoring.New(),
	}
}

func TestHandleQualifyStreamsEvents(t *testing.T) {
	handler := handleQualify(testEnv(t))

	body := `{"candidates": [
		{"name": "Acme Supply", "url": "https://acme.example",
		 "snippet": "Wholesale distributor of industrial equipment and machine parts for manufacturing plants."}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/qualify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: init")
	assert.Contains(t, out, "event: progress")
	assert.Contains(t, out, "event: result")
	assert.Contains(t, out, "event: complete")
	assert.Contains(t, out, `"company":"Acme Supply"`)
	// keyword scoring marks the verdict as model-free
	assert.Contains(t, out, `"method":"keyword"`)
}

func TestHandleQualifyOrdersByRelevance(t *testing.T) {
	handler := handleQualify(testEnv(t))

	body := `{"candidates": [
		{"name": "Low", "url": "https://low.example", "relevance": 0.1,
		 "snippet": "industrial distributor"},
		{"name": "High", "url": "https://high.example", "relevance": 0.9,
		 "snippet": "industrial distributor"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/qualify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	out := rec.Body.String()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, strings.Index(out, `"company":"High"`), strings.Index(out, `"company":"Low"`))
}

func TestHandleQualifyRejectsBadBody(t *testing.T) {
	handler := handleQualify(testEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/api/qualify", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQualifyRejectsEmptyBatch(t *testing.T) {
	handler := handleQualify(testEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/api/qualify", strings.NewReader(`{"candidates": []}`))
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
