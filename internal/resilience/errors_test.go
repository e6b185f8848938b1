package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("bad request"), false},
		{"transient wrapper", NewTransientError(errors.New("boom"), 503), true},
		{"rate limit", &RateLimitError{Provider: "anthropic", Err: errors.New("429")}, true},
		{"quota", &QuotaError{Provider: "anthropic", Err: errors.New("daily limit")}, false},
		{"wrapped transient", fmt.Errorf("call failed: %w", NewTransientError(errors.New("x"), 500)), true},
		{"timeout string", errors.New("read tcp: i/o timeout"), true},
		{"reset string", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsQuotaExhausted(t *testing.T) {
	qe := &QuotaError{Provider: "anthropic", Err: errors.New("daily token limit reached")}
	if !IsQuotaExhausted(qe) {
		t.Error("expected direct quota error to match")
	}
	if !IsQuotaExhausted(fmt.Errorf("tier failed: %w", qe)) {
		t.Error("expected wrapped quota error to match")
	}
	if IsQuotaExhausted(errors.New("quota exhausted")) {
		t.Error("string mention alone must not match")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d transient", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d not transient", code)
		}
	}
}
