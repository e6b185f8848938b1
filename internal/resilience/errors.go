// Package resilience provides the retry policy and error taxonomy used for
// all external calls: crawl fetches and model provider requests.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout). StatusCode is optional.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitError signals a per-minute rate limit response from a provider.
// It is transient: the owning tier retries it with backoff.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return e.Provider + ": rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// QuotaError signals daily token-budget exhaustion from a provider. It is
// NOT retryable: it aborts the owning tier immediately and marks the shared
// quota tracker so later calls skip the provider for the TTL window.
type QuotaError struct {
	Provider string
	Err      error
}

func (e *QuotaError) Error() string {
	return e.Provider + ": daily quota exhausted: " + e.Err.Error()
}

func (e *QuotaError) Unwrap() error { return e.Err }

// IsQuotaExhausted reports whether err (or anything it wraps) is a QuotaError.
func IsQuotaExhausted(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsRateLimited reports whether err is a per-minute rate limit signal.
func IsRateLimited(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsTransient returns true if the error is retryable: an explicit
// TransientError or RateLimitError, a network timeout, a reset connection,
// or a known transient pattern from a wrapped HTTP client error. Quota
// exhaustion is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsQuotaExhausted(err) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
		"overloaded",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true for status codes safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
