package resilience

import (
	"errors"
	"net"

	"github.com/rotisserie/eris"
)

// Fatal catalog failures. No retry can help these; the run (or the city's
// run) aborts instead of degrading to partial coverage.
var (
	// ErrAuthDenied means the catalog rejected the API key.
	ErrAuthDenied = eris.New("catalog authentication denied")

	// ErrQuotaExhausted means the daily/billing quota is spent.
	ErrQuotaExhausted = eris.New("catalog quota exhausted")
)

// ThrottledError wraps an error that is safe to retry with backoff: a
// rate-limit signal, a 5xx, or a page token that is not yet valid.
type ThrottledError struct {
	Err        error
	StatusCode int
}

func (e *ThrottledError) Error() string { return e.Err.Error() }

func (e *ThrottledError) Unwrap() error { return e.Err }

// NewThrottledError wraps an error as retryable with an optional HTTP status.
func NewThrottledError(err error, statusCode int) *ThrottledError {
	return &ThrottledError{Err: err, StatusCode: statusCode}
}

// IsFatal reports whether the error is an auth or quota failure anywhere in
// its chain.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthDenied) || errors.Is(err, ErrQuotaExhausted)
}

// IsRetryable reports whether the error is worth retrying: an explicit
// ThrottledError, or a network-level timeout. Fatal errors are never
// retryable regardless of wrapping.
func IsRetryable(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}

	var te *ThrottledError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// IsRetryableHTTPStatus reports whether the HTTP status indicates a
// transient server-side condition.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
