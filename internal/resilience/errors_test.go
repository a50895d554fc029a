package resilience

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrAuthDenied) {
		t.Error("ErrAuthDenied should be fatal")
	}
	if !IsFatal(ErrQuotaExhausted) {
		t.Error("ErrQuotaExhausted should be fatal")
	}
	if !IsFatal(eris.Wrap(ErrQuotaExhausted, "places: search")) {
		t.Error("wrapped quota error should stay fatal")
	}
	if IsFatal(errors.New("other")) {
		t.Error("arbitrary error should not be fatal")
	}
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewThrottledError(errors.New("429"), 429)) {
		t.Error("throttled error should be retryable")
	}
	if !IsRetryable(eris.Wrap(NewThrottledError(errors.New("token not ready"), 0), "places: page")) {
		t.Error("wrapped throttled error should be retryable")
	}
	if IsRetryable(ErrAuthDenied) {
		t.Error("fatal error should not be retryable")
	}
	if IsRetryable(errors.New("parse failure")) {
		t.Error("unknown error should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		if IsRetryableHTTPStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}
