package httpx

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 599}
	for _, code := range retryable {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	permanent := []int{400, 401, 403, 404, 409, 422}
	for _, code := range permanent {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}

func TestIsRetryableErrorUnwrapsStatusError(t *testing.T) {
	err := fmt.Errorf("submit: %w", &StatusError{Provider: "assistant", StatusCode: 503, Body: "busy"})
	if !IsRetryableError(err) {
		t.Fatalf("wrapped 503 should be retryable")
	}
	err = fmt.Errorf("submit: %w", &StatusError{Provider: "assistant", StatusCode: 400, Body: "bad"})
	if IsRetryableError(err) {
		t.Fatalf("wrapped 400 should not be retryable")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	if got := RetryAfterDuration(resp, time.Second, time.Minute); got != 3*time.Second {
		t.Fatalf("Retry-After not honored: %v", got)
	}
	resp.Header.Set("Retry-After", "600")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("Retry-After not clamped: %v", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, time.Minute); got != 2*time.Second {
		t.Fatalf("fallback not used: %v", got)
	}
}
