package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	t.Setenv("ASSISTANT_API_KEY", "test-key")
	t.Setenv("ASSISTANT_BASE_URL", baseURL)
	t.Setenv("ASSISTANT_MAX_RETRIES", "2")
	t.Setenv("ASSISTANT_RETRY_BASE_MS", "1")
	c, err := NewClient(logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSubmitRecoversFromTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"prov-1","status":"queued"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	handle, err := c.Submit(context.Background(), SubmitRequest{Question: "what is velocity"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if handle != "prov-1" {
		t.Fatalf("handle = %q", handle)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected retry after 503, got %d calls", got)
	}
}

func TestSubmitPermanentOn4xxNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"empty question"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), SubmitRequest{})
	if !apperr.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", got)
	}
}

func TestSubmitTransientAfterExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), SubmitRequest{Question: "q"})
	if !apperr.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected maxRetries+1 calls, got %d", got)
	}
}

func TestFetchStatusFillsHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/answers/prov-9" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"processing","progress":40}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	st, err := c.FetchStatus(context.Background(), "prov-9")
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if st.Handle != "prov-9" || st.Status != "processing" || st.Progress != 40 {
		t.Fatalf("unexpected status %+v", st)
	}
}
