// Package assistant wraps the AI tutoring provider. Submission returns a
// provider job handle; the answer arrives later via webhook or polling.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/httpx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/utils"
)

type SubmitRequest struct {
	Question string `json:"question"`
	ScopeID  string `json:"scope_id,omitempty"`
	Language string `json:"language,omitempty"`
}

// JobStatus is the provider's view of one submitted question.
type JobStatus struct {
	Handle   string          `json:"id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	FetchStatus(ctx context.Context, handle string) (*JobStatus, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryBase  time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("ASSISTANT_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing ASSISTANT_API_KEY")
	}
	baseURL := utils.GetEnv("ASSISTANT_BASE_URL", "https://api.assistant.example.com", log)
	timeoutSec := utils.GetEnvAsInt("ASSISTANT_TIMEOUT_SECONDS", 60, log)
	maxRetries := utils.GetEnvAsInt("ASSISTANT_MAX_RETRIES", 3, log)
	retryBaseMS := utils.GetEnvAsInt("ASSISTANT_RETRY_BASE_MS", 500, log)

	return &client{
		log:        log.With("client", "AssistantClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
		retryBase:  time.Duration(retryBaseMS) * time.Millisecond,
	}, nil
}

func (c *client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var out JobStatus
	if err := c.doJSON(ctx, http.MethodPost, "/v1/answers", req, &out); err != nil {
		return "", err
	}
	if out.Handle == "" {
		return "", apperr.Permanent("assistant returned no job handle", nil)
	}
	return out.Handle, nil
}

func (c *client) FetchStatus(ctx context.Context, handle string) (*JobStatus, error) {
	var out JobStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v1/answers/"+handle, nil, &out); err != nil {
		return nil, err
	}
	if out.Handle == "" {
		out.Handle = handle
	}
	return &out, nil
}

// doJSON issues one JSON request with internal retries on 408/429/5xx and
// transport timeouts. The final error carries the Transient/Permanent
// classification for the caller.
func (c *client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apperr.Permanent("encode assistant request", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := httpx.JitterSleep(c.retryBase * time.Duration(1<<(attempt-1)))
			select {
			case <-ctx.Done():
				return apperr.Transient("assistant request canceled", ctx.Err())
			case <-time.After(sleep):
			}
			c.log.Debug("retrying assistant request", "path", path, "attempt", attempt)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return apperr.Permanent("build assistant request", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return apperr.Transient("assistant request canceled", ctx.Err())
			}
			lastErr = err
			continue
		}

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return apperr.Permanent("decode assistant response", err)
			}
			return nil
		}

		statusErr := &httpx.StatusError{Provider: "assistant", StatusCode: resp.StatusCode, Body: string(raw)}
		if !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return apperr.Permanent("assistant rejected request", statusErr)
		}
		lastErr = statusErr
		// Rate limits tell us when to come back.
		if wait := httpx.RetryAfterDuration(resp, 0, 30*time.Second); wait > 0 {
			select {
			case <-ctx.Done():
				return apperr.Transient("assistant request canceled", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return apperr.Transient("assistant unavailable", lastErr)
}
