// Package meetings wraps the video-conferencing provider: meeting creation
// for live classes, recording retrieval, and transcode submission.
package meetings

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

type Meeting struct {
	ID      string `json:"id"`
	JoinURL string `json:"join_url"`
}

type TranscodeStatus struct {
	Handle   string          `json:"id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type Client interface {
	CreateMeeting(ctx context.Context, topic string, startsAt time.Time, durationMinutes int) (*Meeting, error)
	// DownloadRecording streams the raw recording from the provider's
	// short-lived source URL.
	DownloadRecording(ctx context.Context, sourceURL string) (io.ReadCloser, error)
	// SubmitTranscode hands a stored recording to the provider's transcode
	// service and returns the external job handle.
	SubmitTranscode(ctx context.Context, storageURL string) (string, error)
	FetchTranscodeStatus(ctx context.Context, handle string) (*TranscodeStatus, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("MEETINGS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing MEETINGS_API_KEY")
	}
	baseURL := utils.GetEnv("MEETINGS_BASE_URL", "https://api.meetings.example.com", log)
	timeoutSec := utils.GetEnvAsInt("MEETINGS_TIMEOUT_SECONDS", 60, log)
	return &client{
		log:        log.With("client", "MeetingsClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

func (c *client) CreateMeeting(ctx context.Context, topic string, startsAt time.Time, durationMinutes int) (*Meeting, error) {
	body := map[string]interface{}{
		"topic":            topic,
		"start_time":       startsAt.UTC().Format(time.RFC3339),
		"duration_minutes": durationMinutes,
	}
	var out Meeting
	if err := c.doJSON(ctx, http.MethodPost, "/v1/meetings", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperr.Permanent("meetings provider returned no meeting id", nil)
	}
	return &out, nil
}

func (c *client) DownloadRecording(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, apperr.Permanent("build recording download request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Transient("download recording", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		statusErr := &httpx.StatusError{Provider: "meetings", StatusCode: resp.StatusCode, Body: string(raw)}
		if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, apperr.Transient("download recording", statusErr)
		}
		return nil, apperr.Permanent("download recording", statusErr)
	}
	return resp.Body, nil
}

func (c *client) SubmitTranscode(ctx context.Context, storageURL string) (string, error) {
	var out TranscodeStatus
	body := map[string]string{"source_url": storageURL}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/transcodes", body, &out); err != nil {
		return "", err
	}
	if out.Handle == "" {
		return "", apperr.Permanent("meetings provider returned no transcode handle", nil)
	}
	return out.Handle, nil
}

func (c *client) FetchTranscodeStatus(ctx context.Context, handle string) (*TranscodeStatus, error) {
	var out TranscodeStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v1/transcodes/"+handle, nil, &out); err != nil {
		return nil, err
	}
	if out.Handle == "" {
		out.Handle = handle
	}
	return &out, nil
}

func (c *client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Permanent("encode meetings request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Permanent("build meetings request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Transient("meetings request", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Transient("read meetings response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &httpx.StatusError{Provider: "meetings", StatusCode: resp.StatusCode, Body: string(raw)}
		if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return apperr.Transient("meetings request", statusErr)
		}
		return apperr.Permanent("meetings request", statusErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Permanent("decode meetings response", err)
	}
	return nil
}
