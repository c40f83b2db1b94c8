// Package speech wraps the text-to-speech provider used for lesson
// narration. Synthesis is asynchronous; the provider reports back through
// the shared webhook/poll reconciliation.
package speech

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

type SynthesisStatus struct {
	Handle   string          `json:"id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type Client interface {
	SubmitSynthesis(ctx context.Context, text, voice, language string) (string, error)
	FetchStatus(ctx context.Context, handle string) (*SynthesisStatus, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	voice      string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("SPEECH_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing SPEECH_API_KEY")
	}
	baseURL := utils.GetEnv("SPEECH_BASE_URL", "https://api.speech.example.com", log)
	voice := utils.GetEnv("SPEECH_DEFAULT_VOICE", "narrator-1", log)
	timeoutSec := utils.GetEnvAsInt("SPEECH_TIMEOUT_SECONDS", 60, log)
	return &client{
		log:        log.With("client", "SpeechClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		voice:      voice,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

func (c *client) SubmitSynthesis(ctx context.Context, text, voice, language string) (string, error) {
	if voice == "" {
		voice = c.voice
	}
	body := map[string]string{"text": text, "voice": voice, "language": language}
	var out SynthesisStatus
	if err := c.doJSON(ctx, http.MethodPost, "/v1/synthesize", body, &out); err != nil {
		return "", err
	}
	if out.Handle == "" {
		return "", apperr.Permanent("speech provider returned no job handle", nil)
	}
	return out.Handle, nil
}

func (c *client) FetchStatus(ctx context.Context, handle string) (*SynthesisStatus, error) {
	var out SynthesisStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v1/synthesize/"+handle, nil, &out); err != nil {
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
			return apperr.Permanent("encode speech request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Permanent("build speech request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Transient("speech request", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Transient("read speech response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &httpx.StatusError{Provider: "speech", StatusCode: resp.StatusCode, Body: string(raw)}
		if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return apperr.Transient("speech request", statusErr)
		}
		return apperr.Permanent("speech request", statusErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Permanent("decode speech response", err)
	}
	return nil
}
