package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/services"
)

// WebhookHandler receives provider callbacks. Every status callback funnels
// into the reconciler; unknown handles are acknowledged with 200 so providers
// stop redelivering events for jobs we never created (or already purged).
type WebhookHandler struct {
	log        *logger.Logger
	reconciler *services.Reconciler
	transfers  *services.RecordingTransferService
	secret     string
}

func NewWebhookHandler(log *logger.Logger, reconciler *services.Reconciler, transfers *services.RecordingTransferService) *WebhookHandler {
	return &WebhookHandler{
		log:        log.With("handler", "WebhookHandler"),
		reconciler: reconciler,
		transfers:  transfers,
		secret:     os.Getenv("WEBHOOK_SHARED_SECRET"),
	}
}

type statusCallback struct {
	Handle   string          `json:"id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Stage    string          `json:"stage"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (h *WebhookHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		h.log.Warn("WEBHOOK_SHARED_SECRET not set, accepting unsigned webhook")
		return true
	}
	got := c.GetHeader("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

// POST /webhooks/status
func (h *WebhookHandler) Status(c *gin.Context) {
	if !h.authorized(c) {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var cb statusCallback
	if err := c.ShouldBindJSON(&cb); err != nil || cb.Handle == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_callback", err)
		return
	}

	err := h.reconciler.Apply(c.Request.Context(), services.StatusEvent{
		Source:   services.EventSourceWebhook,
		Handle:   cb.Handle,
		Status:   cb.Status,
		Progress: cb.Progress,
		Stage:    cb.Stage,
		Result:   cb.Result,
		Error:    cb.Error,
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			h.log.Warn("webhook for unknown job handle", "handle", cb.Handle, "status", cb.Status)
			response.RespondOK(c, gin.H{"ok": true})
			return
		}
		response.RespondAppError(c, "webhook_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /webhooks/recordings
func (h *WebhookHandler) RecordingAvailable(c *gin.Context) {
	if !h.authorized(c) {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		MeetingID       string `json:"meeting_id"`
		RecordingID     string `json:"recording_id"`
		DownloadURL     string `json:"download_url"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" || req.RecordingID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_callback", err)
		return
	}

	job, err := h.transfers.HandleRecordingAvailable(c.Request.Context(), services.RecordingAvailableEvent{
		ProviderMeetingID:   req.MeetingID,
		ProviderRecordingID: req.RecordingID,
		SourceURL:           req.DownloadURL,
		DurationSeconds:     req.DurationSeconds,
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			h.log.Warn("recording webhook for unknown meeting", "meeting_id", req.MeetingID)
			response.RespondOK(c, gin.H{"ok": true})
			return
		}
		response.RespondAppError(c, "recording_webhook_failed", err)
		return
	}
	if job == nil {
		// Redelivery of a recording we already track.
		response.RespondOK(c, gin.H{"ok": true})
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "job_id": job.ID})
}
