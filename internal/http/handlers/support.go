package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/services"
)

type SupportHandler struct {
	support *services.SupportService
}

func NewSupportHandler(support *services.SupportService) *SupportHandler {
	return &SupportHandler{support: support}
}

// POST /api/support/threads
func (h *SupportHandler) OpenThread(c *gin.Context) {
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	thread, err := h.support.OpenThread(c.Request.Context(), middleware.CurrentUserID(c), req.Subject, req.Body)
	if err != nil {
		response.RespondAppError(c, "open_thread_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

// GET /api/support/threads
func (h *SupportHandler) ListThreads(c *gin.Context) {
	threads, err := h.support.ListThreads(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.RespondAppError(c, "list_threads_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}

// GET /api/support/threads/:id/messages
func (h *SupportHandler) ListMessages(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_thread_id", err)
		return
	}
	msgs, err := h.support.ListMessages(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentRole(c), threadID)
	if err != nil {
		response.RespondAppError(c, "thread_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// POST /api/support/threads/:id/messages
func (h *SupportHandler) PostMessage(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_thread_id", err)
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	msg, err := h.support.PostMessage(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentRole(c), threadID, req.Body)
	if err != nil {
		response.RespondAppError(c, "post_message_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}
