package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/services"
)

type LiveHandler struct {
	live *services.LiveClassService
}

func NewLiveHandler(live *services.LiveClassService) *LiveHandler {
	return &LiveHandler{live: live}
}

// POST /api/courses/:id/live-classes  (staff)
func (h *LiveHandler) Schedule(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req struct {
		Topic           string    `json:"topic"`
		StartsAt        time.Time `json:"starts_at"`
		DurationMinutes int       `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	lc, err := h.live.Schedule(c.Request.Context(), middleware.CurrentUserID(c), courseID, req.Topic, req.StartsAt, req.DurationMinutes)
	if err != nil {
		response.RespondAppError(c, "schedule_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"live_class": lc})
}

// GET /api/courses/:id/live-classes
func (h *LiveHandler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	classes, err := h.live.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.RespondAppError(c, "list_live_classes_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"live_classes": classes})
}

// GET /api/live-classes/:id/recordings
func (h *LiveHandler) ListRecordings(c *gin.Context) {
	liveClassID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_live_class_id", err)
		return
	}
	recordings, err := h.live.ListRecordings(c.Request.Context(), liveClassID)
	if err != nil {
		response.RespondAppError(c, "list_recordings_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recordings": recordings})
}
