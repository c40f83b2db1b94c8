package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/services"
)

type LessonHandler struct {
	courses   *services.CourseService
	narration *services.NarrationService
	downloads *services.DownloadService
}

func NewLessonHandler(courses *services.CourseService, narration *services.NarrationService, downloads *services.DownloadService) *LessonHandler {
	return &LessonHandler{courses: courses, narration: narration, downloads: downloads}
}

// GET /api/lessons/:id
func (h *LessonHandler) Get(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	lesson, err := h.courses.GetLessonForUser(c.Request.Context(), middleware.CurrentUserID(c), lessonID)
	if err != nil {
		response.RespondAppError(c, "lesson_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// POST /api/lessons/:id/narration
func (h *LessonHandler) RequestNarration(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	var req struct {
		Voice    string `json:"voice"`
		Language string `json:"language"`
	}
	// Body is optional; defaults are fine.
	_ = c.ShouldBindJSON(&req)
	job, err := h.narration.RequestNarration(c.Request.Context(), middleware.CurrentUserID(c), lessonID, req.Voice, req.Language)
	if err != nil {
		response.RespondAppError(c, "narration_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/lessons/:id/downloads
func (h *LessonHandler) RequestDownload(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	grant, err := h.downloads.RequestDownload(c.Request.Context(), middleware.CurrentUserID(c), lessonID)
	if err != nil {
		response.RespondAppError(c, "download_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"grant": grant})
}

// GET /api/downloads
func (h *LessonHandler) ListDownloads(c *gin.Context) {
	grants, err := h.downloads.ListGrants(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.RespondAppError(c, "list_downloads_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"grants": grants})
}
