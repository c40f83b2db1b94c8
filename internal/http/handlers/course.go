package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/services"
)

type CourseHandler struct {
	courses *services.CourseService
}

func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// POST /api/courses  (staff)
func (h *CourseHandler) Create(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Language    string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), middleware.CurrentUserID(c), req.Title, req.Description, req.Language)
	if err != nil {
		response.RespondAppError(c, "create_course_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// POST /api/courses/:id/publish  (staff)
func (h *CourseHandler) Publish(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	if err := h.courses.Publish(c.Request.Context(), middleware.CurrentUserID(c), courseID); err != nil {
		response.RespondAppError(c, "publish_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/courses
func (h *CourseHandler) ListPublished(c *gin.Context) {
	courses, err := h.courses.ListPublished(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, "list_courses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/mine  (staff)
func (h *CourseHandler) ListOwned(c *gin.Context) {
	courses, err := h.courses.ListOwned(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.RespondAppError(c, "list_courses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	detail, err := h.courses.Get(c.Request.Context(), middleware.CurrentUserID(c), courseID)
	if err != nil {
		response.RespondAppError(c, "course_not_found", err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /api/courses/:id/modules  (staff)
func (h *CourseHandler) AddModule(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req struct {
		Index int    `json:"index"`
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	module, err := h.courses.AddModule(c.Request.Context(), middleware.CurrentUserID(c), courseID, req.Index, req.Title)
	if err != nil {
		response.RespondAppError(c, "add_module_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"module": module})
}

// POST /api/courses/:id/modules/:moduleID/lessons  (staff)
func (h *CourseHandler) AddLesson(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	moduleID, err := uuid.Parse(c.Param("moduleID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	var req struct {
		Index     int    `json:"index"`
		Title     string `json:"title"`
		Kind      string `json:"kind"`
		ContentMD string `json:"content_md"`
		MediaKey  string `json:"media_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	lesson, err := h.courses.AddLesson(c.Request.Context(), middleware.CurrentUserID(c), courseID, moduleID, &domain.Lesson{
		Index:     req.Index,
		Title:     req.Title,
		Kind:      req.Kind,
		ContentMD: req.ContentMD,
		MediaKey:  req.MediaKey,
	})
	if err != nil {
		response.RespondAppError(c, "add_lesson_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// POST /api/courses/:id/enroll
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	if err := h.courses.Enroll(c.Request.Context(), middleware.CurrentUserID(c), courseID); err != nil {
		response.RespondAppError(c, "enroll_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
