package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/services"
)

type TutorHandler struct {
	tutor *services.TutorService
}

func NewTutorHandler(tutor *services.TutorService) *TutorHandler {
	return &TutorHandler{tutor: tutor}
}

// POST /api/tutor/ask
func (h *TutorHandler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
		ScopeID  string `json:"scope_id"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.tutor.Ask(c.Request.Context(), middleware.CurrentUserID(c), req.Question, req.ScopeID, req.Language)
	if err != nil {
		response.RespondAppError(c, "ask_failed", err)
		return
	}
	response.RespondOK(c, res)
}
