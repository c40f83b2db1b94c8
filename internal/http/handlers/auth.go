package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/http/response"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/register
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, pair, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if apperr.IsConflict(err) {
			response.RespondError(c, http.StatusConflict, "email_taken", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "registration_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"user": user, "tokens": pair})
}

// POST /api/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, pair, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}
	response.RespondOK(c, gin.H{"user": user, "tokens": pair})
}

// POST /api/refresh
func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pair, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "invalid_refresh_token", err)
		return
	}
	response.RespondOK(c, gin.H{"tokens": pair})
}

// GET /api/me
func (ah *AuthHandler) Me(c *gin.Context) {
	user, err := ah.authService.CurrentUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.RespondAppError(c, "me_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"user": user})
}

// POST /api/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.Logout(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		response.RespondAppError(c, "logout_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
