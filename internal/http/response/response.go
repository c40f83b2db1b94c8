package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyline/studyline-backend/internal/pkg/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondAppError maps the error taxonomy onto HTTP statuses: NotFound 404,
// Conflict 409, Permanent 400, Transient 503, anything else 500.
func RespondAppError(c *gin.Context, code string, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsConflict(err):
		status = http.StatusConflict
	case apperr.IsPermanent(err):
		status = http.StatusBadRequest
	case apperr.IsTransient(err):
		status = http.StatusServiceUnavailable
	}
	RespondError(c, status, code, err)
}
