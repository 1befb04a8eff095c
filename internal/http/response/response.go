package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type MessageEnvelope struct {
	Message string `json:"message"`
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

// RespondAPIError renders err using its apierr status when present and
// falls back to 500.
func RespondAPIError(c *gin.Context, err error) {
	if e, ok := apierr.As(err); ok {
		status := e.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, ErrorEnvelope{Error: APIError{
			Message:   e.Error(),
			Code:      e.Code,
			Retryable: e.Retryable,
		}})
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, MessageEnvelope{Message: msg})
}
