package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status    string                 `json:"status"`
	Code      apperrors.ErrorCode    `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      interface{}            `json:"data,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: StatusSuccess, Data: data})
}

func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Status: StatusSuccess, Data: data})
}

// RespondWithError maps err to its HTTP status and aborts the chain.
// Errors without an application code are reported as internal.
func RespondWithError(c *gin.Context, err error) {
	appErr := toAppError(err)
	status := appErr.StatusCode()

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("code", string(appErr.Code)).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, Response{
		Status:    StatusError,
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		Retryable: appErr.Retryable(),
		RequestID: c.GetString("request_id"),
	})
}

// RespondWithBindError reports a request body or query that failed binding.
func RespondWithBindError(c *gin.Context, err error) {
	if msg, details, ok := validator.Describe(err); ok {
		appErr := apperrors.InvalidParameter(msg, err)
		appErr.Details = details
		RespondWithError(c, appErr)
		return
	}
	RespondWithError(c, apperrors.InvalidParameter("malformed request", err))
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.Internal(err)
}
